package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/hash"
)

// TestCaptureLeadHashesEmail - o lead persistido carrega o hash,
// nunca o endereço cru
func TestCaptureLeadHashesEmail(t *testing.T) {
	leadRepo := new(MockLeadRepository)

	var persisted *entity.Lead
	leadRepo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(1).(*entity.Lead)
	}).Return(nil)

	uc := NewCaptureLeadUseCase(leadRepo)

	lead, err := uc.Execute(context.Background(), CaptureLeadInput{
		VisitorID:   "visitor-1",
		Email:       "  Maria@Example.COM ",
		Attribution: entity.Attribution{Source: "google", Medium: "cpc", LandingPage: "/planos"},
		ClickIDs:    entity.ClickIDs{GCLID: "g-1"},
	})

	assert.NoError(t, err)
	assert.Equal(t, hash.Email("maria@example.com"), lead.EmailHash)
	assert.Len(t, lead.EmailHash, 64)
	assert.NotContains(t, lead.EmailHash, "@")

	assert.Equal(t, persisted.ID, lead.ID)
	assert.Equal(t, "google", persisted.Attribution.Source)
	assert.Equal(t, "g-1", persisted.ClickIDs.GCLID)
}

// TestCaptureLeadValidation - email e visitante são obrigatórios
func TestCaptureLeadValidation(t *testing.T) {
	uc := NewCaptureLeadUseCase(new(MockLeadRepository))

	_, err := uc.Execute(context.Background(), CaptureLeadInput{VisitorID: "v1", Email: "   "})
	assert.True(t, IsDomainError(err))

	_, err = uc.Execute(context.Background(), CaptureLeadInput{Email: "a@b.com"})
	assert.True(t, IsDomainError(err))
}

// TestCaptureLeadRepoFailure - erro de banco vira erro técnico
func TestCaptureLeadRepoFailure(t *testing.T) {
	leadRepo := new(MockLeadRepository)
	leadRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	uc := NewCaptureLeadUseCase(leadRepo)

	_, err := uc.Execute(context.Background(), CaptureLeadInput{
		VisitorID: "visitor-1",
		Email:     "maria@example.com",
	})

	assert.Error(t, err)
	assert.True(t, IsTechnicalError(err))
}
