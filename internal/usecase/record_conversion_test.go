package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/hash"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

// ============ MOCKS E FAKES ============

type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) FindByCRMDealRef(ctx context.Context, dealRef string) (*entity.Lead, error) {
	args := m.Called(ctx, dealRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) FindByEmailHash(ctx context.Context, emailHash string) (*entity.Lead, error) {
	args := m.Called(ctx, emailHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

// FakeConversionRepo imita a constraint UNIQUE (lead_id, stage) do
// banco: é ela que garante o at-most-once sob replay
type FakeConversionRepo struct {
	mu    sync.Mutex
	convs map[string]*entity.Conversion
}

func NewFakeConversionRepo() *FakeConversionRepo {
	return &FakeConversionRepo{convs: make(map[string]*entity.Conversion)}
}

func (f *FakeConversionRepo) CreateIfAbsent(ctx context.Context, conv *entity.Conversion) (*entity.Conversion, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := conv.LeadID + "|" + conv.Stage
	if existing, ok := f.convs[key]; ok {
		return existing, false, nil
	}
	f.convs[key] = conv
	return conv, true, nil
}

func (f *FakeConversionRepo) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.convs)
}

type FakeJobRepo struct {
	mu        sync.Mutex
	jobs      []*entity.AdsUploadJob
	createErr error
}

func (f *FakeJobRepo) Create(ctx context.Context, job *entity.AdsUploadJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *FakeJobRepo) FindByID(ctx context.Context, id string) (*entity.AdsUploadJob, error) {
	return nil, errors.New("not implemented")
}
func (f *FakeJobRepo) MarkUploaded(ctx context.Context, id string) error { return nil }
func (f *FakeJobRepo) RegisterAttempt(ctx context.Context, id, lastError string) (int, error) {
	return 0, nil
}
func (f *FakeJobRepo) MarkFailed(ctx context.Context, id, lastError string) error { return nil }
func (f *FakeJobRepo) Touch(ctx context.Context, id string) error                 { return nil }
func (f *FakeJobRepo) FindStalePending(ctx context.Context, maxAge time.Duration, limit int) ([]*entity.AdsUploadJob, error) {
	return nil, nil
}

type FakeProducer struct {
	mu         sync.Mutex
	published  []queue.UploadPayload
	publishErr error
}

func (f *FakeProducer) PublishUpload(ctx context.Context, payload queue.UploadPayload) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func testLead() *entity.Lead {
	lead, _ := entity.NewLead(
		"visitor-1",
		hash.Email("user@example.com"),
		"deal-ref-1",
		entity.Attribution{Source: "google", Medium: "cpc"},
		entity.ClickIDs{GCLID: "gclid-abc"},
	)
	return lead
}

// ============ TESTES ============

// TestWebhookReplayIdempotent - reentrega N vezes = 1 conversão, 1 job
func TestWebhookReplayIdempotent(t *testing.T) {
	lead := testLead()

	leadRepo := new(MockLeadRepository)
	leadRepo.On("FindByCRMDealRef", mock.Anything, "D1").Return(lead, nil)

	convRepo := NewFakeConversionRepo()
	jobRepo := &FakeJobRepo{}
	producer := &FakeProducer{}

	uc := NewRecordConversionUseCase(leadRepo, convRepo, jobRepo, producer, true)

	input := RecordConversionInput{
		CRMDealID: "D1",
		Stage:     "qualified",
		Email:     "User@Example.com ",
	}

	out1, err := uc.Execute(context.Background(), input)
	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, out1.Outcome)

	for i := 0; i < 3; i++ {
		out, err := uc.Execute(context.Background(), input)
		assert.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, out.Outcome)
		assert.Equal(t, out1.Conversion.ID, out.Conversion.ID, "duplicata devolve a conversão original")
	}

	assert.Equal(t, 1, convRepo.Count(), "exatamente UMA conversão")
	assert.Len(t, jobRepo.jobs, 1, "exatamente UM job de upload")
	assert.Len(t, producer.published, 1, "exatamente UM publish")

	job := jobRepo.jobs[0]
	assert.Equal(t, entity.JobStatusPending, job.Status)
	assert.Equal(t, lead.EmailHash, job.EmailHash)
	assert.Equal(t, "gclid-abc", job.ClickID)
}

// TestNoMatchingLead - deal manual no CRM, sem lead web: 200, nada criado
func TestNoMatchingLead(t *testing.T) {
	leadRepo := new(MockLeadRepository)
	leadRepo.On("FindByCRMDealRef", mock.Anything, "D1").Return(nil, entity.ErrLeadNotFound)
	leadRepo.On("FindByEmailHash", mock.Anything, mock.Anything).Return(nil, entity.ErrLeadNotFound)

	convRepo := NewFakeConversionRepo()
	jobRepo := &FakeJobRepo{}
	producer := &FakeProducer{}

	uc := NewRecordConversionUseCase(leadRepo, convRepo, jobRepo, producer, true)

	out, err := uc.Execute(context.Background(), RecordConversionInput{
		CRMDealID: "D1",
		Stage:     "qualified",
		Email:     "User@Example.com ",
	})

	assert.NoError(t, err, "NotFound é desfecho esperado, não erro")
	assert.Equal(t, OutcomeNoMatch, out.Outcome)
	assert.Equal(t, 0, convRepo.Count())
	assert.Empty(t, jobRepo.jobs)
}

// TestEmailHashedBeforeLookup - o lookup usa o hash normalizado,
// nunca o email cru
func TestEmailHashedBeforeLookup(t *testing.T) {
	leadRepo := new(MockLeadRepository)
	leadRepo.On("FindByCRMDealRef", mock.Anything, mock.Anything).Return(nil, entity.ErrLeadNotFound)
	leadRepo.On("FindByEmailHash", mock.Anything, hash.Email("user@example.com")).
		Return(testLead(), nil)

	uc := NewRecordConversionUseCase(leadRepo, NewFakeConversionRepo(), &FakeJobRepo{}, &FakeProducer{}, true)

	out, err := uc.Execute(context.Background(), RecordConversionInput{
		CRMDealID: "D1",
		Stage:     "qualified",
		Email:     "  USER@Example.com ",
	})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, out.Outcome)
	leadRepo.AssertExpectations(t)
}

// TestStageIgnored - estágio que não qualifica é aceito e ignorado
func TestStageIgnored(t *testing.T) {
	leadRepo := new(MockLeadRepository)
	convRepo := NewFakeConversionRepo()

	uc := NewRecordConversionUseCase(leadRepo, convRepo, &FakeJobRepo{}, &FakeProducer{}, true)

	out, err := uc.Execute(context.Background(), RecordConversionInput{
		CRMDealID: "D1",
		Stage:     "negotiation",
	})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeIgnoredStage, out.Outcome)
	assert.Equal(t, 0, convRepo.Count())
	leadRepo.AssertNotCalled(t, "FindByCRMDealRef")
}

// TestBothStagesRecorded - qualified e closed são conversões distintas
func TestBothStagesRecorded(t *testing.T) {
	lead := testLead()
	leadRepo := new(MockLeadRepository)
	leadRepo.On("FindByCRMDealRef", mock.Anything, "D1").Return(lead, nil)

	convRepo := NewFakeConversionRepo()
	jobRepo := &FakeJobRepo{}

	uc := NewRecordConversionUseCase(leadRepo, convRepo, jobRepo, &FakeProducer{}, true)

	out1, _ := uc.Execute(context.Background(), RecordConversionInput{CRMDealID: "D1", Stage: "qualified"})
	out2, _ := uc.Execute(context.Background(), RecordConversionInput{CRMDealID: "D1", Stage: "Closed"})

	assert.Equal(t, OutcomeRecorded, out1.Outcome)
	assert.Equal(t, OutcomeRecorded, out2.Outcome, "stage é normalizado pra minúsculo")
	assert.Equal(t, 2, convRepo.Count())
	assert.Len(t, jobRepo.jobs, 2)
}

// TestMatchPolicyDealRefFirst - com as duas chaves presentes e
// discordando, a política decide
func TestMatchPolicyDealRefFirst(t *testing.T) {
	leadByRef := testLead()
	leadByEmail, _ := entity.NewLead(
		"visitor-2", hash.Email("outro@example.com"), "",
		entity.Attribution{}, entity.ClickIDs{},
	)

	t.Run("DealRefFirst", func(t *testing.T) {
		leadRepo := new(MockLeadRepository)
		leadRepo.On("FindByCRMDealRef", mock.Anything, "ref-9").Return(leadByRef, nil)

		uc := NewRecordConversionUseCase(leadRepo, NewFakeConversionRepo(), &FakeJobRepo{}, &FakeProducer{}, true)

		out, err := uc.Execute(context.Background(), RecordConversionInput{
			CRMDealID:   "D1",
			Stage:       "qualified",
			Email:       "outro@example.com",
			ExternalRef: "ref-9",
		})

		assert.NoError(t, err)
		assert.Equal(t, leadByRef.ID, out.Conversion.LeadID)
		leadRepo.AssertNotCalled(t, "FindByEmailHash")
	})

	t.Run("EmailFirst", func(t *testing.T) {
		leadRepo := new(MockLeadRepository)
		leadRepo.On("FindByEmailHash", mock.Anything, hash.Email("outro@example.com")).Return(leadByEmail, nil)

		uc := NewRecordConversionUseCase(leadRepo, NewFakeConversionRepo(), &FakeJobRepo{}, &FakeProducer{}, false)

		out, err := uc.Execute(context.Background(), RecordConversionInput{
			CRMDealID:   "D1",
			Stage:       "qualified",
			Email:       "outro@example.com",
			ExternalRef: "ref-9",
		})

		assert.NoError(t, err)
		assert.Equal(t, leadByEmail.ID, out.Conversion.LeadID)
		leadRepo.AssertNotCalled(t, "FindByCRMDealRef")
	})
}

// TestPublishFailureStillRecorded - fila fora do ar não derruba o 200
// nem a conversão; a varredura republica depois
func TestPublishFailureStillRecorded(t *testing.T) {
	leadRepo := new(MockLeadRepository)
	leadRepo.On("FindByCRMDealRef", mock.Anything, "D1").Return(testLead(), nil)

	convRepo := NewFakeConversionRepo()
	jobRepo := &FakeJobRepo{}
	producer := &FakeProducer{publishErr: errors.New("broker down")}

	uc := NewRecordConversionUseCase(leadRepo, convRepo, jobRepo, producer, true)

	out, err := uc.Execute(context.Background(), RecordConversionInput{
		CRMDealID: "D1",
		Stage:     "qualified",
	})

	assert.NoError(t, err)
	assert.Equal(t, OutcomeRecorded, out.Outcome)
	assert.Equal(t, 1, convRepo.Count())
	assert.Len(t, jobRepo.jobs, 1, "o job durável fica gravado mesmo sem publish")
}
