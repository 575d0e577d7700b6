package usecase

import (
	"context"
	"log"
	"strings"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/hash"
)

func NewCaptureLeadUseCase(leadRepo entity.LeadRepositoryInterface) *CaptureLeadUseCase {
	return &CaptureLeadUseCase{LeadRepo: leadRepo}
}

// Execute persiste o lead do formulário. O email é hasheado AQUI, na
// borda: daqui pra dentro (banco, fila, plataforma de ads) só o
// digest circula.
func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*entity.Lead, error) {
	if strings.TrimSpace(input.Email) == "" {
		return nil, &DomainError{Code: "EMAIL_REQUIRED", Message: "email is required"}
	}
	if input.VisitorID == "" {
		return nil, &DomainError{Code: "VISITOR_REQUIRED", Message: "visitor id is required"}
	}

	emailHash := hash.Email(input.Email)

	lead, err := entity.NewLead(
		input.VisitorID,
		emailHash,
		input.CRMDealRef,
		input.Attribution,
		input.ClickIDs,
	)
	if err != nil {
		return nil, &DomainError{Code: "INVALID_LEAD", Message: err.Error()}
	}

	if err := uc.LeadRepo.Create(ctx, lead); err != nil {
		log.Printf("❌ Erro ao persistir lead: %v", err)
		return nil, &TechnicalError{Code: "LEAD_PERSIST", Message: "failed to capture lead"}
	}

	log.Printf("📝 Lead %s capturado (visitor=%s, source=%s)",
		lead.ID, lead.VisitorID, lead.Attribution.Source)

	return lead, nil
}
