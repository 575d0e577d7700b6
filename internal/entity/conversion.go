package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Estágios que geram conversão. Qualquer outro estágio vindo do CRM
// é reconhecido com 200 e ignorado.
const (
	StageQualified = "qualified"
	StageClosed    = "closed"
)

func ValidStage(stage string) bool {
	return stage == StageQualified || stage == StageClosed
}

// Entidade: Conversion
// Invariante: no máximo UMA conversão por (lead_id, stage). O CRM
// reentrega o mesmo evento várias vezes numa janela curta: a
// unicidade vem de constraint do banco, não de lock em memória.
type Conversion struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Stage     string    `json:"stage"`
	CRMDealID string    `json:"crm_deal_id"`
	CreatedAt time.Time `json:"created_at"`
}

func NewConversion(leadID, stage, crmDealID string) (*Conversion, error) {
	if leadID == "" {
		return nil, errors.New("lead_id is required")
	}
	if !ValidStage(stage) {
		return nil, errors.New("stage must be qualified or closed")
	}

	return &Conversion{
		ID:        uuid.New().String(),
		LeadID:    leadID,
		Stage:     stage,
		CRMDealID: crmDealID,
		CreatedAt: time.Now(),
	}, nil
}


type ConversionRepositoryInterface interface {
	// CreateIfAbsent é o check-and-insert ATÔMICO. created=false
	// devolve a conversão já existente (no-op idempotente).
	CreateIfAbsent(ctx context.Context, conv *Conversion) (*Conversion, bool, error)
}
