package usecase

import (
	"context"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/queue"
)

type QueueProducerInterface interface {
	PublishUpload(ctx context.Context, payload queue.UploadPayload) error
}

type CaptureLeadInput struct {
	VisitorID  string `json:"visitor_id"`
	Email      string `json:"email"`
	CRMDealRef string `json:"crm_deal_ref,omitempty"`

	Attribution entity.Attribution `json:"attribution"`
	ClickIDs    entity.ClickIDs    `json:"click_ids"`
}

type RecordConversionInput struct {
	CRMDealID   string `json:"deal_id"`
	Stage       string `json:"stage"`
	Email       string `json:"email,omitempty"`
	ExternalRef string `json:"external_ref,omitempty"`
}

// Desfechos terminais do webhook. Todos menos "unauthorized" (que nem
// chega aqui) respondem 200 pro CRM.
const (
	OutcomeRecorded     = "recorded"
	OutcomeDuplicate    = "already_recorded"
	OutcomeNoMatch      = "no_matching_lead"
	OutcomeIgnoredStage = "stage_ignored"
)

type RecordConversionOutput struct {
	Outcome    string             `json:"status"`
	Conversion *entity.Conversion `json:"-"`
}

type CaptureLeadUseCase struct {
	LeadRepo entity.LeadRepositoryInterface
}

type RecordConversionUseCase struct {
	LeadRepo       entity.LeadRepositoryInterface
	ConversionRepo entity.ConversionRepositoryInterface
	JobRepo        entity.AdsUploadJobRepositoryInterface
	Producer       QueueProducerInterface

	// Política de desempate quando o payload traz deal ref E email
	// (o CRM não documenta o desempate, então fica configurável)
	DealRefFirst bool
}
