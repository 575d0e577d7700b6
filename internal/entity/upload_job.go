package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status do job de upload. pending -> uploaded no sucesso;
// pending -> failed só depois de esgotar as retentativas.
const (
	JobStatusPending  = "PENDING"
	JobStatusUploaded = "UPLOADED"
	JobStatusFailed   = "FAILED"
)

// Entidade: AdsUploadJob
// Registro DURÁVEL da conversão pendente de upload pra plataforma de
// ads. A linha no banco é a fonte de verdade; a fila é só transporte.
// Carrega o hash do email (enhanced conversions) e o click id: nunca
// o email cru.
type AdsUploadJob struct {
	ID           string `json:"id"`
	ConversionID string `json:"conversion_id"`
	EmailHash    string `json:"email_hash"`
	ClickID      string `json:"click_id,omitempty"`
	Stage        string `json:"stage"`

	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewAdsUploadJob(conversionID, emailHash, clickID, stage string) (*AdsUploadJob, error) {
	if conversionID == "" {
		return nil, errors.New("conversion_id is required")
	}
	if emailHash == "" && clickID == "" {
		// Sem hash e sem click id não tem como casar a conversão na plataforma
		return nil, errors.New("email_hash or click_id is required")
	}

	return &AdsUploadJob{
		ID:           uuid.New().String(),
		ConversionID: conversionID,
		EmailHash:    emailHash,
		ClickID:      clickID,
		Stage:        stage,
		Status:       JobStatusPending,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}, nil
}


type AdsUploadJobRepositoryInterface interface {
	Create(ctx context.Context, job *AdsUploadJob) error
	FindByID(ctx context.Context, id string) (*AdsUploadJob, error)

	MarkUploaded(ctx context.Context, id string) error

	// RegisterAttempt incrementa attempts, grava o último erro e
	// devolve o contador novo pro worker decidir se retenta.
	RegisterAttempt(ctx context.Context, id, lastError string) (int, error)

	MarkFailed(ctx context.Context, id, lastError string) error

	// Touch atualiza só o updated_at (usado pela varredura pra não
	// repescar o mesmo job; não consome tentativa).
	Touch(ctx context.Context, id string) error

	// FindStalePending lista jobs PENDING parados há mais de maxAge -
	// entrega perdida no broker ou restart do processo.
	FindStalePending(ctx context.Context, maxAge time.Duration, limit int) ([]*AdsUploadJob, error)
}
