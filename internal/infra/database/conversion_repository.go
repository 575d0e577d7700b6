package database

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/lib/pq"
	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type ConversionRepository struct {
	DB *sql.DB
}

func NewConversionRepository(db *sql.DB) *ConversionRepository {
	return &ConversionRepository{DB: db}
}

// CreateIfAbsent usa a constraint UNIQUE (lead_id, stage) pro
// check-and-insert ser UMA operação atômica. Read-then-write aqui
// perderia a corrida entre entregas duplicadas do CRM em instâncias
// diferentes.
func (r *ConversionRepository) CreateIfAbsent(ctx context.Context, conv *entity.Conversion) (*entity.Conversion, bool, error) {
	insert := `
		INSERT INTO conversions (id, lead_id, stage, crm_deal_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lead_id, stage) DO NOTHING
		RETURNING id, lead_id, stage, crm_deal_id, created_at
	`

	created := &entity.Conversion{}
	err := r.DB.QueryRowContext(ctx, insert,
		conv.ID, conv.LeadID, conv.Stage, conv.CRMDealID, conv.CreatedAt,
	).Scan(&created.ID, &created.LeadID, &created.Stage, &created.CRMDealID, &created.CreatedAt)

	if err == nil {
		return created, true, nil
	}

	// ErrNoRows = o ON CONFLICT engoliu o insert: já existia
	if !errors.Is(err, sql.ErrNoRows) {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// Constraint disparou fora do ON CONFLICT (corrida rara);
			// trata igual a duplicata
		} else {
			log.Printf("❌ Erro crítico no banco (conversions): %v", err)
			return nil, false, err
		}
	}

	existing, err := r.findByLeadStage(ctx, conv.LeadID, conv.Stage)
	if err != nil {
		return nil, false, err
	}

	return existing, false, nil
}

func (r *ConversionRepository) findByLeadStage(ctx context.Context, leadID, stage string) (*entity.Conversion, error) {
	query := `
		SELECT id, lead_id, stage, crm_deal_id, created_at
		FROM conversions
		WHERE lead_id = $1 AND stage = $2
	`

	conv := &entity.Conversion{}
	err := r.DB.QueryRowContext(ctx, query, leadID, stage).Scan(
		&conv.ID, &conv.LeadID, &conv.Stage, &conv.CRMDealID, &conv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return conv, nil
}
