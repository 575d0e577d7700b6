package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xavierca1/ligue-attribution/internal/entity"
)

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}


func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (
			id, visitor_id, email_hash, crm_deal_ref,
			utm_source, utm_medium, utm_campaign, utm_term, utm_content,
			landing_page, referrer,
			gclid, gbraid, wbraid,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.VisitorID,
		lead.EmailHash,
		nullString(lead.CRMDealRef),
		nullString(lead.Attribution.Source),
		nullString(lead.Attribution.Medium),
		nullString(lead.Attribution.Campaign),
		nullString(lead.Attribution.Term),
		nullString(lead.Attribution.Content),
		nullString(lead.Attribution.LandingPage),
		nullString(lead.Attribution.Referrer),
		nullString(lead.ClickIDs.GCLID),
		nullString(lead.ClickIDs.GBRAID),
		nullString(lead.ClickIDs.WBRAID),
		lead.CreatedAt,
	)

	return err
}

func (r *LeadRepository) FindByCRMDealRef(ctx context.Context, dealRef string) (*entity.Lead, error) {
	return r.findBy(ctx, "crm_deal_ref = $1", dealRef)
}

// FindByEmailHash devolve o lead MAIS RECENTE com esse hash: a mesma
// pessoa pode preencher o formulário mais de uma vez.
func (r *LeadRepository) FindByEmailHash(ctx context.Context, emailHash string) (*entity.Lead, error) {
	return r.findBy(ctx, "email_hash = $1", emailHash)
}

func (r *LeadRepository) findBy(ctx context.Context, where, arg string) (*entity.Lead, error) {
	query := `
		SELECT
			id, visitor_id, email_hash, COALESCE(crm_deal_ref, ''),
			COALESCE(utm_source, ''), COALESCE(utm_medium, ''), COALESCE(utm_campaign, ''),
			COALESCE(utm_term, ''), COALESCE(utm_content, ''),
			COALESCE(landing_page, ''), COALESCE(referrer, ''),
			COALESCE(gclid, ''), COALESCE(gbraid, ''), COALESCE(wbraid, ''),
			created_at
		FROM leads
		WHERE ` + where + `
		ORDER BY created_at DESC
		LIMIT 1
	`

	lead := &entity.Lead{}
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(
		&lead.ID,
		&lead.VisitorID,
		&lead.EmailHash,
		&lead.CRMDealRef,
		&lead.Attribution.Source,
		&lead.Attribution.Medium,
		&lead.Attribution.Campaign,
		&lead.Attribution.Term,
		&lead.Attribution.Content,
		&lead.Attribution.LandingPage,
		&lead.Attribution.Referrer,
		&lead.ClickIDs.GCLID,
		&lead.ClickIDs.GBRAID,
		&lead.ClickIDs.WBRAID,
		&lead.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}

	return lead, nil
}


func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
