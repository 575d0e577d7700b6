package entity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	// IMPORTANTE: NÃO adicione imports de usecase ou infra aqui!
)

// ErrLeadNotFound é resultado ESPERADO, não falha: deals criados
// manualmente no CRM não têm lead web correspondente.
var ErrLeadNotFound = errors.New("lead não encontrado")

// Entidade: Lead
// Criado quando o formulário da landing page é enviado.
// EmailHash é SEMPRE o SHA-256 hex do email normalizado: o endereço
// cru nunca atravessa pra registros voltados a analytics/ads.
type Lead struct {
	ID        string `json:"id"`
	VisitorID string `json:"visitor_id"`
	EmailHash string `json:"email_hash"`

	// Referência do deal que o CRM devolve na criação do lead.
	// Quando presente, é a chave de match mais forte no webhook.
	CRMDealRef string `json:"crm_deal_ref,omitempty"`

	Attribution Attribution `json:"attribution"`
	ClickIDs    ClickIDs    `json:"click_ids"`

	CreatedAt time.Time `json:"created_at"`
}

// Factory
func NewLead(visitorID, emailHash, crmDealRef string, attr Attribution, clicks ClickIDs) (*Lead, error) {
	lead := &Lead{
		ID:          uuid.New().String(),
		VisitorID:   visitorID,
		EmailHash:   emailHash,
		CRMDealRef:  crmDealRef,
		Attribution: attr,
		ClickIDs:    clicks,
		CreatedAt:   time.Now(),
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}

	return lead, nil
}

func (l *Lead) Validate() error {
	if l.VisitorID == "" {
		return errors.New("visitor_id is required")
	}
	if len(l.EmailHash) != 64 {
		return errors.New("email_hash must be a sha-256 hex digest")
	}
	return nil
}


type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error

	// Ambos devolvem ErrLeadNotFound quando não existe: o chamador
	// decide se isso é problema (pro webhook nunca é).
	FindByCRMDealRef(ctx context.Context, dealRef string) (*Lead, error)
	FindByEmailHash(ctx context.Context, emailHash string) (*Lead, error)
}
