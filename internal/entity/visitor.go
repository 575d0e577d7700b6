package entity

import (
	"time"

	"github.com/google/uuid"
)

// Entidade: Visitor
// O id mora no cookie do navegador; o servidor só guarda ele como
// chave estrangeira em Lead/Conversion. Imutável depois de criado.
type Visitor struct {
	ID          string    `json:"id"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

func NewVisitor() *Visitor {
	return &Visitor{
		ID:          uuid.New().String(),
		FirstSeenAt: time.Now(),
	}
}

// Value Object: Attribution (pacote UTM first-touch)
// Capturado UMA vez na primeira visita. Visitas seguintes com UTMs
// diferentes NÃO sobrescrevem: preserva o canal de aquisição original.
type Attribution struct {
	Source   string `json:"utm_source,omitempty"`
	Medium   string `json:"utm_medium,omitempty"`
	Campaign string `json:"utm_campaign,omitempty"`
	Term     string `json:"utm_term,omitempty"`
	Content  string `json:"utm_content,omitempty"`

	LandingPage string `json:"landing_page,omitempty"`
	Referrer    string `json:"referrer,omitempty"`
}

// Empty diz se nenhum dos cinco campos UTM foi capturado ainda.
// Basta UM presente para o pacote inteiro contar como capturado.
func (a Attribution) Empty() bool {
	return a.Source == "" && a.Medium == "" && a.Campaign == "" &&
		a.Term == "" && a.Content == ""
}

// Value Object: ClickIDs
// Identificadores de clique da plataforma de ads (gclid etc).
// Escopo de sessão em memória APENAS: nunca vão pra cookie nem pra
// storage do dispositivo (decisão de privacidade/consentimento).
type ClickIDs struct {
	GCLID  string `json:"gclid,omitempty"`
	GBRAID string `json:"gbraid,omitempty"`
	WBRAID string `json:"wbraid,omitempty"`
}

// Best devolve o identificador mais forte disponível pro upload.
func (c ClickIDs) Best() string {
	if c.GCLID != "" {
		return c.GCLID
	}
	if c.GBRAID != "" {
		return c.GBRAID
	}
	return c.WBRAID
}
