package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

type ConversionRecorder interface {
	Execute(ctx context.Context, input usecase.RecordConversionInput) (*usecase.RecordConversionOutput, error)
}

type WebhookHandler struct {
	Secret  string
	UseCase ConversionRecorder
}

func NewWebhookHandler(secret string, uc ConversionRecorder) *WebhookHandler {
	return &WebhookHandler{
		Secret:  secret,
		UseCase: uc,
	}
}

type webhookResponse struct {
	Status string `json:"status"`
}

// Handle implementa o contrato com o retry do CRM: qualquer desfecho
// depois da autenticação responde 200. Qualquer não-200 dispara
// reentrega do lado deles sem corrigir nada: payload quebrado
// continua quebrado na quinta tentativa.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// 1. Autenticação: bearer contra segredo compartilhado, comparação
	// em tempo constante. Falha aqui é o ÚNICO 401, e zero efeitos.
	if !h.authorized(r) {
		middleware.RecordWebhookOutcome("unauthorized")
		respondJSON(w, http.StatusUnauthorized, webhookResponse{Status: "unauthorized"})
		return
	}

	// 2. Parse. Payload quebrado é logado e ACEITO (200): nenhum
	// estado parcial é criado.
	var input usecase.RecordConversionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Printf("⚠️ Webhook: payload malformado do CRM: %v", err)
		middleware.RecordWebhookOutcome("malformed")
		respondJSON(w, http.StatusOK, webhookResponse{Status: "accepted"})
		return
	}

	// 3-5. Match -> dedup -> enfileira
	out, err := h.UseCase.Execute(r.Context(), input)
	if err != nil {
		// Erro técnico downstream: fica no log e nas métricas, o CRM
		// leva "accepted" mesmo assim
		log.Printf("❌ Webhook: erro ao processar deal %s: %v", input.CRMDealID, err)
		middleware.RecordIntegrationError("crm_webhook")
		respondJSON(w, http.StatusOK, webhookResponse{Status: "accepted"})
		return
	}

	if out.Outcome == usecase.OutcomeRecorded {
		middleware.RecordConversion(out.Conversion.Stage)
	}
	middleware.RecordWebhookOutcome(out.Outcome)

	respondJSON(w, http.StatusOK, webhookResponse{Status: out.Outcome})
}

func (h *WebhookHandler) authorized(r *http.Request) bool {
	if h.Secret == "" {
		// Sem segredo configurado ninguém entra (fail closed)
		return false
	}

	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(token), []byte(h.Secret)) == 1
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
