package handlers

import (
	"net/http"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
)

type AttributionHandler struct{}

func NewAttributionHandler() *AttributionHandler {
	return &AttributionHandler{}
}

type AttributionResponse struct {
	VisitorID   string             `json:"visitor_id"`
	Attribution entity.Attribution `json:"attribution"`
	ClickIDs    entity.ClickIDs    `json:"click_ids"`
}

// Handle devolve pro script da página o que o middleware capturou
// NESTA requisição: id do visitante, pacote first-touch e os click
// ids da URL atual (que o front guarda em memória de sessão pra
// mandar junto com o form).
func (h *AttributionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	respondJSON(w, http.StatusOK, AttributionResponse{
		VisitorID:   middleware.VisitorIDFrom(ctx),
		Attribution: middleware.AttributionFrom(ctx),
		ClickIDs:    middleware.ClickIDsFrom(ctx),
	})
}
