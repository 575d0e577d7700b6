package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

type LeadCapturer interface {
	Execute(ctx context.Context, input usecase.CaptureLeadInput) (*entity.Lead, error)
}

type LeadHandler struct {
	useCase     LeadCapturer
	rateLimiter *RateLimiter
}


func NewLeadHandler(uc LeadCapturer) *LeadHandler {
	return &LeadHandler{
		useCase:     uc,
		rateLimiter: NewRateLimiter(10, time.Minute), // 10 req/min por IP
	}
}


type CaptureLeadRequest struct {
	Email      string `json:"email"`
	CRMDealRef string `json:"crm_deal_ref,omitempty"`

	// Click ids vêm do corpo porque vivem só na memória da página
	// (nunca em cookie): o script do front manda junto com o form
	GCLID  string `json:"gclid,omitempty"`
	GBRAID string `json:"gbraid,omitempty"`
	WBRAID string `json:"wbraid,omitempty"`
}


type CaptureLeadResponse struct {
	Success bool   `json:"success"`
	LeadID  string `json:"lead_id,omitempty"`
	Message string `json:"message,omitempty"`
}


func (h *LeadHandler) CaptureLead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()


	clientIP := getClientIP(r)
	if !h.rateLimiter.Allow(clientIP) {
		respondJSON(w, http.StatusTooManyRequests, CaptureLeadResponse{
			Success: false,
			Message: "Too many requests. Please try again later.",
		})
		return
	}


	var req CaptureLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, CaptureLeadResponse{
			Success: false,
			Message: "Invalid JSON",
		})
		return
	}


	// Identidade e atribuição vêm dos cookies via middleware;
	// click ids do corpo, com fallback pra query da requisição atual
	clicks := entity.ClickIDs{GCLID: req.GCLID, GBRAID: req.GBRAID, WBRAID: req.WBRAID}
	if clicks.Best() == "" {
		clicks = middleware.ClickIDsFrom(ctx)
	}

	input := usecase.CaptureLeadInput{
		VisitorID:   middleware.VisitorIDFrom(ctx),
		Email:       req.Email,
		CRMDealRef:  req.CRMDealRef,
		Attribution: middleware.AttributionFrom(ctx),
		ClickIDs:    clicks,
	}

	lead, err := h.useCase.Execute(ctx, input)
	if err != nil {
		if usecase.IsDomainError(err) {
			respondJSON(w, http.StatusBadRequest, CaptureLeadResponse{
				Success: false,
				Message: err.Error(),
			})
			return
		}
		respondJSON(w, http.StatusInternalServerError, CaptureLeadResponse{
			Success: false,
			Message: "Failed to capture lead",
		})
		return
	}


	respondJSON(w, http.StatusOK, CaptureLeadResponse{
		Success: true,
		LeadID:  lead.ID,
	})
}


func getClientIP(r *http.Request) string {

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	return r.RemoteAddr
}


type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
}

type visitor struct {
	count     int
	lastReset time.Time
}


func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
	}

	go rl.cleanup()
	return rl
}


func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	now := time.Now()

	if !exists {
		rl.visitors[ip] = &visitor{count: 1, lastReset: now}
		return true
	}


	if now.Sub(v.lastReset) > rl.window {
		v.count = 1
		v.lastReset = now
		return true
	}


	v.count++
	return v.count <= rl.limit
}


func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for ip, v := range rl.visitors {
			if now.Sub(v.lastReset) > rl.window*2 {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}
