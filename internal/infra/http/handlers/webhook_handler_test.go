package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-attribution/internal/entity"
	"github.com/xavierca1/ligue-attribution/internal/usecase"
)

type MockConversionRecorder struct {
	mock.Mock
}

func (m *MockConversionRecorder) Execute(ctx context.Context, input usecase.RecordConversionInput) (*usecase.RecordConversionOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.RecordConversionOutput), args.Error(1)
}

const testSecret = "segredo-do-webhook"

func webhookRequest(t *testing.T, body any, bearer string) *http.Request {
	t.Helper()

	raw, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/webhook/crm", bytes.NewReader(raw))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return req
}

// TestWebhookAuth - bearer ausente ou errado = 401 e ZERO efeitos
func TestWebhookAuth(t *testing.T) {
	recorder := new(MockConversionRecorder)
	handler := NewWebhookHandler(testSecret, recorder)

	payload := map[string]string{"deal_id": "D1", "stage": "qualified"}

	t.Run("Missing Header", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Handle(w, webhookRequest(t, payload, ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Wrong Token", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Handle(w, webhookRequest(t, payload, "token-errado"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "unauthorized")
	})

	t.Run("Malformed Header", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := webhookRequest(t, payload, "")
		req.Header.Set("Authorization", testSecret) // sem o prefixo Bearer

		handler.Handle(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Empty Secret Fails Closed", func(t *testing.T) {
		open := NewWebhookHandler("", recorder)
		w := httptest.NewRecorder()
		open.Handle(w, webhookRequest(t, payload, ""))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	// Nenhum dos casos acima pode ter chegado no usecase
	recorder.AssertNotCalled(t, "Execute")
}

// TestWebhookMalformedPayload - JSON quebrado: loga e responde 200
// (não-200 viraria tempestade de retry do CRM), nenhum estado criado
func TestWebhookMalformedPayload(t *testing.T) {
	recorder := new(MockConversionRecorder)
	handler := NewWebhookHandler(testSecret, recorder)

	req := httptest.NewRequest("POST", "/webhook/crm", bytes.NewReader([]byte("{nao é json")))
	req.Header.Set("Authorization", "Bearer "+testSecret)
	w := httptest.NewRecorder()

	handler.Handle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accepted")
	recorder.AssertNotCalled(t, "Execute")
}

// TestWebhookNoMatch - sem lead correspondente: 200 com no_matching_lead
func TestWebhookNoMatch(t *testing.T) {
	recorder := new(MockConversionRecorder)
	recorder.On("Execute", mock.Anything, mock.Anything).Return(
		&usecase.RecordConversionOutput{Outcome: usecase.OutcomeNoMatch}, nil,
	)

	handler := NewWebhookHandler(testSecret, recorder)
	w := httptest.NewRecorder()

	handler.Handle(w, webhookRequest(t, map[string]string{
		"deal_id": "D1",
		"stage":   "qualified",
		"email":   "User@Example.com ",
	}, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, usecase.OutcomeNoMatch, resp["status"])
}

// TestWebhookRecorded - lead casou: 200 com recorded
func TestWebhookRecorded(t *testing.T) {
	conv, _ := entity.NewConversion("lead-1", entity.StageQualified, "D1")

	recorder := new(MockConversionRecorder)
	recorder.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.RecordConversionInput) bool {
		return in.CRMDealID == "D1" && in.Stage == "qualified"
	})).Return(&usecase.RecordConversionOutput{Outcome: usecase.OutcomeRecorded, Conversion: conv}, nil)

	handler := NewWebhookHandler(testSecret, recorder)
	w := httptest.NewRecorder()

	handler.Handle(w, webhookRequest(t, map[string]string{
		"deal_id": "D1",
		"stage":   "qualified",
		"email":   "User@Example.com ",
	}, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), usecase.OutcomeRecorded)
	recorder.AssertExpectations(t)
}

// TestWebhookDuplicate - segunda entrega responde 200 already_recorded
func TestWebhookDuplicate(t *testing.T) {
	conv, _ := entity.NewConversion("lead-1", entity.StageQualified, "D1")

	recorder := new(MockConversionRecorder)
	recorder.On("Execute", mock.Anything, mock.Anything).Return(
		&usecase.RecordConversionOutput{Outcome: usecase.OutcomeDuplicate, Conversion: conv}, nil,
	)

	handler := NewWebhookHandler(testSecret, recorder)
	w := httptest.NewRecorder()

	handler.Handle(w, webhookRequest(t, map[string]string{"deal_id": "D1", "stage": "qualified"}, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), usecase.OutcomeDuplicate)
}

// TestWebhookTechnicalErrorStays200 - banco caiu DEPOIS de autenticar
// e parsear: loga e responde 200 mesmo assim (contrato com o retry)
func TestWebhookTechnicalErrorStays200(t *testing.T) {
	recorder := new(MockConversionRecorder)
	recorder.On("Execute", mock.Anything, mock.Anything).Return(
		nil, &usecase.TechnicalError{Code: "LEAD_LOOKUP", Message: "db down"},
	)

	handler := NewWebhookHandler(testSecret, recorder)
	w := httptest.NewRecorder()

	handler.Handle(w, webhookRequest(t, map[string]string{"deal_id": "D1", "stage": "qualified"}, testSecret))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "accepted")
}
