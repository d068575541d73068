package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
	"debtster-collector/internal/service"
)

type stubLedger struct {
	Ledger

	debt          *repository.DebtWithDebtor
	createdDebt   *domain.Debt
	createdDebtor *domain.Debtor
	err           error
}

func (s *stubLedger) RegisterDebtor(ctx context.Context, d *domain.Debtor) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.createdDebtor = d
	return 1, nil
}

func (s *stubLedger) CreateDebt(ctx context.Context, d *domain.Debt) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	d.Status = domain.StatusPending
	s.createdDebt = d
	return 10, nil
}

func (s *stubLedger) GetDebt(ctx context.Context, debtID int64) (*repository.DebtWithDebtor, error) {
	if s.debt == nil {
		return nil, domain.ErrNotFound
	}
	return s.debt, nil
}

func (s *stubLedger) SetBlacklisted(ctx context.Context, debtorID int64, blacklisted bool) error {
	return s.err
}

type stubOutreach struct {
	Outreach

	result    *service.SendResult
	escalated []domain.EscalationType
	err       error
}

func (s *stubOutreach) SendReminder(ctx context.Context, debtID int64, level int) (*service.SendResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubOutreach) EscalateDebt(ctx context.Context, debtID int64, escType domain.EscalationType) error {
	s.escalated = append(s.escalated, escType)
	return s.err
}

type stubResponses struct {
	Responses

	inbound []string
}

func (s *stubResponses) HandleInbound(ctx context.Context, rawPhone, text string) error {
	s.inbound = append(s.inbound, rawPhone+"|"+text)
	return nil
}

func newTestHandler(ledger *stubLedger, outreach *stubOutreach, responses *stubResponses) *Handler {
	return NewHandler(ledger, outreach, responses, nil, nil, nil, zap.NewNop().Sugar())
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterDebtor(t *testing.T) {
	ledger := &stubLedger{}
	h := newTestHandler(ledger, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debtors", map[string]any{
		"name":  "Budi",
		"phone": "081234567890",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ledger.createdDebtor)
	assert.Equal(t, "Budi", ledger.createdDebtor.Name)
}

func TestRegisterDebtor_MissingFields(t *testing.T) {
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debtors", map[string]any{"name": "Budi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDebt(t *testing.T) {
	ledger := &stubLedger{}
	h := newTestHandler(ledger, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debts", map[string]any{
		"debtor_id":      1,
		"invoice_number": "INV-1",
		"amount":         1000000,
		"due_date":       "2026-09-30",
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, ledger.createdDebt)
	assert.Equal(t, "INV-1", ledger.createdDebt.InvoiceNumber)
}

func TestCreateDebt_BadDate(t *testing.T) {
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debts", map[string]any{
		"debtor_id": 1, "invoice_number": "INV-1", "amount": 100, "due_date": "30/09/2026",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDebt_NotFound(t *testing.T) {
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/debts/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetDebt(t *testing.T) {
	ledger := &stubLedger{debt: &repository.DebtWithDebtor{
		Debt: domain.Debt{
			ID: 5, InvoiceNumber: "INV-5", Amount: 100, Currency: "IDR",
			DueDate: time.Now(), Status: domain.StatusOverdue, IsActive: true,
		},
		DebtorName:  "Budi",
		DebtorPhone: "6281234567890",
	}}
	h := newTestHandler(ledger, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/debts/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "INV-5", data["invoice_number"])
	assert.Equal(t, "Budi", data["debtor_name"])
}

func TestSendReminder_LevelValidation(t *testing.T) {
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debts/1/remind", map[string]any{"level": 9})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendReminder(t *testing.T) {
	outreach := &stubOutreach{result: &service.SendResult{DebtID: 1, Sent: true, MessageID: "SM_1"}}
	h := newTestHandler(&stubLedger{}, outreach, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debts/1/remind", map[string]any{"level": 3})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["sent"])
}

func TestEscalate_TypeValidation(t *testing.T) {
	outreach := &stubOutreach{}
	h := newTestHandler(&stubLedger{}, outreach, &stubResponses{})
	router := h.InitRouter(nil)

	rec := doJSON(t, router, http.MethodPost, "/debts/1/escalate", map[string]any{"type": "shout"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, outreach.escalated)

	rec = doJSON(t, router, http.MethodPost, "/debts/1/escalate", map[string]any{"type": "legal"})
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, outreach.escalated, 1)
	assert.Equal(t, domain.EscalationLegal, outreach.escalated[0])
}

func TestInboundWebhook(t *testing.T) {
	responses := &stubResponses{}
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, responses)
	router := h.InitRouter(nil)

	form := "From=whatsapp%3A%2B6281234567890&Body=besok+saya+bayar"
	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewBufferString(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, responses.inbound, 1)
	assert.Equal(t, "6281234567890|besok saya bayar", responses.inbound[0])
}

func TestInboundWebhook_MissingFields(t *testing.T) {
	responses := &stubResponses{}
	h := newTestHandler(&stubLedger{}, &stubOutreach{}, responses)
	router := h.InitRouter(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhook/whatsapp", bytes.NewBufferString("From=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, responses.inbound)
}
