package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
	"debtster-collector/internal/service"
	"debtster-collector/internal/transport/auth"
	ws "debtster-collector/internal/transport/websocket"
)

type Ledger interface {
	RegisterDebtor(ctx context.Context, d *domain.Debtor) (int64, error)
	GetDebtor(ctx context.Context, debtorID int64) (*domain.Debtor, error)
	SetBlacklisted(ctx context.Context, debtorID int64, blacklisted bool) error
	CreateDebt(ctx context.Context, d *domain.Debt) (int64, error)
	GetDebt(ctx context.Context, debtID int64) (*repository.DebtWithDebtor, error)
	DeleteDebt(ctx context.Context, debtID int64) error
	RecordPayment(ctx context.Context, debtID int64, amount float64, date time.Time, method domain.PaymentMethod, verifier *string) (*domain.Payment, error)
	WriteOff(ctx context.Context, debtID int64) error
	Cancel(ctx context.Context, debtID int64) error
	FindDueForReminder(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error)
	Stats(ctx context.Context) (map[domain.DebtStatus]int, error)
}

type Outreach interface {
	SendReminder(ctx context.Context, debtID int64, level int) (*service.SendResult, error)
	SendBulkReminders(ctx context.Context, criteria service.BulkCriteria, level int) (*service.BulkResult, error)
	SendPaymentConfirmation(ctx context.Context, debtID int64, payment *domain.Payment) error
	EscalateDebt(ctx context.Context, debtID int64, escType domain.EscalationType) error
	ReminderHistory(ctx context.Context, debtID int64) ([]domain.ReminderLog, error)
}

type Responses interface {
	HandleInbound(ctx context.Context, rawPhone, text string) error
	ResponseHistory(ctx context.Context, debtID int64) ([]domain.DebtorResponseLog, error)
}

type Reports interface {
	StartPortfolioReport(ctx context.Context) (string, error)
	GetReports(ctx context.Context) ([]service.ReportStatus, error)
	GetReport(ctx context.Context, reportID string) (*service.ReportStatus, error)
}

type Users interface {
	List(ctx context.Context) ([]domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type Handler struct {
	ledger    Ledger
	outreach  Outreach
	responses Responses
	reports   Reports
	users     Users
	hub       *ws.Hub
	log       *zap.SugaredLogger
}

func NewHandler(
	ledger Ledger,
	outreach Outreach,
	responses Responses,
	reports Reports,
	users Users,
	hub *ws.Hub,
	log *zap.SugaredLogger,
) *Handler {
	return &Handler{
		ledger:    ledger,
		outreach:  outreach,
		responses: responses,
		reports:   reports,
		users:     users,
		hub:       hub,
		log:       log,
	}
}

func (h *Handler) InitRouter(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	r.Get("/health", h.health)

	// Twilio posts here; token auth does not apply
	r.Post("/webhook/whatsapp", h.inboundWebhook)

	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}

		r.Route("/debtors", func(r chi.Router) {
			r.Post("/", h.registerDebtor)
			r.Get("/{debtor_id}", h.getDebtor)
			r.Post("/{debtor_id}/blacklist", h.setBlacklist)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Post("/", h.createDebt)
			r.Get("/due", h.listDue)
			r.Get("/stats", h.stats)
			r.Get("/{debt_id}", h.getDebt)
			r.Delete("/{debt_id}", h.deleteDebt)
			r.Post("/{debt_id}/payments", h.recordPayment)
			r.Post("/{debt_id}/remind", h.sendReminder)
			r.Post("/{debt_id}/escalate", h.escalate)
			r.Post("/{debt_id}/write-off", h.writeOff)
			r.Post("/{debt_id}/cancel", h.cancel)
			r.Get("/{debt_id}/reminders", h.reminderLogs)
			r.Get("/{debt_id}/responses", h.responseLogs)
		})

		r.Post("/reminders/bulk", h.bulkReminders)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.listUsers)
			r.Get("/{user_id}", h.getUser)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Post("/", h.startReport)
			r.Get("/", h.listReports)
			r.Get("/{report_id}", h.getReport)
		})

		if h.hub != nil {
			r.Get("/ws", h.serveWS)
		}
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	Success(w, "ok", nil)
}

func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	userID, err := auth.GetUserID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}
	h.hub.HandleWebSocket(w, r, userID)
}

// serviceError maps domain sentinels to HTTP statuses; anything unexpected is
// logged and hidden behind a 500.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		ErrorNotFound(w, "not found")
	case errors.Is(err, domain.ErrValidation):
		ErrorBadRequest(w, err.Error())
	default:
		h.log.Errorw("request failed", "error", err)
		ErrorInternal(w, "internal error")
	}
}
