package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

// memStore backs the service tests with an in-memory debt/debtor store that
// copies on read, like the real repositories do.
type memStore struct {
	mu sync.Mutex

	debts   map[int64]*domain.Debt
	debtors map[int64]*domain.Debtor

	nextDebtID   int64
	nextDebtorID int64

	updateErr error
}

func newMemStore() *memStore {
	return &memStore{
		debts:   make(map[int64]*domain.Debt),
		debtors: make(map[int64]*domain.Debtor),
	}
}

func (m *memStore) addDebtor(d *domain.Debtor) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDebtorID++
	d.ID = m.nextDebtorID
	m.debtors[d.ID] = d
	return d.ID
}

func (m *memStore) addDebt(d *domain.Debt) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDebtID++
	d.ID = m.nextDebtID
	m.debts[d.ID] = d
	return d.ID
}

func copyDebt(d *domain.Debt) *domain.Debt {
	cp := *d
	cp.Payments = append([]domain.Payment(nil), d.Payments...)
	return &cp
}

func (m *memStore) Create(ctx context.Context, d *domain.Debt) (int64, error) {
	return m.addDebt(copyDebt(d)), nil
}

func (m *memStore) GetByID(ctx context.Context, id int64) (*domain.Debt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyDebt(d), nil
}

func (m *memStore) withDebtor(d *domain.Debt) repository.DebtWithDebtor {
	dw := repository.DebtWithDebtor{Debt: *copyDebt(d)}
	if debtor, ok := m.debtors[d.DebtorID]; ok {
		dw.DebtorName = debtor.Name
		dw.DebtorPhone = debtor.Phone
		dw.DebtorBlacklisted = debtor.IsBlacklisted
	}
	return dw
}

func (m *memStore) GetWithDebtor(ctx context.Context, id int64) (*repository.DebtWithDebtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	dw := m.withDebtor(d)
	return &dw, nil
}

func (m *memStore) Update(ctx context.Context, d *domain.Debt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.debts[d.ID]; !ok {
		return domain.ErrNotFound
	}
	m.debts[d.ID] = copyDebt(d)
	return nil
}

func (m *memStore) AddPayment(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[p.DebtID]
	if !ok {
		return domain.ErrNotFound
	}
	d.Payments = append(d.Payments, *p)
	return nil
}

func (m *memStore) list(match func(d *domain.Debt, debtor *domain.Debtor) bool) []repository.DebtWithDebtor {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.DebtWithDebtor
	for _, d := range m.debts {
		debtor := m.debtors[d.DebtorID]
		if match(d, debtor) {
			out = append(out, m.withDebtor(d))
		}
	}
	return out
}

func (m *memStore) ListDueForReminder(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error) {
	return m.list(func(d *domain.Debt, debtor *domain.Debtor) bool {
		if debtor != nil && debtor.IsBlacklisted {
			return false
		}
		return domain.DueForReminder(d, now)
	}), nil
}

func (m *memStore) ListDueForEscalation(ctx context.Context, now time.Time, p domain.ReminderPolicy) ([]repository.DebtWithDebtor, error) {
	return m.list(func(d *domain.Debt, debtor *domain.Debtor) bool {
		if debtor != nil && debtor.IsBlacklisted {
			return false
		}
		return domain.DueForEscalation(d, now, p)
	}), nil
}

func (m *memStore) ListOpenByPhone(ctx context.Context, phone string) ([]repository.DebtWithDebtor, error) {
	return m.list(func(d *domain.Debt, debtor *domain.Debtor) bool {
		return debtor != nil && debtor.Phone == phone && d.IsActive && d.Status.Open()
	}), nil
}

func (m *memStore) ListPendingPastDue(ctx context.Context, now time.Time) ([]repository.DebtWithDebtor, error) {
	return m.list(func(d *domain.Debt, debtor *domain.Debtor) bool {
		return d.IsActive && d.Status == domain.StatusPending && d.DueDate.Before(now)
	}), nil
}

func (m *memStore) ListActive(ctx context.Context) ([]repository.DebtWithDebtor, error) {
	return m.list(func(d *domain.Debt, debtor *domain.Debtor) bool {
		return d.IsActive
	}), nil
}

func (m *memStore) CountByStatus(ctx context.Context) (map[domain.DebtStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.DebtStatus]int)
	for _, d := range m.debts {
		if d.IsActive {
			counts[d.Status]++
		}
	}
	return counts, nil
}

func (m *memStore) SoftDelete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debts[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.IsActive = false
	return nil
}

func (m *memStore) CreateDebtor(ctx context.Context, d *domain.Debtor) (int64, error) {
	return m.addDebtor(d), nil
}

func (m *memStore) GetDebtorByID(ctx context.Context, id int64) (*domain.Debtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debtors[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) GetDebtorByPhone(ctx context.Context, phone string) (*domain.Debtor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.debtors {
		if d.Phone == phone {
			cp := *d
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memStore) UpdateHistory(ctx context.Context, d *domain.Debtor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.debtors[d.ID]
	if !ok {
		return domain.ErrNotFound
	}
	stored.History = d.History
	stored.CreditRating = d.CreditRating
	return nil
}

func (m *memStore) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.debtors[id]
	if !ok {
		return domain.ErrNotFound
	}
	d.IsBlacklisted = blacklisted
	return nil
}

// debtorFacade adapts memStore to the DebtorRepository interface, whose method
// names collide with the debt side.
type debtorFacade struct{ store *memStore }

func (f debtorFacade) Create(ctx context.Context, d *domain.Debtor) (int64, error) {
	return f.store.CreateDebtor(ctx, d)
}

func (f debtorFacade) GetByID(ctx context.Context, id int64) (*domain.Debtor, error) {
	return f.store.GetDebtorByID(ctx, id)
}

func (f debtorFacade) GetByPhone(ctx context.Context, phone string) (*domain.Debtor, error) {
	return f.store.GetDebtorByPhone(ctx, phone)
}

func (f debtorFacade) UpdateHistory(ctx context.Context, d *domain.Debtor) error {
	return f.store.UpdateHistory(ctx, d)
}

func (f debtorFacade) SetBlacklisted(ctx context.Context, id int64, blacklisted bool) error {
	return f.store.SetBlacklisted(ctx, id, blacklisted)
}

type sentMessage struct {
	Address string
	Text    string
}

// stubChannel records outbound messages; fail makes every Send error.
type stubChannel struct {
	mu   sync.Mutex
	sent []sentMessage
	fail error
}

func (c *stubChannel) Address(phone string) string { return "whatsapp:+" + phone }

func (c *stubChannel) Send(ctx context.Context, address, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return "", c.fail
	}
	c.sent = append(c.sent, sentMessage{Address: address, Text: text})
	return "SM_test", nil
}

func (c *stubChannel) IsReachable(ctx context.Context, address string) bool { return true }

func (c *stubChannel) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// stubIntel returns fixed text, or errors on everything when fail is set.
type stubIntel struct {
	fail           error
	classification *domain.Classification
}

func (i *stubIntel) text(s string) (string, error) {
	if i.fail != nil {
		return "", i.fail
	}
	return s, nil
}

func (i *stubIntel) GenerateReminder(ctx context.Context, debtorName string, debt *domain.Debt, level int) (string, error) {
	return i.text("generated reminder")
}

func (i *stubIntel) GenerateConfirmation(ctx context.Context, debtorName string, debt *domain.Debt, p *domain.Payment) (string, error) {
	return i.text("generated confirmation")
}

func (i *stubIntel) GenerateEscalation(ctx context.Context, debtorName string, debt *domain.Debt, escType domain.EscalationType) (string, error) {
	return i.text("generated escalation")
}

func (i *stubIntel) GenerateNegotiationReply(ctx context.Context, debtorName string, debts []domain.Debt, inbound string) (string, error) {
	return i.text("generated negotiation")
}

func (i *stubIntel) Classify(ctx context.Context, text string) (domain.Classification, error) {
	if i.fail != nil {
		return domain.Classification{}, i.fail
	}
	if i.classification != nil {
		return *i.classification, nil
	}
	return domain.FallbackClassification(), nil
}

// stubLogs collects reminder and response log entries.
type stubLogs struct {
	mu        sync.Mutex
	reminders []domain.ReminderLog
	responses []domain.DebtorResponseLog
}

func (l *stubLogs) Insert(ctx context.Context, entry *domain.ReminderLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reminders = append(l.reminders, *entry)
	return nil
}

func (l *stubLogs) ListByDebt(ctx context.Context, debtID int64) ([]domain.ReminderLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.ReminderLog
	for _, e := range l.reminders {
		if e.DebtID == debtID {
			out = append(out, e)
		}
	}
	return out, nil
}

type stubResponseLogs struct {
	stubLogs
}

func (l *stubResponseLogs) Insert(ctx context.Context, entry *domain.DebtorResponseLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.responses = append(l.responses, *entry)
	return nil
}

func (l *stubResponseLogs) ListByDebt(ctx context.Context, debtID int64) ([]domain.DebtorResponseLog, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []domain.DebtorResponseLog
	for _, e := range l.responses {
		if e.DebtID == debtID {
			out = append(out, e)
		}
	}
	return out, nil
}

// stubClaims simulates the cross-instance reminder claim.
type stubClaims struct {
	mu     sync.Mutex
	keys   map[string]bool
	refuse bool
}

func (c *stubClaims) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refuse {
		return false, nil
	}
	if c.keys == nil {
		c.keys = make(map[string]bool)
	}
	if c.keys[key] {
		return false, nil
	}
	c.keys[key] = true
	return true, nil
}

func testPolicy() domain.ReminderPolicy {
	return domain.ReminderPolicy{IntervalHours: 24, MaxAttempts: 5, EscalationAfterDays: 30}
}

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
