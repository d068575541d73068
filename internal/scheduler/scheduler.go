// Package scheduler drives the periodic sweeps: reminders, escalations, daily
// maintenance and the weekly portfolio report.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"debtster-collector/internal/domain"
	"debtster-collector/internal/service"
)

type Config struct {
	ReminderInterval   time.Duration
	EscalationInterval time.Duration
	DailyInterval      time.Duration
	ReportInterval     time.Duration

	InterMessageDelay time.Duration
	Timezone          string
}

// Scheduler owns the background tickers. Each sweep is sequential and
// isolated per item: one failing debt never stops the rest of the cycle, but
// a failing selection query abandons the cycle until the next tick.
type Scheduler struct {
	ledger   *service.LedgerService
	outreach *service.OutreachService
	reports  *service.ReportService

	cfg Config
	loc *time.Location
	log *zap.SugaredLogger
}

func New(
	ledger *service.LedgerService,
	outreach *service.OutreachService,
	reports *service.ReportService,
	cfg Config,
	log *zap.SugaredLogger,
) *Scheduler {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Warnw("unknown scheduler timezone, using UTC", "timezone", cfg.Timezone, "error", err)
		loc = time.UTC
	}

	return &Scheduler{
		ledger:   ledger,
		outreach: outreach,
		reports:  reports,
		cfg:      cfg,
		loc:      loc,
		log:      log,
	}
}

// Start launches the sweep loops. They stop when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.loop(ctx, s.cfg.ReminderInterval, "reminder", s.reminderSweep)
	go s.loop(ctx, s.cfg.EscalationInterval, "escalation", s.escalationSweep)
	go s.loop(ctx, s.cfg.DailyInterval, "daily", s.dailySweep)
	if s.reports != nil && s.cfg.ReportInterval > 0 {
		go s.loop(ctx, s.cfg.ReportInterval, "report", s.reportSweep)
	}
}

func (s *Scheduler) loop(ctx context.Context, interval time.Duration, name string, sweep func(ctx context.Context)) {
	if interval <= 0 {
		s.log.Warnw("sweep disabled", "sweep", name)
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Infow("sweep scheduled", "sweep", name, "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Infow("sweep stopped", "sweep", name)
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// reminderSweep sends one reminder to every debt whose next reminder date has
// arrived. Each debt is re-validated at dispatch time: the send queue may be
// minutes old by the time the throttle reaches the tail.
func (s *Scheduler) reminderSweep(ctx context.Context) {
	now := time.Now().In(s.loc)

	due, err := s.ledger.FindDueForReminder(ctx, now)
	if err != nil {
		s.log.Errorw("reminder sweep: selection failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Infow("reminder sweep", "due", len(due))

	sent := 0
	for i := range due {
		if i > 0 {
			if err := sleepCtx(ctx, s.cfg.InterMessageDelay); err != nil {
				return
			}
		}

		debt := &due[i].Debt
		if !domain.DueForReminder(debt, time.Now().In(s.loc)) {
			continue
		}

		res, err := s.outreach.SendReminder(ctx, debt.ID, debt.NextLevel())
		if err != nil {
			s.log.Errorw("reminder sweep: send failed", "debt_id", debt.ID, "error", err)
			continue
		}
		if res.Sent {
			sent++
		}
	}
	s.log.Infow("reminder sweep done", "due", len(due), "sent", sent)
}

// escalationSweep hands off debts that ran out of reminder attempts or sat
// overdue past the threshold.
func (s *Scheduler) escalationSweep(ctx context.Context) {
	now := time.Now().In(s.loc)

	due, err := s.ledger.FindDueForEscalation(ctx, now)
	if err != nil {
		s.log.Errorw("escalation sweep: selection failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.log.Infow("escalation sweep", "due", len(due))

	for i := range due {
		if i > 0 {
			if err := sleepCtx(ctx, s.cfg.InterMessageDelay); err != nil {
				return
			}
		}

		debt := &due[i].Debt
		if !domain.DueForEscalation(debt, time.Now().In(s.loc), s.ledger.Policy()) {
			continue
		}

		if err := s.outreach.EscalateDebt(ctx, debt.ID, domain.EscalationCollectionAgency); err != nil {
			s.log.Errorw("escalation sweep: escalate failed", "debt_id", debt.ID, "error", err)
		}
	}
}

// dailySweep repairs statuses that drifted while nothing wrote to the debt
// (pending past due with no payment) and logs the portfolio breakdown.
func (s *Scheduler) dailySweep(ctx context.Context) {
	now := time.Now().In(s.loc)

	updated, err := s.ledger.RecomputeStale(ctx, now)
	if err != nil {
		s.log.Errorw("daily sweep: recompute failed", "error", err)
		return
	}

	stats, err := s.ledger.Stats(ctx)
	if err != nil {
		s.log.Errorw("daily sweep: stats failed", "error", err)
		return
	}
	s.log.Infow("daily sweep done", "statuses_repaired", updated, "portfolio", stats)
}

func (s *Scheduler) reportSweep(ctx context.Context) {
	reportID, err := s.reports.StartPortfolioReport(ctx)
	if err != nil {
		s.log.Errorw("report sweep: start failed", "error", err)
		return
	}
	s.log.Infow("report sweep started", "report", reportID)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
