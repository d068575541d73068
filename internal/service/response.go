package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"debtster-collector/internal/clients"
	"debtster-collector/internal/domain"
	"debtster-collector/internal/repository"
)

// ResponseLogRepository is the append-only inbound audit trail.
type ResponseLogRepository interface {
	Insert(ctx context.Context, l *domain.DebtorResponseLog) error
	ListByDebt(ctx context.Context, debtID int64) ([]domain.DebtorResponseLog, error)
}

// ResponseService turns inbound debtor messages into classified logs,
// operator notifications, a reply, and sometimes an escalation.
type ResponseService struct {
	debts    DebtRepository
	logs     ResponseLogRepository
	outreach *OutreachService
	channel  MessageChannel
	intel    TextIntelligence
	tmpl     *clients.TemplateIntelligence
	events   *clients.EventNotifier

	policy domain.ReminderPolicy
	log    *zap.SugaredLogger
}

func NewResponseService(
	debts DebtRepository,
	logs ResponseLogRepository,
	outreach *OutreachService,
	channel MessageChannel,
	intel TextIntelligence,
	events *clients.EventNotifier,
	policy domain.ReminderPolicy,
	log *zap.SugaredLogger,
) *ResponseService {
	return &ResponseService{
		debts:    debts,
		logs:     logs,
		outreach: outreach,
		channel:  channel,
		intel:    intel,
		tmpl:     clients.NewTemplateIntelligence(),
		events:   events,
		policy:   policy,
		log:      log,
	}
}

// HandleInbound processes one raw inbound message. It never returns an error
// for business reasons (unknown sender, classifier failure, reply failure);
// those are logged and absorbed so the webhook listener stays healthy. Only
// storage errors on the core path surface.
func (s *ResponseService) HandleInbound(ctx context.Context, rawPhone, text string) error {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		s.log.Warnw("inbound from unparseable address", "raw", rawPhone, "error", err)
		return nil
	}

	debts, err := s.debts.ListOpenByPhone(ctx, phone)
	if err != nil {
		return err
	}
	if len(debts) == 0 {
		// unknown sender or nothing open; nothing is written
		s.log.Debugw("inbound with no open debts", "phone", phone)
		return nil
	}

	classification, err := s.intel.Classify(ctx, text)
	if err != nil {
		s.log.Warnw("classification failed, using fallback", "phone", phone, "error", err)
		classification = domain.FallbackClassification()
	}

	now := time.Now()
	for i := range debts {
		entry := &domain.DebtorResponseLog{
			ID:             uuid.NewString(),
			DebtID:         debts[i].ID,
			Phone:          phone,
			Message:        text,
			Classification: classification,
			ReceivedAt:     now,
		}
		if err := s.logs.Insert(ctx, entry); err != nil {
			s.log.Errorw("append response log", "debt_id", debts[i].ID, "error", err)
		}
		s.events.NotifyInboundResponse(ctx, &debts[i].Debt, classification)
	}

	s.reply(ctx, phone, debts, classification, text)

	if classification.SuggestedAction == domain.ActionEscalate {
		s.escalateEligible(ctx, debts, now)
	}

	s.log.Infow("inbound handled",
		"phone", phone,
		"debts", len(debts),
		"intent", classification.Intent,
		"action", classification.SuggestedAction,
	)
	return nil
}

// reply picks the response text by intent and sends it. Fixed copy covers the
// intents that never need generated content; everything else goes through the
// intelligence with the template as fallback.
func (s *ResponseService) reply(ctx context.Context, phone string, debts []repository.DebtWithDebtor, c domain.Classification, inbound string) {
	if debts[0].DebtorBlacklisted {
		return
	}
	debtorName := debts[0].DebtorName

	var text string
	switch c.Intent {
	case domain.IntentPaymentPromise:
		text = clients.PaymentPromiseReply(debtorName)
	case domain.IntentAcknowledgment:
		text = clients.AcknowledgmentReply(debtorName)
	default:
		plain := make([]domain.Debt, len(debts))
		for i := range debts {
			plain[i] = debts[i].Debt
		}
		var err error
		text, err = s.intel.GenerateNegotiationReply(ctx, debtorName, plain, inbound)
		if err != nil {
			s.log.Warnw("reply generation failed, using template", "phone", phone, "error", err)
			text, _ = s.tmpl.GenerateNegotiationReply(ctx, debtorName, plain, inbound)
		}
	}

	if _, err := s.channel.Send(ctx, s.channel.Address(phone), text); err != nil {
		s.log.Errorw("send inbound reply", "phone", phone, "error", err)
	}
}

// escalateEligible escalates only the debts that independently qualify; the
// classifier's suggestion alone never escalates a debt that is not due.
func (s *ResponseService) escalateEligible(ctx context.Context, debts []repository.DebtWithDebtor, now time.Time) {
	for i := range debts {
		if !domain.DueForEscalation(&debts[i].Debt, now, s.policy) {
			continue
		}
		if err := s.outreach.EscalateDebt(ctx, debts[i].ID, domain.EscalationCollectionAgency); err != nil {
			s.log.Errorw("escalate from inbound", "debt_id", debts[i].ID, "error", err)
		}
	}
}

// ResponseHistory exposes the inbound audit trail for one debt.
func (s *ResponseService) ResponseHistory(ctx context.Context, debtID int64) ([]domain.DebtorResponseLog, error) {
	return s.logs.ListByDebt(ctx, debtID)
}
