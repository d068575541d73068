package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

type BusinessType string

const (
	BusinessIndividual    BusinessType = "individual"
	BusinessSmallBusiness BusinessType = "small_business"
	BusinessCorporation   BusinessType = "corporation"
	BusinessGovernment    BusinessType = "government"
	BusinessNGO           BusinessType = "ngo"
)

type CreditRating string

const (
	RatingExcellent CreditRating = "excellent"
	RatingGood      CreditRating = "good"
	RatingFair      CreditRating = "fair"
	RatingPoor      CreditRating = "poor"
	RatingUnknown   CreditRating = "unknown"
)

// PaymentHistory accumulates per-debtor payment behaviour. It is mutated only
// by the ledger when a payment is recorded or a debt is written off.
type PaymentHistory struct {
	TotalPayments     int
	OnTimePayments    int
	LatePayments      int
	DefaultedPayments int

	// AverageDelayDays is the cumulative mean of payment delays, in days.
	// On-time payments contribute zero.
	AverageDelayDays float64
}

// Record folds one classified payment into the counters.
func (h *PaymentHistory) Record(onTime bool, delayDays float64) {
	if delayDays < 0 {
		delayDays = 0
	}

	prevTotal := float64(h.TotalPayments)
	h.TotalPayments++
	if onTime {
		h.OnTimePayments++
		delayDays = 0
	} else {
		h.LatePayments++
	}

	h.AverageDelayDays = (h.AverageDelayDays*prevTotal + delayDays) / float64(h.TotalPayments)
}

// RatingThresholds are the credit-rating cutoffs. The values come from
// configuration, not from this package: the original system hard-coded them
// without a stated rationale, so they are kept tunable.
type RatingThresholds struct {
	// PoorDefaultRate: above this share of defaulted payments the rating is poor.
	PoorDefaultRate float64
	// ExcellentOnTimeRate / GoodOnTimeRate / FairOnTimeRate: minimum on-time
	// share for each tier, checked from best to worst.
	ExcellentOnTimeRate float64
	GoodOnTimeRate      float64
	FairOnTimeRate      float64
	// MinSample: below this many recorded payments the rating stays unknown.
	MinSample int
}

func DefaultRatingThresholds() RatingThresholds {
	return RatingThresholds{
		PoorDefaultRate:     0.3,
		ExcellentOnTimeRate: 0.95,
		GoodOnTimeRate:      0.8,
		FairOnTimeRate:      0.5,
		MinSample:           3,
	}
}

// Rating derives a credit rating from the history. It is a pure function;
// Debtor.CreditRating is never set directly.
func (h PaymentHistory) Rating(t RatingThresholds) CreditRating {
	if h.TotalPayments < t.MinSample {
		return RatingUnknown
	}

	total := float64(h.TotalPayments)
	if float64(h.DefaultedPayments)/total > t.PoorDefaultRate {
		return RatingPoor
	}

	onTime := float64(h.OnTimePayments) / total
	switch {
	case onTime >= t.ExcellentOnTimeRate:
		return RatingExcellent
	case onTime >= t.GoodOnTimeRate:
		return RatingGood
	case onTime >= t.FairOnTimeRate:
		return RatingFair
	default:
		return RatingPoor
	}
}

// ContactWindow is the debtor's preferred contact window, local hours.
type ContactWindow struct {
	StartHour int
	EndHour   int
	Timezone  string
}

type Debtor struct {
	ID    int64
	Name  string
	Phone string // canonical digit-only international form, unique

	Email   *string
	Company *string
	Address *string

	BusinessType  BusinessType
	CreditRating  CreditRating
	History       PaymentHistory
	IsBlacklisted bool
	IsActive      bool

	ContactWindow ContactWindow

	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// defaultCountryCode is prepended to national numbers. The portfolio is
// Indonesian; numbers arrive as "0812...", "+62812..." or bare "812...".
const defaultCountryCode = "62"

// NormalizePhone converts a raw phone number into the canonical digit-only
// international form used as the debtor key and for channel addressing.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "00"):
		digits = digits[2:]
	case strings.HasPrefix(digits, "0"):
		digits = defaultCountryCode + digits[1:]
	case strings.HasPrefix(digits, "8"):
		digits = defaultCountryCode + digits
	}

	if len(digits) < 9 || len(digits) > 15 {
		return "", fmt.Errorf("%w: phone %q", ErrValidation, raw)
	}
	return digits, nil
}
