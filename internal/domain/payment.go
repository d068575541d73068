package domain

import "time"

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodEWallet      PaymentMethod = "e_wallet"
	MethodOther        PaymentMethod = "other"
)

type Payment struct {
	ID          string
	DebtID      int64
	Amount      float64
	PaymentDate time.Time
	Method      PaymentMethod

	// VerifiedBy names the collector who confirmed the payment, if any.
	VerifiedBy *string

	CreatedAt *time.Time
}
