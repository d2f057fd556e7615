package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// PaymentScheduleEntry is one installment. Round 0 is the deposit.
type PaymentScheduleEntry struct {
	ID         int32         `json:"id"`
	ContractID int32         `json:"contract_id"`
	Round      int           `json:"round"`
	DueDate    time.Time     `json:"due_date"`
	Amount     int64         `json:"amount"` // VAT included
	VAT        int64         `json:"vat"`
	Status     PaymentStatus `json:"status"`
}
