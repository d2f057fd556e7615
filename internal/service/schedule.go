package service

import (
	"time"

	"github.com/shopspring/decimal"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/utils"
)

var vatRate = decimal.New(1, -1) // 10%

// VATFor returns 10% of amount rounded half away from zero to the won
func VATFor(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(vatRate).Round(0).IntPart()
}

// BuildPaymentSchedule derives the installment plan of a contract.
// Round 0 is the deposit and only exists when deposit > 0. Rounds 1..termMonths
// fall due start + i calendar months, clamped to the end of shorter months.
func BuildPaymentSchedule(contractID int32, start time.Time, termMonths int, monthlyRent, deposit int64) []domain.PaymentScheduleEntry {
	entries := make([]domain.PaymentScheduleEntry, 0, termMonths+1)
	if deposit > 0 {
		entries = append(entries, domain.PaymentScheduleEntry{
			ContractID: contractID,
			Round:      0,
			DueDate:    start,
			Amount:     deposit,
			VAT:        0,
			Status:     domain.PaymentStatusUnpaid,
		})
	}

	vat := VATFor(monthlyRent)
	for i := 1; i <= termMonths; i++ {
		entries = append(entries, domain.PaymentScheduleEntry{
			ContractID: contractID,
			Round:      i,
			DueDate:    utils.AddMonths(start, i),
			Amount:     monthlyRent + vat,
			VAT:        vat,
			Status:     domain.PaymentStatusUnpaid,
		})
	}
	return entries
}
