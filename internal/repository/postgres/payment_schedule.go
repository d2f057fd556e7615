package postgres

import (
	"context"
	"fmt"
	"strings"

	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository"
)

type paymentScheduleRepository struct {
	db repository.DBTX
}

func NewPaymentScheduleRepository(db repository.DBTX) repository.PaymentScheduleRepository {
	return &paymentScheduleRepository{db: db}
}

// CreateBatch inserts every entry with a single multi-row INSERT
func (r *paymentScheduleRepository) CreateBatch(ctx context.Context, entries []domain.PaymentScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}

	const cols = 6
	var sb strings.Builder
	sb.WriteString(`INSERT INTO payment_schedules (contract_id, round, due_date, amount, vat, status) VALUES `)
	args := make([]any, 0, len(entries)*cols)
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4, base+5, base+6)
		args = append(args, e.ContractID, e.Round, e.DueDate, e.Amount, e.VAT, e.Status)
	}
	sb.WriteString(` RETURNING id`)

	logger.DatabaseCall("INSERT", "payment_schedules", "rows", len(entries))
	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err)
		return mapError(err, "payment schedule")
	}
	defer rows.Close()

	i := 0
	for rows.Next() {
		if i < len(entries) {
			if err := rows.Scan(&entries[i].ID); err != nil {
				return err
			}
		}
		i++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	logger.DatabaseResult("INSERT", int64(i), nil)
	return nil
}

func (r *paymentScheduleRepository) ListByContract(ctx context.Context, contractID int32) ([]domain.PaymentScheduleEntry, error) {
	query := `SELECT id, contract_id, round, due_date, amount, vat, status FROM payment_schedules WHERE contract_id = $1 ORDER BY round ASC`
	rows, err := r.db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PaymentScheduleEntry
	for rows.Next() {
		var e domain.PaymentScheduleEntry
		if err := rows.Scan(&e.ID, &e.ContractID, &e.Round, &e.DueDate, &e.Amount, &e.VAT, &e.Status); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
