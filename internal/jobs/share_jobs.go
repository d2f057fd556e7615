package jobs

import (
	"context"

	"fleet-erp-backend/internal/logger"
)

// SendShareExpiryReminders tells companies about unsigned share links that
// expire soon. Each token is reminded at most once.
func (jr *JobRunner) SendShareExpiryReminders() {
	jr.runWithRecovery("SendShareExpiryReminders", func(ctx context.Context) {
		count, err := jr.services.Shares.SendExpiryReminders(ctx)
		if err != nil {
			logger.Error("Failed to send share expiry reminders", "error", err)
			return
		}
		logger.Info("Sent share expiry reminders", "count", count)
	})
}
