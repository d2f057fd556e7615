package jobs

import (
	"context"

	"fleet-erp-backend/internal/logger"
)

// RetryFailedNotifications re-sends outbox emails whose backoff has elapsed
// and pending rows that were never delivered
func (jr *JobRunner) RetryFailedNotifications() {
	jr.runWithRecovery("RetryFailedNotifications", func(ctx context.Context) {
		stats, err := jr.services.Notifications.RetryDue(ctx)
		if err != nil {
			logger.Error("Failed to retry notifications", "error", err)
			return
		}
		if stats.Attempted == 0 {
			logger.Debug("No notifications due for retry")
			return
		}
		logger.Info("Retried notifications", "attempted", stats.Attempted, "sent", stats.Sent, "failed", stats.Failed)
	})
}
