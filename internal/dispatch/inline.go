package dispatch

import (
	"context"

	"fleet-erp-backend/internal/logger"
)

// Inline runs tasks synchronously on the caller's goroutine with no retries.
// Used by the CLI and by tests that need deterministic side effects.
type Inline struct{}

func (Inline) Submit(name string, fn func(ctx context.Context) error) error {
	if err := runWithRecovery(context.Background(), task{name: name, fn: fn}); err != nil {
		logger.Error("Inline task failed", "task", name, "error", err)
	}
	return nil
}
