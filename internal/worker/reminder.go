package worker

import (
	"context"
	"log/slog"
	"time"

	"treasury/internal/notify"
	"treasury/internal/services"
)

// ReminderWorker fires a daily dues reminder check at a fixed local hour.
type ReminderWorker struct {
	ledger   *services.LedgerService
	notifier notify.Notifier
	hour     int
}

func NewReminderWorker(ledger *services.LedgerService, notifier notify.Notifier, hour int) *ReminderWorker {
	return &ReminderWorker{
		ledger:   ledger,
		notifier: notifier,
		hour:     hour,
	}
}

// Run blocks until the context is cancelled, waking once per day at the
// configured hour to run a reminder check across all members.
func (w *ReminderWorker) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Reminder worker started", "hour", w.hour)

	for {
		next := nextRunAfter(time.Now(), w.hour)
		timer := time.NewTimer(time.Until(next))

		select {
		case <-ctx.Done():
			timer.Stop()
			slog.InfoContext(ctx, "Reminder worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-timer.C:
			sent := w.ledger.RecordReminderCheck(ctx, w.notifier, nil)
			slog.InfoContext(ctx, "Daily reminder check finished",
				"sent", sent,
				"next_check", nextRunAfter(time.Now(), w.hour).Format(time.RFC3339))
		}
	}
}

// nextRunAfter returns the next occurrence of hour o'clock strictly after now.
func nextRunAfter(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
