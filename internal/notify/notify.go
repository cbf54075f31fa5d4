// Package notify defines the outbound notification collaborator surface.
// Actual delivery (email, SMS, chat) lives outside this process; the ledger
// only hands a composed message to whatever Notifier it was wired with.
package notify

import (
	"context"
	"log/slog"

	"treasury/internal/core"
)

// Notifier delivers a reminder message to a member contact.
type Notifier interface {
	Send(ctx context.Context, contact string, kind core.ContactKind, message string) error
}

// LogNotifier is the default collaborator: it records the reminder instead of
// delivering it. Useful for deployments without a delivery channel and in
// tests.
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, contact string, kind core.ContactKind, message string) error {
	slog.InfoContext(ctx, "Reminder composed",
		"contact", contact,
		"contact_kind", kind,
		"message", message)
	return nil
}
