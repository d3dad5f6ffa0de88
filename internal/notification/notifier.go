// Package notification is the delivery collaborator for payment reminders.
// The billing service only decides which invoices match a reminder
// checkpoint; everything past that point is this package's problem.
package notification

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReminderKind identifies which checkpoint a reminder belongs to.
type ReminderKind string

const (
	// ReminderUpcoming fires 7 days before the due date.
	ReminderUpcoming ReminderKind = "upcoming"
	// ReminderDue fires on the due date.
	ReminderDue ReminderKind = "due"
	// ReminderLastCall fires graceDays-1 days after the due date.
	ReminderLastCall ReminderKind = "last_call"
)

// Reminder is one matched invoice handed off for delivery.
type Reminder struct {
	Kind      ReminderKind
	TenantID  string
	InvoiceID string
	AmountUsd decimal.Decimal
	DueAt     time.Time
}

// Notifier delivers payment reminders. Implementations must be safe to call
// with an empty slice.
type Notifier interface {
	SendReminders(ctx context.Context, reminders []Reminder) error
}
