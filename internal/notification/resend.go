package notification

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/loopbill/loopbill/internal/config"
	"github.com/loopbill/loopbill/internal/logger"
)

// ResendNotifier delivers reminders by email via Resend. Billing addresses
// come from the tenant directory's stored contact, passed per reminder by
// the address resolver.
type ResendNotifier struct {
	client  *resend.Client
	from    string
	resolve AddressResolver
	log     *logger.Logger
}

// AddressResolver maps a tenant to its billing contact address. Returning an
// empty string skips delivery for that tenant.
type AddressResolver func(ctx context.Context, tenantID string) string

// NewResendNotifier creates the Resend-backed notifier.
func NewResendNotifier(cfg config.NotificationConfig, resolve AddressResolver, log *logger.Logger) *ResendNotifier {
	return &ResendNotifier{
		client:  resend.NewClient(cfg.ResendAPIKey),
		from:    cfg.FromAddress,
		resolve: resolve,
		log:     log,
	}
}

func (n *ResendNotifier) SendReminders(ctx context.Context, reminders []Reminder) error {
	for _, r := range reminders {
		to := n.resolve(ctx, r.TenantID)
		if to == "" {
			n.log.Warnw("no billing contact for tenant, skipping reminder",
				"tenant_id", r.TenantID, "invoice_id", r.InvoiceID)
			continue
		}

		subject, body := renderReminder(r)
		_, err := n.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
			From:    n.from,
			To:      []string{to},
			Subject: subject,
			Text:    body,
		})
		if err != nil {
			// Delivery failures do not fail the run; the next checkpoint
			// is the retry mechanism.
			n.log.Errorw("failed to send reminder email",
				"error", err, "tenant_id", r.TenantID, "invoice_id", r.InvoiceID)
		}
	}
	return nil
}

func renderReminder(r Reminder) (subject, body string) {
	amount := r.AmountUsd.StringFixed(2)
	due := r.DueAt.Format("January 2, 2006")

	switch r.Kind {
	case ReminderUpcoming:
		subject = fmt.Sprintf("Upcoming invoice: $%s due %s", amount, due)
	case ReminderDue:
		subject = fmt.Sprintf("Invoice due today: $%s", amount)
	case ReminderLastCall:
		subject = fmt.Sprintf("Final reminder: $%s invoice overdue", amount)
	}

	body = fmt.Sprintf(
		"Invoice %s for $%s USD is due on %s.\n\nYou can view and pay it from your billing page.",
		r.InvoiceID, amount, due,
	)
	return subject, body
}

// NopNotifier drops reminders. Used when notification delivery is disabled.
type NopNotifier struct{}

func (NopNotifier) SendReminders(context.Context, []Reminder) error { return nil }
