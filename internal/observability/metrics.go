package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/roumel00/skeleton")

var (
	authEventsOnce sync.Once
	authEvents     metric.Int64Counter

	repoOpsOnce sync.Once
	repoOps     metric.Int64Counter

	resetTokenOnce   sync.Once
	resetTokenEvents metric.Int64Counter
)

// RecordAuthEvent counts an authentication flow outcome, e.g.
// ("login", "success") or ("oauth_callback", "state_mismatch").
func RecordAuthEvent(ctx context.Context, flow, outcome string) {
	authEventsOnce.Do(func() {
		c, err := meter.Int64Counter("auth_events_total",
			metric.WithDescription("Authentication flow outcomes"))
		if err == nil {
			authEvents = c
		}
	})
	if authEvents == nil {
		return
	}
	authEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("flow", flow), attribute.String("outcome", outcome)))
}

// RecordRepositoryOperation counts a repository call outcome, e.g.
// ("user", "find_by_email", "not_found").
func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	repoOpsOnce.Do(func() {
		c, err := meter.Int64Counter("repository_operations_total",
			metric.WithDescription("Repository operation outcomes"))
		if err == nil {
			repoOps = c
		}
	})
	if repoOps == nil {
		return
	}
	repoOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome)))
}

// RecordResetTokenEvent counts password-reset token lifecycle events, e.g.
// ("minted"), ("consumed"), ("expired").
func RecordResetTokenEvent(ctx context.Context, event string) {
	resetTokenOnce.Do(func() {
		c, err := meter.Int64Counter("password_reset_tokens_total",
			metric.WithDescription("Password reset token lifecycle events"))
		if err == nil {
			resetTokenEvents = c
		}
	})
	if resetTokenEvents == nil {
		return
	}
	resetTokenEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("event", event)))
}
