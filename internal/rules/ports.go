// Package rules orchestrates rule management and forecast computation on top
// of the pure engine: persistence, memoization, change events and the
// concurrent completion searches a full forecast needs.
package rules

import (
	"context"

	"runway/internal/core"
)

// Settings are the account-level figures forecasts default to when a request
// does not carry its own.
type Settings struct {
	CurrentBalance core.Money `json:"current_balance"`
	SetAside       core.Money `json:"set_aside"`
}

// Ports for outbound adapters.
type (
	// Repository persists rules and account settings.
	Repository interface {
		ListRules(ctx context.Context) ([]core.Rule, error)
		GetRule(ctx context.Context, id string) (core.Rule, error)
		CreateRule(ctx context.Context, rule core.Rule) (core.Rule, error)
		// UpdateRule replaces the stored rule and bumps its version.
		UpdateRule(ctx context.Context, rule core.Rule) (core.Rule, error)
		DeleteRule(ctx context.Context, id string) error

		GetSettings(ctx context.Context) (Settings, error)
		PutSettings(ctx context.Context, settings Settings) error
	}

	// EventPublisher announces rule mutations to interested consumers.
	EventPublisher interface {
		PublishRuleChanged(ctx context.Context, ruleID, op string, version int64) error
	}
)
