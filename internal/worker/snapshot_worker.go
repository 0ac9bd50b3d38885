// Package worker keeps persisted forecast snapshots current: it recomputes on
// rule change events and on a cron schedule, since a forecast anchored to
// "today" drifts as midnight passes even when no rule changed.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"runway/internal/amqp"
	"runway/internal/rules"
	"runway/internal/storage"
)

// keepSnapshots bounds snapshot history so the table does not grow without
// limit.
const keepSnapshots = 30

type (
	// Forecaster computes a full forecast from the stored rules.
	Forecaster interface {
		Forecast(ctx context.Context, req rules.ForecastRequest) (*rules.Forecast, error)
	}

	// SnapshotStore persists computed forecasts.
	SnapshotStore interface {
		SaveSnapshot(ctx context.Context, s storage.Snapshot) (int64, error)
		PruneSnapshots(ctx context.Context, keep int) (int64, error)
	}
)

// SnapshotWorker recomputes and persists the forecast.
type SnapshotWorker struct {
	forecaster Forecaster
	store      SnapshotStore
}

func NewSnapshotWorker(forecaster Forecaster, store SnapshotStore) *SnapshotWorker {
	return &SnapshotWorker{forecaster: forecaster, store: store}
}

// HandleRuleChanged processes a single rule change message. The message only
// tells us something changed; the worker always recomputes from the full
// current rule set, so duplicate or out-of-order deliveries are harmless.
func (w *SnapshotWorker) HandleRuleChanged(ctx context.Context, msg *amqp.RuleChangedMessage) error {
	slog.InfoContext(ctx, "Processing rule change message",
		"rule_id", msg.RuleID,
		"op", msg.Op,
		"version", msg.Version)
	return w.Refresh(ctx)
}

// Refresh recomputes the forecast with default parameters and persists it.
func (w *SnapshotWorker) Refresh(ctx context.Context) error {
	forecast, err := w.forecaster.Forecast(ctx, rules.ForecastRequest{})
	if err != nil {
		return fmt.Errorf("compute forecast: %w", err)
	}

	payload, err := json.Marshal(forecast)
	if err != nil {
		return fmt.Errorf("marshal forecast: %w", err)
	}
	sum := sha256.Sum256(payload)

	id, err := w.store.SaveSnapshot(ctx, storage.Snapshot{
		Fingerprint: hex.EncodeToString(sum[:]),
		StartDate:   forecast.Parameters.StartDate,
		EndDate:     forecast.Parameters.EndDate,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if pruned, err := w.store.PruneSnapshots(ctx, keepSnapshots); err != nil {
		slog.WarnContext(ctx, "Failed to prune old snapshots", "error", err)
	} else if pruned > 0 {
		slog.DebugContext(ctx, "Pruned old snapshots", "count", pruned)
	}

	slog.InfoContext(ctx, "Forecast snapshot refreshed",
		"snapshot_id", id,
		"start_date", forecast.Parameters.StartDate.String(),
		"end_date", forecast.Parameters.EndDate.String(),
		"entry_count", len(forecast.Entries))
	return nil
}

// Schedule starts a cron-driven refresh; "@midnight" keeps the persisted
// forecast anchored to the current day. The returned cron runs until stopped.
func (w *SnapshotWorker) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if err := w.Refresh(ctx); err != nil {
			slog.ErrorContext(ctx, "Scheduled snapshot refresh failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule refresh %q: %w", spec, err)
	}
	c.Start()
	slog.InfoContext(ctx, "Snapshot refresh scheduled", "schedule", spec)
	return c, nil
}
