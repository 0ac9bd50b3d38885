package rules_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"runway/internal/cache"
	"runway/internal/core"
	"runway/internal/engine"
	"runway/internal/rules"
	"runway/internal/rules/memory"
)

type publishedEvent struct {
	RuleID  string
	Op      string
	Version int64
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (f *fakePublisher) PublishRuleChanged(_ context.Context, ruleID, op string, version int64) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{RuleID: ruleID, Op: op, Version: version})
	return nil
}

func newTestService(t *testing.T) (*rules.Service, *memory.Store, *fakePublisher, *cache.LRUCache[rules.Forecast]) {
	t.Helper()
	store := memory.New()
	publisher := &fakePublisher{}
	forecasts := cache.NewLRUCache[rules.Forecast](16, time.Minute)
	return rules.NewService(store, publisher, forecasts, nil), store, publisher, forecasts
}

func weeklyExpense(name string, cents int64) core.Rule {
	return core.Rule{
		Name:  name,
		Kind:  core.KindExpense,
		Value: core.CentsOf(cents),
		Recurrence: &core.RecurrenceSpec{
			Freq:      core.Weekly,
			ByWeekday: []time.Weekday{time.Monday},
		},
	}
}

func forecastRequest() rules.ForecastRequest {
	balance := core.CentsOf(100000)
	setAside := core.CentsOf(0)
	return rules.ForecastRequest{
		StartDate:      core.NewDate(2024, 5, 19),
		EndDate:        core.NewDate(2024, 6, 19),
		CurrentBalance: &balance,
		SetAside:       &setAside,
	}
}

func TestServiceCreateRule(t *testing.T) {
	ctx := context.Background()
	svc, _, publisher, _ := newTestService(t)

	created, err := svc.CreateRule(ctx, weeklyExpense("Rent", -90000))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if created.ID == "" {
		t.Error("created rule has no ID")
	}
	if created.Version != 1 {
		t.Errorf("created version = %d, want 1", created.Version)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("published %d events, want 1", len(publisher.events))
	}
	if e := publisher.events[0]; e.RuleID != created.ID || e.Op != "create" || e.Version != 1 {
		t.Errorf("event = %+v", e)
	}
}

func TestServiceCreateRuleRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	svc, _, publisher, _ := newTestService(t)

	bad := weeklyExpense("", -1000)
	if _, err := svc.CreateRule(ctx, bad); !errors.Is(err, core.ErrEmptyName) {
		t.Errorf("error = %v, want ErrEmptyName", err)
	}
	if len(publisher.events) != 0 {
		t.Error("invalid rule published an event")
	}
}

func TestServiceUpdateBumpsVersionAndPublishes(t *testing.T) {
	ctx := context.Background()
	svc, _, publisher, _ := newTestService(t)

	created, err := svc.CreateRule(ctx, weeklyExpense("Rent", -90000))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	created.Value = core.CentsOf(-95000)
	updated, err := svc.UpdateRule(ctx, created)
	if err != nil {
		t.Fatalf("UpdateRule: %v", err)
	}
	if updated.Version != 2 {
		t.Errorf("updated version = %d, want 2", updated.Version)
	}
	last := publisher.events[len(publisher.events)-1]
	if last.Op != "update" || last.Version != 2 {
		t.Errorf("last event = %+v", last)
	}
}

func TestServiceForecast(t *testing.T) {
	ctx := context.Background()
	svc, _, _, forecasts := newTestService(t)

	if _, err := svc.CreateRule(ctx, weeklyExpense("Rent", -1000)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	f, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(f.Issues) != 0 {
		t.Fatalf("issues = %v", f.Issues)
	}

	// The horizon never stops at the requested window.
	if !f.Parameters.EndDate.After(core.NewDate(2024, 6, 19).Time) {
		t.Errorf("simulated end = %s, want past the requested end", f.Parameters.EndDate)
	}
	if len(f.Entries) < 5 {
		t.Fatalf("got %d entries, want at least the five Mondays in the window", len(f.Entries))
	}
	if len(f.DayByDays) == 0 {
		t.Fatal("no day candles")
	}
	if got := f.DayByDays[0].Date.String(); got != "2024-05-19" {
		t.Errorf("first candle date = %s, want 2024-05-19", got)
	}

	// Expense-only ledgers bottom out at the final balance.
	final := f.Entries[len(f.Entries)-1]
	if f.FreeToSpend.Cents != final.Balance.Cents {
		t.Errorf("free to spend = %d, want %d", f.FreeToSpend.Cents, final.Balance.Cents)
	}

	if forecasts.Size() != 1 {
		t.Errorf("cache size = %d, want 1", forecasts.Size())
	}
}

func TestServiceForecastMemoized(t *testing.T) {
	ctx := context.Background()
	svc, _, _, forecasts := newTestService(t)

	if _, err := svc.CreateRule(ctx, weeklyExpense("Rent", -1000)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	first, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	second, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast (repeat): %v", err)
	}
	if forecasts.Size() != 1 {
		t.Errorf("cache size = %d, want 1 after repeat", forecasts.Size())
	}
	if len(first.Entries) != len(second.Entries) {
		t.Errorf("repeat returned %d entries, want %d", len(second.Entries), len(first.Entries))
	}
}

func TestServiceMutationPurgesForecastCache(t *testing.T) {
	ctx := context.Background()
	svc, _, _, forecasts := newTestService(t)

	created, err := svc.CreateRule(ctx, weeklyExpense("Rent", -1000))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := svc.Forecast(ctx, forecastRequest()); err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if forecasts.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", forecasts.Size())
	}

	if err := svc.DeleteRule(ctx, created.ID); err != nil {
		t.Fatalf("DeleteRule: %v", err)
	}
	if forecasts.Size() != 0 {
		t.Errorf("cache size after delete = %d, want 0", forecasts.Size())
	}
}

func TestServiceForecastCompletions(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	goal := core.Rule{
		Name:     "Vacation fund",
		Kind:     core.KindSavingsGoal,
		Value:    core.CentsOf(-1000),
		Progress: core.CentsOf(90200),
		Goal:     core.CentsOf(100000),
		Recurrence: &core.RecurrenceSpec{
			Freq:      core.Weekly,
			ByWeekday: []time.Weekday{time.Monday},
		},
	}
	created, err := svc.CreateRule(ctx, goal)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	f, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	c, ok := f.Completions[created.ID]
	if !ok {
		t.Fatalf("no completion for rule %s", created.ID)
	}
	if c.Result != engine.CompletionComplete {
		t.Fatalf("completion result = %s, want complete", c.Result)
	}
	if c.Day.String() != "2024-07-22" {
		t.Errorf("completion day = %s, want 2024-07-22", c.Day)
	}
}

func TestServiceForecastCoversCompletionDay(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	// 100 weekly payments: done on 2026-04-13, far past the 400-day floor.
	goal := core.Rule{
		Name:  "House deposit",
		Kind:  core.KindSavingsGoal,
		Value: core.CentsOf(-1000),
		Goal:  core.CentsOf(100000),
		Recurrence: &core.RecurrenceSpec{
			Freq:      core.Weekly,
			ByWeekday: []time.Weekday{time.Monday},
		},
	}
	created, err := svc.CreateRule(ctx, goal)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	f, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	c, ok := f.Completions[created.ID]
	if !ok {
		t.Fatalf("no completion for rule %s", created.ID)
	}
	if c.Day.String() != "2026-04-13" {
		t.Fatalf("completion day = %s, want 2026-04-13", c.Day)
	}
	// The window stretches to the day after the last payment.
	if f.Parameters.EndDate.String() != "2026-04-14" {
		t.Errorf("simulated end = %s, want 2026-04-14", f.Parameters.EndDate)
	}
	if len(f.Entries) != 100 {
		t.Fatalf("got %d entries, want all 100 payments", len(f.Entries))
	}
	final := f.Entries[len(f.Entries)-1]
	if !final.IsLastPayment || final.Day.String() != "2026-04-13" {
		t.Errorf("final entry = %s last=%v, want 2026-04-13 flagged", final.Day, final.IsLastPayment)
	}
}

func TestServiceForecastCoversSearchedHorizonForUnderwaterLoan(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	// Payments never outrun the interest; the search gives up at ten years.
	loan := core.Rule{
		Name:               "Underwater loan",
		Kind:               core.KindLoan,
		Value:              core.CentsOf(-100),
		Balance:            core.CentsOf(1000000),
		APR:                0.20,
		CompoundingsYearly: 12,
		Recurrence: &core.RecurrenceSpec{
			Freq:      core.Weekly,
			ByWeekday: []time.Weekday{time.Monday},
		},
	}
	created, err := svc.CreateRule(ctx, loan)
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	f, err := svc.Forecast(ctx, forecastRequest())
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}

	c, ok := f.Completions[created.ID]
	if !ok {
		t.Fatalf("no completion for rule %s", created.ID)
	}
	if c.Result != engine.CompletionIncomplete {
		t.Fatalf("completion result = %s, want incomplete", c.Result)
	}
	if c.SearchedUpTo.String() != "2034-05-19" {
		t.Fatalf("searched up to = %s, want 2034-05-19", c.SearchedUpTo)
	}
	if f.Parameters.EndDate.String() != "2034-05-20" {
		t.Errorf("simulated end = %s, want 2034-05-20", f.Parameters.EndDate)
	}
}

func TestServiceCompletionRejectsOpenEndedRules(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	created, err := svc.CreateRule(ctx, weeklyExpense("Rent", -1000))
	if err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if _, err := svc.Completion(ctx, created.ID, core.NewDate(2024, 5, 19), core.NewDate(2024, 6, 19)); err == nil {
		t.Error("expected error for an expense rule")
	}
}

func TestServiceSettings(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t)

	if err := svc.PutSettings(ctx, rules.Settings{SetAside: core.CentsOf(-1)}); !errors.Is(err, core.ErrNegativeSetAside) {
		t.Errorf("error = %v, want ErrNegativeSetAside", err)
	}

	want := rules.Settings{
		CurrentBalance: core.CentsOf(300000),
		SetAside:       core.CentsOf(50000),
	}
	if err := svc.PutSettings(ctx, want); err != nil {
		t.Fatalf("PutSettings: %v", err)
	}
	got, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got != want {
		t.Errorf("settings = %+v, want %+v", got, want)
	}
}
