package rules

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"runway/internal/cache"
	"runway/internal/core"
	"runway/internal/engine"
	"runway/internal/log"
)

// RuleIssue is a per-rule configuration error in a transport-friendly shape.
type RuleIssue struct {
	RuleID  string `json:"rule_id"`
	Message string `json:"message"`
}

// ForecastRequest selects the window and account figures for one forecast. A
// zero StartDate means today; a zero EndDate leaves the horizon entirely to
// the engine's sizing. Nil balance figures fall back to stored settings.
// Rules, when supplied, are forecast as-is instead of the stored rule set, so
// the endpoint doubles as a stateless what-if computation.
type ForecastRequest struct {
	Rules          []core.Rule `json:"rules,omitempty"`
	StartDate      core.Date   `json:"start_date"`
	EndDate        core.Date   `json:"end_date"`
	CurrentBalance *core.Money `json:"current_balance,omitempty"`
	SetAside       *core.Money `json:"set_aside,omitempty"`
}

// Forecast is one full simulation: the chronological ledger, its daily
// candles, per-rule completion outcomes and the money free to spend today.
type Forecast struct {
	Parameters  core.Parameters               `json:"parameters"`
	Entries     []core.LedgerEntry            `json:"entries"`
	DayByDays   []core.DayCandle              `json:"daybydays"`
	Completions map[string]*engine.Completion `json:"completions,omitempty"`
	FreeToSpend core.Money                    `json:"free_to_spend"`
	Issues      []RuleIssue                   `json:"issues,omitempty"`
}

// Service owns rule CRUD and forecast computation. Forecasts are memoized by
// input fingerprint; any rule mutation purges the cache and emits a change
// event.
type Service struct {
	repo   Repository
	events EventPublisher
	cache  *cache.LRUCache[Forecast]
	logger *log.Logger
}

func NewService(repo Repository, events EventPublisher, forecasts *cache.LRUCache[Forecast], logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(log.Config{Component: log.ComponentRules})
	}
	return &Service{
		repo:   repo,
		events: events,
		cache:  forecasts,
		logger: logger,
	}
}

// ListRules returns every stored rule.
func (s *Service) ListRules(ctx context.Context) ([]core.Rule, error) {
	return s.repo.ListRules(ctx)
}

// GetRule returns one rule by ID.
func (s *Service) GetRule(ctx context.Context, id string) (core.Rule, error) {
	return s.repo.GetRule(ctx, id)
}

// CreateRule validates and stores a new rule, assigning its ID.
func (s *Service) CreateRule(ctx context.Context, rule core.Rule) (core.Rule, error) {
	if err := rule.Validate(); err != nil {
		return core.Rule{}, err
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.Version = 1

	created, err := s.repo.CreateRule(ctx, rule)
	if err != nil {
		return core.Rule{}, fmt.Errorf("create rule: %w", err)
	}
	s.invalidate(ctx, created, log.OpCreate)
	return created, nil
}

// UpdateRule validates and replaces an existing rule.
func (s *Service) UpdateRule(ctx context.Context, rule core.Rule) (core.Rule, error) {
	if err := rule.Validate(); err != nil {
		return core.Rule{}, err
	}
	updated, err := s.repo.UpdateRule(ctx, rule)
	if err != nil {
		return core.Rule{}, fmt.Errorf("update rule: %w", err)
	}
	s.invalidate(ctx, updated, log.OpUpdate)
	return updated, nil
}

// DeleteRule removes a rule by ID.
func (s *Service) DeleteRule(ctx context.Context, id string) error {
	rule, err := s.repo.GetRule(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteRule(ctx, id); err != nil {
		return fmt.Errorf("delete rule: %w", err)
	}
	s.invalidate(ctx, rule, log.OpDelete)
	return nil
}

// GetSettings returns the stored account settings.
func (s *Service) GetSettings(ctx context.Context) (Settings, error) {
	return s.repo.GetSettings(ctx)
}

// PutSettings replaces the stored account settings.
func (s *Service) PutSettings(ctx context.Context, settings Settings) error {
	if settings.SetAside.Cents < 0 {
		return core.ErrNegativeSetAside
	}
	if err := s.repo.PutSettings(ctx, settings); err != nil {
		return fmt.Errorf("put settings: %w", err)
	}
	if s.cache != nil {
		s.cache.Purge()
	}
	return nil
}

// Forecast runs the full pipeline over the stored rules.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) (*Forecast, error) {
	params, err := s.resolveParameters(ctx, req)
	if err != nil {
		return nil, err
	}
	allRules := req.Rules
	if allRules == nil {
		allRules, err = s.repo.ListRules(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rules: %w", err)
		}
	}

	// Simulate at least as far as the horizon sizing demands so finite
	// patterns are never silently truncated.
	params.EndDate = core.MaxDate(params.EndDate, engine.ComputeMinimumEndDate(allRules, params))

	// Goal and loan rules stretch the window further: the ledger must cover
	// each one's last payment (or how far the search went), plus the day
	// after for charts.
	completions, err := s.searchCompletions(ctx, allRules, params)
	if err != nil {
		return nil, err
	}
	for _, c := range completions {
		day := c.SearchedUpTo
		if c.Result == engine.CompletionComplete {
			day = c.Day
		}
		params.EndDate = core.MaxDate(params.EndDate, day.AddDays(1))
	}

	key := Fingerprint(allRules, params)
	if s.cache != nil && key != "" {
		if hit, ok := s.cache.Get(key); ok {
			s.logger.DebugContext(ctx, "forecast cache hit", log.FieldFingerprint, key)
			return &hit, nil
		}
	}

	entries, rejected := engine.ComputeTransactions(allRules, params)
	candles := engine.ComputeDayByDays(entries, params)

	freeToSpend := core.CentsOf(params.CurrentBalance.Cents - params.SetAside.Cents)
	if len(candles) > 0 {
		freeToSpend = candles[0].WorkingCapital.Close
	}

	issues := make([]RuleIssue, 0, len(rejected))
	for _, re := range rejected {
		issues = append(issues, RuleIssue{RuleID: re.RuleID, Message: re.Err.Error()})
	}

	f := &Forecast{
		Parameters:  params,
		Entries:     entries,
		DayByDays:   candles,
		Completions: completions,
		FreeToSpend: freeToSpend,
		Issues:      issues,
	}
	if s.cache != nil && key != "" {
		s.cache.Set(key, *f)
	}
	s.logger.InfoContext(ctx, "forecast computed",
		log.FieldStartDate, params.StartDate.String(),
		log.FieldEndDate, params.EndDate.String(),
		log.FieldEntryCount, len(entries))
	return f, nil
}

// Completion searches for the last payment day of a single goal or loan rule.
func (s *Service) Completion(ctx context.Context, ruleID string, start, end core.Date) (*engine.Completion, error) {
	rule, err := s.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = core.Today()
	}
	return engine.ComputeLastPaymentDay(rule, start, end)
}

// searchCompletions runs the per-rule completion searches concurrently; each
// is an independent single-rule simulation.
func (s *Service) searchCompletions(ctx context.Context, allRules []core.Rule, params core.Parameters) (map[string]*engine.Completion, error) {
	var (
		mu          sync.Mutex
		completions map[string]*engine.Completion
	)
	g, ctx := errgroup.WithContext(ctx)
	for _, rule := range allRules {
		if rule.Kind != core.KindSavingsGoal && rule.Kind != core.KindLoan {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c, err := engine.ComputeLastPaymentDay(rule, params.StartDate, params.EndDate)
			if err != nil {
				// Config errors are reported through the ledger pass.
				return nil
			}
			if c == nil {
				return nil
			}
			mu.Lock()
			if completions == nil {
				completions = make(map[string]*engine.Completion)
			}
			completions[rule.ID] = c
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return completions, nil
}

func (s *Service) resolveParameters(ctx context.Context, req ForecastRequest) (core.Parameters, error) {
	params := core.Parameters{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if params.StartDate.IsZero() {
		params.StartDate = core.Today()
	}

	if req.CurrentBalance != nil {
		params.CurrentBalance = *req.CurrentBalance
	}
	if req.SetAside != nil {
		params.SetAside = *req.SetAside
	}
	if req.CurrentBalance == nil || req.SetAside == nil {
		settings, err := s.repo.GetSettings(ctx)
		if err != nil {
			return core.Parameters{}, fmt.Errorf("get settings: %w", err)
		}
		if req.CurrentBalance == nil {
			params.CurrentBalance = settings.CurrentBalance
		}
		if req.SetAside == nil {
			params.SetAside = settings.SetAside
		}
	}

	if err := params.Validate(); err != nil {
		return core.Parameters{}, err
	}
	return params, nil
}

// invalidate drops memoized forecasts and announces the mutation. Publish
// failures are logged, never surfaced: the rule change itself succeeded.
func (s *Service) invalidate(ctx context.Context, rule core.Rule, op string) {
	if s.cache != nil {
		s.cache.Purge()
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishRuleChanged(ctx, rule.ID, op, rule.Version); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish rule change",
			log.FieldRuleID, rule.ID,
			log.FieldOperation, op,
			log.FieldError, err.Error())
	}
}
