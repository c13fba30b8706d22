package rebalance

import (
	"context"
	"fmt"
	"time"

	"github.com/tbc399/command-line-trader/broker"
	"github.com/tbc399/command-line-trader/internal/logger"
	"github.com/tbc399/command-line-trader/journal"
	"github.com/tbc399/command-line-trader/market"
	"github.com/tbc399/command-line-trader/momentum"
	"github.com/tbc399/command-line-trader/pkg/id"
)

// State is where the scheduler sits relative to the trading session.
type State int

const (
	StateAwaitingSession State = iota
	StatePreOpen
	StateSessionOpen
	StateAfterClose
)

func (s State) String() string {
	switch s {
	case StateAwaitingSession:
		return "awaiting-session"
	case StatePreOpen:
		return "pre-open"
	case StateSessionOpen:
		return "session-open"
	case StateAfterClose:
		return "after-close"
	default:
		return "unknown"
	}
}

// Notifier receives rebalance outcomes. Implementations must not block for
// long; the scheduler calls them inline.
type Notifier interface {
	RebalanceComplete(run journal.RunRecord) error
	RebalanceFailed(sessionDate string, err error) error
}

const (
	// DefaultTick is the scheduler's poll interval.
	DefaultTick = 5 * time.Second

	// DefaultPreOpenWindow is how long before the session open the universe
	// refresh window begins.
	DefaultPreOpenWindow = 10 * time.Minute

	// DefaultRebalanceHour is the exchange-local hour at which the daily
	// rebalance fires.
	DefaultRebalanceHour = 12

	// DefaultBarInterval is the intraday bar size scored by the strategy.
	DefaultBarInterval = 15 * time.Minute

	// DefaultStartSessionsBack is how many sessions before the previous
	// session the bar lookback window starts.
	DefaultStartSessionsBack = 3
)

// Config carries the scheduler's strategy parameters. Zero values take the
// package defaults.
type Config struct {
	Tick              time.Duration
	PreOpenWindow     time.Duration
	RebalanceHour     int
	Allocation        float64 // fraction of account base per position
	PortfolioSize     int
	Lookback          int
	QualityThreshold  float64
	StartSessionsBack int
}

func (c Config) tick() time.Duration {
	if c.Tick > 0 {
		return c.Tick
	}
	return DefaultTick
}

func (c Config) preOpenWindow() time.Duration {
	if c.PreOpenWindow > 0 {
		return c.PreOpenWindow
	}
	return DefaultPreOpenWindow
}

func (c Config) rebalanceHour() int {
	if c.RebalanceHour > 0 {
		return c.RebalanceHour
	}
	return DefaultRebalanceHour
}

func (c Config) portfolioSize() int {
	if c.PortfolioSize > 0 {
		return c.PortfolioSize
	}
	return momentum.DefaultPortfolioSize
}

func (c Config) lookback() int {
	if c.Lookback > 0 {
		return c.Lookback
	}
	return momentum.DefaultLookback
}

func (c Config) qualityThreshold() float64 {
	if c.QualityThreshold > 0 {
		return c.QualityThreshold
	}
	return momentum.DefaultQualityThreshold
}

func (c Config) startSessionsBack() int {
	if c.StartSessionsBack > 0 {
		return c.StartSessionsBack
	}
	return DefaultStartSessionsBack
}

// Scheduler runs the daily rebalance loop: refresh the symbol universe in
// the pre-open window, then rebalance once per session day at the
// configured hour. All scheduler state is process-local and re-derived
// after a restart.
type Scheduler struct {
	Broker   broker.Broker
	Fetcher  *momentum.Fetcher
	Universe *momentum.UniverseBuilder
	Calendar market.Calendar
	Trader   *Trader
	Journal  journal.Recorder // optional
	Notifier Notifier         // optional
	Location *time.Location   // exchange time zone, UTC if nil
	Config   Config

	// Now is the clock, overridable in tests.
	Now func() time.Time

	state         State
	universe      []string
	lastRefresh   time.Time // session date of the last universe refresh
	lastRebalance time.Time // session date of the last rebalance
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Scheduler) location() *time.Location {
	if s.Location != nil {
		return s.Location
	}
	return time.UTC
}

// State returns the scheduler's current session state.
func (s *Scheduler) State() State {
	return s.state
}

func (s *Scheduler) setState(next State) {
	if s.state != next {
		logger.Info("scheduler: %s -> %s", s.state, next)
		s.state = next
	}
}

// Run ticks the scheduler until ctx is canceled. Per-tick failures are
// logged and the loop continues; only cancellation stops it.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.Config.tick())
	defer ticker.Stop()

	logger.Info("scheduler started (tick %s)", s.Config.tick())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick advances the state machine one step, swallowing (but reporting)
// errors so the loop survives transient failures.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now().In(s.location())
	if err := s.step(ctx, now); err != nil {
		logger.Error("scheduler tick: %v", err)
		if s.Notifier != nil {
			if nerr := s.Notifier.RebalanceFailed(sessionDate(now), err); nerr != nil {
				logger.Warn("notify failure: %v", nerr)
			}
		}
	}
}

func (s *Scheduler) step(ctx context.Context, now time.Time) error {
	if !s.Calendar.IsSession(now) {
		s.setState(StateAwaitingSession)
		return nil
	}

	first := s.Calendar.SessionFirstMinute(now)
	last := s.Calendar.SessionLastMinute(now)
	today := dateOf(now)

	switch {
	case now.Before(first):
		if now.Before(first.Add(-s.Config.preOpenWindow())) {
			s.setState(StateAwaitingSession)
			return nil
		}
		s.setState(StatePreOpen)
		if s.lastRefresh.Before(today) {
			universe, err := s.Universe.Build(ctx, now)
			if err != nil {
				// Leave lastRefresh unset; the refresh retries on the next
				// tick as long as the window lasts.
				return fmt.Errorf("universe refresh: %w", err)
			}
			s.universe = universe
			s.lastRefresh = today
			logger.Info("universe refreshed: %d symbols", len(universe))
		}

	case now.Before(last):
		s.setState(StateSessionOpen)
		fireAt := time.Date(now.Year(), now.Month(), now.Day(),
			s.Config.rebalanceHour(), 0, 0, 0, s.location())
		if !now.Before(fireAt) && s.lastRebalance.Before(today) {
			// Marked before running so a mid-run failure cannot cause a
			// second rebalance on the same session day.
			s.lastRebalance = today
			if err := s.rebalance(ctx, now); err != nil {
				return fmt.Errorf("rebalance: %w", err)
			}
		}

	default:
		s.setState(StateAfterClose)
	}
	return nil
}

func (s *Scheduler) rebalance(ctx context.Context, now time.Time) error {
	runID := id.New()
	started := time.Now().UTC()
	logger.Info("rebalance run %s starting", runID)

	// A process started mid-session has no cached universe; re-derive it.
	if len(s.universe) == 0 {
		universe, err := s.Universe.Build(ctx, now)
		if err != nil {
			return fmt.Errorf("universe: %w", err)
		}
		s.universe = universe
		s.lastRefresh = dateOf(now)
	}

	start := s.Calendar.PreviousSession(now)
	for i := 0; i < s.Config.startSessionsBack(); i++ {
		start = s.Calendar.PreviousSession(start)
	}

	series := s.Fetcher.FetchAll(ctx, s.universe, start)
	scores := make([]momentum.Score, 0, len(series))
	for _, sr := range series {
		score, ok := momentum.Compute(sr.Symbol, sr.Bars, s.Config.lookback())
		if !ok {
			logger.Debug("discarding %s: unusable price series", sr.Symbol)
			continue
		}
		scores = append(scores, score)
	}
	target := momentum.Rank(scores, s.Config.qualityThreshold(), s.Config.portfolioSize())

	positions, err := s.Broker.Positions(ctx)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}
	held := make([]string, len(positions))
	for i, pos := range positions {
		held[i] = pos.Name
	}

	buy, sell := Diff(target, held)
	logger.Info("rebalance run %s: %d scored, %d target, %d to sell, %d to buy",
		runID, len(scores), len(target), len(sell), len(buy))

	// Exits go first to free capital for the entries.
	sold := 0
	for _, name := range sell {
		if _, err := s.Trader.Exit(ctx, name, runID); err != nil {
			logger.Error("exit %s: %v", name, err)
			continue
		}
		sold++
	}

	bought := 0
	for _, name := range buy {
		_, err := s.Trader.Enter(ctx, EnterRequest{
			Symbol:     name,
			Allocation: s.Config.Allocation,
			RunID:      runID,
		})
		if err != nil {
			logger.Error("enter %s: %v", name, err)
			continue
		}
		bought++
	}

	run := journal.RunRecord{
		RunID:        runID,
		SessionDate:  sessionDate(now),
		UniverseSize: len(s.universe),
		ScoredCount:  len(scores),
		TargetCount:  len(target),
		Bought:       bought,
		Sold:         sold,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	if s.Journal != nil {
		if err := s.Journal.RecordRun(run); err != nil {
			logger.Warn("journal run %s: %v", runID, err)
		}
	}
	if s.Notifier != nil {
		if err := s.Notifier.RebalanceComplete(run); err != nil {
			logger.Warn("notify run %s: %v", runID, err)
		}
	}

	logger.Info("rebalance run %s finished: sold %d, bought %d", runID, sold, bought)
	return nil
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sessionDate(t time.Time) string {
	return t.Format("2006-01-02")
}
