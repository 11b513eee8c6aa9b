// Package analytics turns the detection event log into the windowed
// statistics shown on the leak dashboard.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/store"
)

const (
	dayLayout      = "2006-01-02"
	monthLayout    = "2006-01"
	dailyLayout    = "01/02"
	trendMonths    = 6
	defaultWorkers = 4
)

// Aggregator computes every statistic fresh from the event store on each call.
// It holds no cache and no incremental state.
type Aggregator struct {
	store       store.EventStore
	loc         *time.Location
	now         func() time.Time
	concurrency int
	logger      *slog.Logger
}

type Option func(*Aggregator)

// WithLocation sets the zone calendar days are read in. It must match the
// location the store was built with.
func WithLocation(loc *time.Location) Option {
	return func(a *Aggregator) {
		if loc != nil {
			a.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// WithConcurrency bounds the number of identities AllUsersLeaks reads at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func New(s store.EventStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:       s,
		loc:         time.UTC,
		now:         time.Now,
		concurrency: defaultWorkers,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Location returns the zone used for calendar-day comparisons.
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

func (a *Aggregator) today() time.Time {
	return store.StartOfDay(a.now(), a.loc)
}

func (a *Aggregator) query(ctx context.Context, identity string, r store.DateRange) ([]models.DetectionEvent, error) {
	events, err := a.store.QueryByIdentityAndDateRange(ctx, identity, r)
	if err != nil {
		return nil, fmt.Errorf("querying events for %s: %w", identity, err)
	}
	return events, nil
}

// TodayBreakdown groups today's events by (entity type, level).
func (a *Aggregator) TodayBreakdown(ctx context.Context, identity string) ([]models.LeakGroup, int, error) {
	events, err := a.query(ctx, identity, store.SingleDay(a.today()))
	if err != nil {
		return nil, 0, err
	}
	return groupEvents(events), len(events), nil
}

// LastActiveDay finds the latest calendar day strictly before today with at
// least one event, and the number of events on that day. A nil day means
// there is no prior activity.
func (a *Aggregator) LastActiveDay(ctx context.Context, identity string) (*time.Time, int, error) {
	today := a.today()
	events, err := a.query(ctx, identity, store.AllTime(today.AddDate(0, 0, -1)))
	if err != nil {
		return nil, 0, err
	}
	day, count := lastActiveDay(events, today, a.loc)
	return day, count, nil
}

// ChangeRate is the percentage change from previous to current rounded to
// one decimal place. It is 0 when previous is 0.
func ChangeRate(current, previous int) float64 {
	if previous <= 0 {
		return 0
	}
	rate := float64(current-previous) / float64(previous) * 100
	return math.Round(rate*10) / 10
}

// MonthlyTotals compares the current calendar month with the one before it.
func (a *Aggregator) MonthlyTotals(ctx context.Context, identity string) (models.MonthlyStats, error) {
	today := a.today()
	events, err := a.query(ctx, identity, store.DateRange{From: monthStart(today, -1), To: today})
	if err != nil {
		return models.MonthlyStats{}, err
	}
	return monthlyTotals(events, today), nil
}

// Summary assembles the dashboard headline from a single read of the
// identity's events so every figure describes the same snapshot.
func (a *Aggregator) Summary(ctx context.Context, identity string) (*models.Summary, error) {
	today := a.today()
	events, err := a.query(ctx, identity, store.AllTime(today))
	if err != nil {
		return nil, err
	}

	var todays []models.DetectionEvent
	for _, e := range events {
		if sameDay(e.RecordedAt, today, a.loc) {
			todays = append(todays, e)
		}
	}
	todayTotal := len(todays)

	stats := models.TodayStats{
		DetectedCount:  todayTotal,
		SensitiveTypes: sensitiveTypes(groupEvents(todays)),
	}
	if day, count := lastActiveDay(events, today, a.loc); day != nil {
		d := day.Format(dayLayout)
		stats.LastExecutionDate = &d
		stats.LastExecutionCount = count
		stats.ChangeRate = ChangeRate(todayTotal, count)
	}

	return &models.Summary{
		Today:       stats,
		Monthly:     monthlyTotals(events, today),
		SafetyScore: SafetyScore(todayTotal),
	}, nil
}

// CurrentLeaks returns today's groups.
func (a *Aggregator) CurrentLeaks(ctx context.Context, identity string) ([]models.LeakGroup, error) {
	groups, _, err := a.TodayBreakdown(ctx, identity)
	return groups, err
}

// PreviousLeaks returns groups for every event strictly before today.
func (a *Aggregator) PreviousLeaks(ctx context.Context, identity string) ([]models.LeakGroup, error) {
	events, err := a.query(ctx, identity, store.AllTime(a.today().AddDate(0, 0, -1)))
	if err != nil {
		return nil, err
	}
	return groupEvents(events), nil
}

// MonthlyRisk returns one point per month for the trailing six calendar
// months including the current one, oldest first. Empty months count zero.
func (a *Aggregator) MonthlyRisk(ctx context.Context, identity string) ([]models.MonthPoint, error) {
	today := a.today()
	first := monthStart(today, -(trendMonths - 1))
	events, err := a.query(ctx, identity, store.DateRange{From: first, To: today})
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int, trendMonths)
	for _, e := range events {
		counts[e.RecordedAt.In(a.loc).Format(monthLayout)]++
	}

	points := make([]models.MonthPoint, trendMonths)
	for i := range points {
		month := first.AddDate(0, i, 0).Format(monthLayout)
		points[i] = models.MonthPoint{Month: month, Count: counts[month]}
	}
	return points, nil
}

// MonthlyDaily lists per-day counts for the current month to date. Only days
// with at least one event appear.
func (a *Aggregator) MonthlyDaily(ctx context.Context, identity string) (*models.MonthlyDaily, error) {
	today := a.today()
	events, err := a.query(ctx, identity, store.DateRange{From: monthStart(today, 0), To: today})
	if err != nil {
		return nil, err
	}

	result := &models.MonthlyDaily{TotalCount: len(events), DailyData: []models.DayPoint{}}
	for _, e := range events {
		date := e.RecordedAt.In(a.loc).Format(dailyLayout)
		n := len(result.DailyData)
		if n > 0 && result.DailyData[n-1].Date == date {
			result.DailyData[n-1].DetectionCount++
			continue
		}
		result.DailyData = append(result.DailyData, models.DayPoint{Date: date, DetectionCount: 1})
	}
	return result, nil
}

// TypeDistribution counts every event per entity type, most frequent first.
func (a *Aggregator) TypeDistribution(ctx context.Context, identity string) ([]models.TypeCount, error) {
	events, err := a.query(ctx, identity, store.Unbounded())
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, e := range events {
		counts[e.EntityType]++
	}

	out := make([]models.TypeCount, 0, len(counts))
	for t, n := range counts {
		out = append(out, models.TypeCount{ContentType: t, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ContentType < out[j].ContentType
	})
	return out, nil
}

// AllUsersLeaks returns the all-time breakdown for every identity in the log.
// Identities are read in parallel, bounded by the configured concurrency.
func (a *Aggregator) AllUsersLeaks(ctx context.Context) ([]models.UserLeaks, error) {
	identities, err := a.store.DistinctIdentities(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing identities: %w", err)
	}

	all := store.Unbounded()
	out := make([]models.UserLeaks, len(identities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, identity := range identities {
		i, identity := i, identity
		g.Go(func() error {
			events, err := a.query(gctx, identity, all)
			if err != nil {
				return err
			}
			out[i] = models.UserLeaks{Email: identity, Leaks: groupEvents(events)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.logger.Debug("computed cross-user rollup", "identities", len(identities))
	return out, nil
}

// groupEvents counts events per (entity type, level), sorted by type and then
// by level from HIGH to LOW.
func groupEvents(events []models.DetectionEvent) []models.LeakGroup {
	type key struct {
		entityType string
		level      models.SensitivityLevel
	}
	counts := make(map[key]int)
	for _, e := range events {
		counts[key{e.EntityType, e.SensitivityLevel}]++
	}

	groups := make([]models.LeakGroup, 0, len(counts))
	for k, n := range counts {
		groups = append(groups, models.LeakGroup{
			ContentType:      k.entityType,
			SensitivityLevel: k.level,
			Count:            n,
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].ContentType != groups[j].ContentType {
			return groups[i].ContentType < groups[j].ContentType
		}
		return groups[i].SensitivityLevel.Rank() > groups[j].SensitivityLevel.Rank()
	})
	return groups
}

func sensitiveTypes(groups []models.LeakGroup) []models.SensitiveType {
	out := make([]models.SensitiveType, len(groups))
	for i, g := range groups {
		out[i] = models.SensitiveType{Type: g.ContentType, Count: g.Count, Level: g.SensitivityLevel}
	}
	return out
}

// lastActiveDay expects events sorted by RecordedAt ascending.
func lastActiveDay(events []models.DetectionEvent, today time.Time, loc *time.Location) (*time.Time, int) {
	var day *time.Time
	count := 0
	for i := len(events) - 1; i >= 0; i-- {
		d := store.StartOfDay(events[i].RecordedAt, loc)
		if !d.Before(today) {
			continue
		}
		if day == nil {
			day = &d
		}
		if !d.Equal(*day) {
			break
		}
		count++
	}
	return day, count
}

func monthlyTotals(events []models.DetectionEvent, today time.Time) models.MonthlyStats {
	thisMonth := monthStart(today, 0)
	lastMonth := monthStart(today, -1)
	loc := today.Location()

	var stats models.MonthlyStats
	for _, e := range events {
		m := monthStart(e.RecordedAt.In(loc), 0)
		switch {
		case m.Equal(thisMonth):
			stats.ThisMonth++
		case m.Equal(lastMonth):
			stats.LastMonth++
		}
	}
	stats.ChangePercent = ChangeRate(stats.ThisMonth, stats.LastMonth)
	return stats
}

// monthStart returns the first day of the month offset months from t, in t's
// location.
func monthStart(t time.Time, offset int) time.Time {
	return time.Date(t.Year(), t.Month()+time.Month(offset), 1, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time, loc *time.Location) bool {
	return store.StartOfDay(a, loc).Equal(store.StartOfDay(b, loc))
}
