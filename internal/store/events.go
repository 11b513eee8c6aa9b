package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/privashield/leakwatch/internal/models"
)

var (
	ErrInvalidEvent = errors.New("identity and entity type are required")
	ErrStorage      = errors.New("storage failure")
)

// EventStore is the append-only log of detection events. There is no update
// or delete; callers only ever insert and read.
type EventStore interface {
	Record(ctx context.Context, identity, entityType string, recordedAt time.Time) (uuid.UUID, error)
	RecordBatch(ctx context.Context, identity string, entityTypes []string, recordedAt time.Time) ([]uuid.UUID, error)
	QueryByIdentityAndDateRange(ctx context.Context, identity string, r DateRange) ([]models.DetectionEvent, error)
	DistinctIdentities(ctx context.Context) ([]string, error)
}

// DateRange is an inclusive range of calendar days. Only the date part of
// From and To is used, read in the store's location. A zero To leaves the
// range open at the end.
type DateRange struct {
	From time.Time
	To   time.Time
}

var (
	epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)
	// endOfTime stays inside the range of a postgres timestamptz.
	endOfTime = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// AllTime covers every day up to and including to.
func AllTime(to time.Time) DateRange {
	return DateRange{From: epoch, To: to}
}

// Unbounded covers every event regardless of its date.
func Unbounded() DateRange {
	return DateRange{From: epoch}
}

func SingleDay(day time.Time) DateRange {
	return DateRange{From: day, To: day}
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// bounds returns the half-open instant range [start, end) covering the days.
func (r DateRange) bounds(loc *time.Location) (time.Time, time.Time) {
	if r.To.IsZero() {
		return StartOfDay(r.From, loc), endOfTime
	}
	return StartOfDay(r.From, loc), StartOfDay(r.To, loc).AddDate(0, 0, 1)
}

func validate(identity string, entityTypes ...string) error {
	if identity == "" {
		return ErrInvalidEvent
	}
	for _, t := range entityTypes {
		if t == "" {
			return ErrInvalidEvent
		}
	}
	return nil
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
