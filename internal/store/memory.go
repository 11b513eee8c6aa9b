package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/privashield/leakwatch/internal/classifier"
	"github.com/privashield/leakwatch/internal/models"
)

// MemoryStore keeps events in process memory. It backs tests and the
// "memory" storage driver.
type MemoryStore struct {
	mu         sync.RWMutex
	events     []models.DetectionEvent
	classifier *classifier.Classifier
	loc        *time.Location
}

func NewMemoryStore(c *classifier.Classifier, loc *time.Location) *MemoryStore {
	if c == nil {
		c = classifier.NewDefault()
	}
	return &MemoryStore{classifier: c, loc: locationOrUTC(loc)}
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) Record(ctx context.Context, identity, entityType string, recordedAt time.Time) (uuid.UUID, error) {
	ids, err := s.RecordBatch(ctx, identity, []string{entityType}, recordedAt)
	if err != nil {
		return uuid.Nil, err
	}
	return ids[0], nil
}

func (s *MemoryStore) RecordBatch(_ context.Context, identity string, entityTypes []string, recordedAt time.Time) ([]uuid.UUID, error) {
	if len(entityTypes) == 0 {
		return nil, nil
	}
	if err := validate(identity, entityTypes...); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, len(entityTypes))
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range entityTypes {
		ids[i] = uuid.New()
		s.events = append(s.events, models.DetectionEvent{
			ID:               ids[i],
			Identity:         identity,
			EntityType:       t,
			SensitivityLevel: s.classifier.Classify(t),
			RecordedAt:       recordedAt,
		})
	}
	return ids, nil
}

func (s *MemoryStore) QueryByIdentityAndDateRange(_ context.Context, identity string, r DateRange) ([]models.DetectionEvent, error) {
	start, end := r.bounds(s.loc)

	s.mu.RLock()
	out := []models.DetectionEvent{}
	for _, e := range s.events {
		if e.Identity != identity {
			continue
		}
		if e.RecordedAt.Before(start) || !e.RecordedAt.Before(end) {
			continue
		}
		e.RecordedAt = e.RecordedAt.In(s.loc)
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

func (s *MemoryStore) DistinctIdentities(context.Context) ([]string, error) {
	s.mu.RLock()
	seen := make(map[string]struct{})
	for _, e := range s.events {
		seen[e.Identity] = struct{}{}
	}
	s.mu.RUnlock()

	identities := make([]string, 0, len(seen))
	for id := range seen {
		identities = append(identities, id)
	}
	sort.Strings(identities)
	return identities, nil
}
