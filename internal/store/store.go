package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/privashield/leakwatch/internal/classifier"
	"github.com/privashield/leakwatch/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store is the PostgreSQL-backed EventStore.
type Store struct {
	db         *sqlx.DB
	classifier *classifier.Classifier
	loc        *time.Location
}

type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Location     *time.Location
	Classifier   *classifier.Classifier
}

func New(cfg Config) (*Store, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return NewWithDB(db, cfg.Classifier, cfg.Location), nil
}

func NewWithDB(db *sqlx.DB, c *classifier.Classifier, loc *time.Location) *Store {
	if c == nil {
		c = classifier.NewDefault()
	}
	return &Store{db: db, classifier: c, loc: locationOrUTC(loc)}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Migrate applies the embedded schema files in name order. Every statement is
// idempotent so running it on each start is safe.
func (s *Store) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		if _, err := s.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("applying %s: %w", name, err)
		}
	}
	return nil
}

const insertEvent = `
	INSERT INTO detection_events (id, identity, entity_type, sensitivity_level, recorded_at)
	VALUES (:id, :identity, :entity_type, :sensitivity_level, :recorded_at)
`

func (s *Store) Record(ctx context.Context, identity, entityType string, recordedAt time.Time) (uuid.UUID, error) {
	ids, err := s.RecordBatch(ctx, identity, []string{entityType}, recordedAt)
	if err != nil {
		return uuid.Nil, err
	}
	return ids[0], nil
}

// RecordBatch appends one row per entity type in a single statement, so a
// detection request is stored entirely or not at all.
func (s *Store) RecordBatch(ctx context.Context, identity string, entityTypes []string, recordedAt time.Time) ([]uuid.UUID, error) {
	if len(entityTypes) == 0 {
		return nil, nil
	}
	if err := validate(identity, entityTypes...); err != nil {
		return nil, err
	}

	events := make([]models.DetectionEvent, len(entityTypes))
	ids := make([]uuid.UUID, len(entityTypes))
	for i, t := range entityTypes {
		ids[i] = uuid.New()
		events[i] = models.DetectionEvent{
			ID:               ids[i],
			Identity:         identity,
			EntityType:       t,
			SensitivityLevel: s.classifier.Classify(t),
			RecordedAt:       recordedAt,
		}
	}

	if _, err := s.db.NamedExecContext(ctx, insertEvent, events); err != nil {
		return nil, fmt.Errorf("%w: inserting detection events: %w", ErrStorage, err)
	}
	return ids, nil
}

func (s *Store) QueryByIdentityAndDateRange(ctx context.Context, identity string, r DateRange) ([]models.DetectionEvent, error) {
	start, end := r.bounds(s.loc)

	query := `
		SELECT id, identity, entity_type, sensitivity_level, recorded_at
		FROM detection_events
		WHERE identity = $1 AND recorded_at >= $2 AND recorded_at < $3
		ORDER BY recorded_at ASC, id ASC
	`
	events := []models.DetectionEvent{}
	if err := s.db.SelectContext(ctx, &events, query, identity, start, end); err != nil {
		return nil, fmt.Errorf("%w: querying detection events: %w", ErrStorage, err)
	}
	for i := range events {
		events[i].RecordedAt = events[i].RecordedAt.In(s.loc)
	}
	return events, nil
}

func (s *Store) DistinctIdentities(ctx context.Context) ([]string, error) {
	identities := []string{}
	query := `SELECT DISTINCT identity FROM detection_events ORDER BY identity ASC`
	if err := s.db.SelectContext(ctx, &identities, query); err != nil {
		return nil, fmt.Errorf("%w: listing identities: %w", ErrStorage, err)
	}
	return identities, nil
}
