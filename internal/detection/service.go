// Package detection runs submitted text through the entity recognizer and
// records every sensitive span it finds.
package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/privashield/leakwatch/internal/classifier"
	"github.com/privashield/leakwatch/internal/metrics"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/recognizer"
	"github.com/privashield/leakwatch/internal/store"
)

var (
	ErrMissingIdentity = errors.New("identity is required")
	ErrEmptyText       = errors.New("text is required")
	ErrRecognizer      = errors.New("entity recognition failed")
	ErrStorage         = errors.New("recording detection events failed")
)

const (
	defaultLanguage = "ko"
	defaultTimeout  = 10 * time.Second
)

// Result lists the detected entity types and their levels, index aligned.
type Result struct {
	DetectedTypes     []string                  `json:"detected_types"`
	SensitivityLevels []models.SensitivityLevel `json:"sensitivity_levels"`
}

type Config struct {
	Language string
	Timeout  time.Duration
}

type Service struct {
	recognizer recognizer.Recognizer
	store      store.EventStore
	classifier *classifier.Classifier
	cfg        Config
	now        func() time.Time
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the detection flow. The classifier must be the one the
// store classifies with so the levels returned match the levels recorded.
func NewService(r recognizer.Recognizer, st store.EventStore, c *classifier.Classifier, cfg Config, opts ...Option) *Service {
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if c == nil {
		c = classifier.NewDefault()
	}

	s := &Service{
		recognizer: r,
		store:      st,
		classifier: c,
		cfg:        cfg,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Detect recognizes sensitive spans in text and appends one event per span
// for identity. Nothing is written when no span is found.
func (s *Service) Detect(ctx context.Context, identity, text string) (*Result, error) {
	if identity == "" {
		return nil, ErrMissingIdentity
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	entities, err := s.recognizer.Detect(rctx, text, s.cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecognizer, err)
	}

	types := recognizer.Types(entities)
	if dropped := len(entities) - len(types); dropped > 0 {
		s.logger.Warn("recognizer returned spans without a type", "dropped", dropped)
	}

	result := &Result{
		DetectedTypes:     types,
		SensitivityLevels: s.classifier.ClassifyAll(types),
	}
	if len(types) == 0 {
		return result, nil
	}

	if _, err := s.store.RecordBatch(ctx, identity, result.DetectedTypes, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	for _, level := range result.SensitivityLevels {
		s.metrics.ObserveEvent(string(level))
	}

	s.logger.Info("recorded detection events",
		"identity", identity,
		"count", len(types),
	)
	return result, nil
}
