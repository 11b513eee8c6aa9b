package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/classifier"
	"github.com/privashield/leakwatch/internal/metrics"
	"github.com/privashield/leakwatch/internal/models"
	"github.com/privashield/leakwatch/internal/recognizer"
	"github.com/privashield/leakwatch/internal/store"
)

type fakeRecognizer struct {
	entities []recognizer.Entity
	err      error
	calls    int
	language string
	deadline bool
}

func (f *fakeRecognizer) Detect(ctx context.Context, _ string, language string) ([]recognizer.Entity, error) {
	f.calls++
	f.language = language
	_, f.deadline = ctx.Deadline()
	return f.entities, f.err
}

type failingStore struct {
	store.EventStore
	calls int
}

func (f *failingStore) RecordBatch(context.Context, string, []string, time.Time) ([]uuid.UUID, error) {
	f.calls++
	return nil, store.ErrStorage
}

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestService(r recognizer.Recognizer, st store.EventStore, opts ...Option) *Service {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewService(r, st, classifier.NewDefault(), Config{Language: "ko", Timeout: time.Second}, opts...)
}

func TestService_Detect_RecordsEverySpan(t *testing.T) {
	rec := &fakeRecognizer{entities: []recognizer.Entity{
		{Type: "EMAIL"}, {Type: "NAME"}, {Type: "EMAIL"}, {Type: "FAVORITE_COLOR"},
	}}
	st := store.NewMemoryStore(nil, time.UTC)
	m := metrics.New(prometheus.NewRegistry())
	svc := newTestService(rec, st, WithMetrics(m))

	result, err := svc.Detect(context.Background(), "a@x.com", "some text")
	require.NoError(t, err)

	assert.Equal(t, []string{"EMAIL", "NAME", "EMAIL", "FAVORITE_COLOR"}, result.DetectedTypes)
	assert.Equal(t, []models.SensitivityLevel{
		models.SensitivityHigh, models.SensitivityMedium, models.SensitivityHigh, models.SensitivityLow,
	}, result.SensitivityLevels)
	assert.Equal(t, "ko", rec.language)
	assert.True(t, rec.deadline, "recognizer call should carry a timeout")

	events, err := st.QueryByIdentityAndDateRange(context.Background(), "a@x.com", store.SingleDay(fixedNow))
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, e := range events {
		assert.Equal(t, result.DetectedTypes[i], e.EntityType)
		assert.Equal(t, result.SensitivityLevels[i], e.SensitivityLevel)
		assert.True(t, e.RecordedAt.Equal(fixedNow))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsRecorded.WithLabelValues("LOW")))
}

func TestService_Detect_NothingFound(t *testing.T) {
	rec := &fakeRecognizer{}
	st := store.NewMemoryStore(nil, time.UTC)
	svc := newTestService(rec, st)

	result, err := svc.Detect(context.Background(), "a@x.com", "nothing here")
	require.NoError(t, err)
	assert.NotNil(t, result.DetectedTypes)
	assert.Empty(t, result.DetectedTypes)
	assert.NotNil(t, result.SensitivityLevels)
	assert.Empty(t, result.SensitivityLevels)

	ids, err := st.DistinctIdentities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_Detect_SkipsUntypedSpans(t *testing.T) {
	rec := &fakeRecognizer{entities: []recognizer.Entity{
		{Type: "SSN"}, {Type: ""}, {Type: "  "}, {Type: "PHONE"},
	}}
	st := store.NewMemoryStore(nil, time.UTC)
	svc := newTestService(rec, st)

	result, err := svc.Detect(context.Background(), "a@x.com", "some text")
	require.NoError(t, err)
	assert.Equal(t, []string{"SSN", "PHONE"}, result.DetectedTypes)
	assert.Equal(t, []models.SensitivityLevel{models.SensitivityHigh, models.SensitivityHigh}, result.SensitivityLevels)

	events, err := st.QueryByIdentityAndDateRange(context.Background(), "a@x.com", store.SingleDay(fixedNow))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestService_Detect_OnlyUntypedSpans(t *testing.T) {
	rec := &fakeRecognizer{entities: []recognizer.Entity{{Type: ""}}}
	st := store.NewMemoryStore(nil, time.UTC)
	svc := newTestService(rec, st)

	result, err := svc.Detect(context.Background(), "a@x.com", "some text")
	require.NoError(t, err)
	assert.Empty(t, result.DetectedTypes)

	ids, err := st.DistinctIdentities(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestService_Detect_Validation(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		text     string
		expected error
	}{
		{"missing identity", "", "text", ErrMissingIdentity},
		{"empty text", "a@x.com", "", ErrEmptyText},
		{"blank text", "a@x.com", " \n\t ", ErrEmptyText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &fakeRecognizer{entities: []recognizer.Entity{{Type: "SSN"}}}
			st := &failingStore{}
			svc := newTestService(rec, st)

			_, err := svc.Detect(context.Background(), tt.identity, tt.text)
			assert.ErrorIs(t, err, tt.expected)
			assert.Zero(t, rec.calls)
			assert.Zero(t, st.calls)
		})
	}
}

func TestService_Detect_RecognizerFailure(t *testing.T) {
	cause := errors.New("throttled")
	rec := &fakeRecognizer{err: cause}
	st := &failingStore{}
	svc := newTestService(rec, st)

	_, err := svc.Detect(context.Background(), "a@x.com", "text")
	assert.ErrorIs(t, err, ErrRecognizer)
	assert.ErrorIs(t, err, cause)
	assert.Zero(t, st.calls)
}

func TestService_Detect_StorageFailure(t *testing.T) {
	rec := &fakeRecognizer{entities: []recognizer.Entity{{Type: "SSN"}}}
	st := &failingStore{}
	svc := newTestService(rec, st)

	_, err := svc.Detect(context.Background(), "a@x.com", "text")
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, store.ErrStorage)
	assert.Equal(t, 1, st.calls)
}

func TestService_Detect_WithRuleBasedRecognizer(t *testing.T) {
	st := store.NewMemoryStore(nil, time.UTC)
	svc := newTestService(recognizer.NewRuleBasedRecognizer(), st)

	result, err := svc.Detect(context.Background(), "a@x.com", "제 주민번호는 123-45-6789 이고 메일은 me@corp.kr 입니다")
	require.NoError(t, err)
	assert.Equal(t, []string{"SSN", "EMAIL"}, result.DetectedTypes)
	assert.Equal(t, []models.SensitivityLevel{models.SensitivityHigh, models.SensitivityHigh}, result.SensitivityLevels)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&fakeRecognizer{}, store.NewMemoryStore(nil, nil), nil, Config{})
	assert.Equal(t, defaultLanguage, svc.cfg.Language)
	assert.Equal(t, defaultTimeout, svc.cfg.Timeout)
	assert.NotNil(t, svc.classifier)
}
