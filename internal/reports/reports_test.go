package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/models"
)

type staticProvider struct {
	rollup []models.UserLeaks
	err    error
}

func (p staticProvider) AllUsersLeaks(context.Context) ([]models.UserLeaks, error) {
	return p.rollup, p.err
}

var sample = []models.UserLeaks{
	{Email: "a@x.com", Leaks: []models.LeakGroup{
		{ContentType: "EMAIL", SensitivityLevel: models.SensitivityHigh, Count: 3},
		{ContentType: "NAME", SensitivityLevel: models.SensitivityMedium, Count: 1},
	}},
	{Email: "b@x.com", Leaks: []models.LeakGroup{
		{ContentType: "AGE", SensitivityLevel: models.SensitivityLow, Count: 7},
	}},
}

var fixed = time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)

func TestGenerate_CSV(t *testing.T) {
	g := NewGenerator(staticProvider{rollup: sample}, func() time.Time { return fixed })

	report, err := g.Generate(context.Background(), &ReportRequest{Format: FormatCSV, GeneratedBy: "root@x.com"})
	require.NoError(t, err)

	assert.Equal(t, "leaks_20240615_093000.csv", report.Filename)
	assert.Equal(t, "text/csv", report.MimeType)
	assert.Equal(t, "root@x.com", report.GeneratedBy)

	records, err := csv.NewReader(bytes.NewReader(report.Data)).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"email", "content_type", "sensitivity_level", "count"},
		{"a@x.com", "EMAIL", "HIGH", "3"},
		{"a@x.com", "NAME", "MEDIUM", "1"},
		{"b@x.com", "AGE", "LOW", "7"},
	}, records)
}

func TestGenerate_PDF(t *testing.T) {
	g := NewGenerator(staticProvider{rollup: sample}, func() time.Time { return fixed })

	req := &ReportRequest{Format: FormatPDF}
	report, err := g.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", report.MimeType)
	assert.Equal(t, "Sensitive Data Leak Report", report.Title)
	assert.Empty(t, req.Title, "request should not be modified")
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF-")))
}

func TestGenerate_EmptyRollupPDF(t *testing.T) {
	g := NewGenerator(staticProvider{}, nil)

	report, err := g.Generate(context.Background(), &ReportRequest{Format: FormatPDF})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(report.Data, []byte("%PDF-")))
}

func TestGenerate_Errors(t *testing.T) {
	cause := errors.New("db down")
	_, err := NewGenerator(staticProvider{err: cause}, nil).Generate(context.Background(), &ReportRequest{Format: FormatCSV})
	assert.ErrorIs(t, err, cause)

	_, err = NewGenerator(staticProvider{}, nil).Generate(context.Background(), &ReportRequest{Format: "xlsx"})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportFormat
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{"PDF", FormatPDF, false},
		{"", FormatPDF, false},
		{"json", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestSummarize(t *testing.T) {
	totals := summarize(sample)
	assert.Equal(t, 11, totals.total)
	assert.Equal(t, 3, totals.byLevel[models.SensitivityHigh])
	assert.Equal(t, []SummaryItem{{"AGE", 7}, {"EMAIL", 3}, {"NAME", 1}}, totals.byType)
	assert.Equal(t, []SummaryItem{{"b@x.com", 7}, {"a@x.com", 4}}, totals.perUser)
}
