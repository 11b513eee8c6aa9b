// Package reports renders the cross-user leak rollup as a downloadable file.
package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/privashield/leakwatch/internal/models"
)

var ErrUnsupportedFormat = errors.New("unsupported report format")

type ReportFormat string

const (
	FormatCSV ReportFormat = "csv"
	FormatPDF ReportFormat = "pdf"
)

func ParseFormat(s string) (ReportFormat, error) {
	switch f := ReportFormat(strings.ToLower(s)); f {
	case FormatCSV, FormatPDF:
		return f, nil
	case "":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

type ReportRequest struct {
	Format      ReportFormat
	Title       string
	GeneratedBy string
}

type Report struct {
	Format      ReportFormat
	Title       string
	GeneratedAt time.Time
	GeneratedBy string
	Data        []byte
	Filename    string
	MimeType    string
}

// DataProvider supplies the rollup a report is built from.
type DataProvider interface {
	AllUsersLeaks(ctx context.Context) ([]models.UserLeaks, error)
}

type Generator struct {
	provider DataProvider
	now      func() time.Time
}

func NewGenerator(provider DataProvider, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{provider: provider, now: now}
}

func (g *Generator) Generate(ctx context.Context, req *ReportRequest) (*Report, error) {
	title := req.Title
	if title == "" {
		title = "Sensitive Data Leak Report"
	}

	rollup, err := g.provider.AllUsersLeaks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rollup: %w", err)
	}

	generatedAt := g.now()
	stamp := generatedAt.Format("20060102_150405")

	var data []byte
	var filename string
	var mimeType string

	switch req.Format {
	case FormatCSV:
		data, err = rollupToCSV(rollup)
		filename = fmt.Sprintf("leaks_%s.csv", stamp)
		mimeType = "text/csv"
	case FormatPDF:
		data, err = rollupToPDF(rollup, title, generatedAt)
		filename = fmt.Sprintf("leaks_%s.pdf", stamp)
		mimeType = "application/pdf"
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}

	if err != nil {
		return nil, err
	}

	return &Report{
		Format:      req.Format,
		Title:       title,
		GeneratedAt: generatedAt,
		GeneratedBy: req.GeneratedBy,
		Data:        data,
		Filename:    filename,
		MimeType:    mimeType,
	}, nil
}

func rollupToCSV(rollup []models.UserLeaks) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"email", "content_type", "sensitivity_level", "count"}); err != nil {
		return nil, err
	}

	for _, u := range rollup {
		for _, g := range u.Leaks {
			row := []string{u.Email, g.ContentType, string(g.SensitivityLevel), strconv.Itoa(g.Count)}
			if err := w.Write(row); err != nil {
				return nil, err
			}
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}

type rollupTotals struct {
	total   int
	byLevel map[models.SensitivityLevel]int
	byType  []SummaryItem
	perUser []SummaryItem
}

func summarize(rollup []models.UserLeaks) rollupTotals {
	t := rollupTotals{byLevel: make(map[models.SensitivityLevel]int)}
	types := make(map[string]int)

	for _, u := range rollup {
		userTotal := 0
		for _, g := range u.Leaks {
			t.total += g.Count
			t.byLevel[g.SensitivityLevel] += g.Count
			types[g.ContentType] += g.Count
			userTotal += g.Count
		}
		t.perUser = append(t.perUser, SummaryItem{Label: u.Email, Value: userTotal})
	}

	for name, n := range types {
		t.byType = append(t.byType, SummaryItem{Label: name, Value: n})
	}
	byValue := func(items []SummaryItem) {
		sort.SliceStable(items, func(i, j int) bool {
			if items[i].Value != items[j].Value {
				return items[i].Value > items[j].Value
			}
			return items[i].Label < items[j].Label
		})
	}
	byValue(t.byType)
	byValue(t.perUser)
	return t
}

func rollupToPDF(rollup []models.UserLeaks, title string, generatedAt time.Time) ([]byte, error) {
	pdf := NewPDFReport(title, generatedAt)
	totals := summarize(rollup)

	pdf.AddSection("Summary")
	pdf.AddSummaryTable([]SummaryItem{
		{Label: "Users", Value: len(rollup)},
		{Label: "Detected items", Value: totals.total},
	})
	pdf.AddChart("By sensitivity", []SummaryItem{
		{Label: string(models.SensitivityHigh), Value: totals.byLevel[models.SensitivityHigh]},
		{Label: string(models.SensitivityMedium), Value: totals.byLevel[models.SensitivityMedium]},
		{Label: string(models.SensitivityLow), Value: totals.byLevel[models.SensitivityLow]},
	})

	if len(totals.byType) > 0 {
		pdf.AddSection("Top Content Types")
		top := totals.byType
		if len(top) > 10 {
			top = top[:10]
		}
		pdf.AddChart("", top)
	}

	if len(totals.perUser) > 0 {
		pdf.AddSection("Users by Volume")
		rows := make([][]string, len(totals.perUser))
		for i, u := range totals.perUser {
			rows[i] = []string{u.Label, strconv.Itoa(u.Value)}
		}
		pdf.AddTable([]string{"Email", "Detected items"}, rows)
	}

	pdf.AddSection("Detail")
	var rows [][]string
	for _, u := range rollup {
		for _, g := range u.Leaks {
			rows = append(rows, []string{u.Email, g.ContentType, string(g.SensitivityLevel), strconv.Itoa(g.Count)})
		}
	}
	if len(rows) == 0 {
		pdf.AddParagraph("No sensitive content has been recorded.")
	} else {
		pdf.AddTable([]string{"Email", "Content Type", "Level", "Count"}, rows)
	}

	return pdf.Output()
}
