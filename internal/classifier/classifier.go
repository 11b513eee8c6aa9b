package classifier

import (
	"fmt"
	"sort"
	"strings"

	"github.com/privashield/leakwatch/internal/models"
)

// Table maps recognizer entity kinds to sensitivity levels. A Table is a
// value: With returns a copy and never mutates the receiver.
type Table map[string]models.SensitivityLevel

func DefaultTable() Table {
	return Table{
		"BANK_ACCOUNT_NUMBER": models.SensitivityHigh,
		"BANK_ROUTING":        models.SensitivityHigh,
		"CREDIT_DEBIT_NUMBER": models.SensitivityHigh,
		"CREDIT_DEBIT_CVV":    models.SensitivityHigh,
		"CREDIT_DEBIT_EXPIRY": models.SensitivityHigh,
		"PIN":                 models.SensitivityHigh,
		"SSN":                 models.SensitivityHigh,
		"PASSWORD":            models.SensitivityHigh,
		"EMAIL":               models.SensitivityHigh,
		"PHONE":               models.SensitivityHigh,
		"DRIVER_ID":           models.SensitivityHigh,
		"PASSPORT_NUMBER":     models.SensitivityHigh,
		"MAC_ADDRESS":         models.SensitivityHigh,
		"IP_ADDRESS":          models.SensitivityHigh,
		"AWS_ACCESS_KEY":      models.SensitivityHigh,
		"AWS_SECRET_KEY":      models.SensitivityHigh,

		"NAME":                              models.SensitivityMedium,
		"ADDRESS":                           models.SensitivityMedium,
		"INTERNATIONAL_BANK_ACCOUNT_NUMBER": models.SensitivityMedium,
		"SWIFT_CODE":                        models.SensitivityMedium,
		"LICENSE_PLATE":                     models.SensitivityMedium,
		"VEHICLE_IDENTIFICATION_NUMBER":     models.SensitivityMedium,
	}
}

// With returns a copy of t with overrides applied. Keys are entity kinds,
// values are level names (case-insensitive).
func (t Table) With(overrides map[string]string) (Table, error) {
	out := make(Table, len(t)+len(overrides))
	for k, v := range t {
		out[k] = v
	}

	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		level := models.SensitivityLevel(strings.ToUpper(strings.TrimSpace(overrides[k])))
		if !level.Valid() {
			return nil, fmt.Errorf("invalid sensitivity level %q for entity type %s", overrides[k], k)
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = level
	}
	return out, nil
}

type Classifier struct {
	table Table
}

func New(table Table) *Classifier {
	c := &Classifier{table: make(Table, len(table))}
	for k, v := range table {
		c.table[k] = v
	}
	return c
}

func NewDefault() *Classifier {
	return New(DefaultTable())
}

// Classify never fails: kinds missing from the table are LOW, so new
// recognizer vocabulary degrades instead of breaking ingestion.
func (c *Classifier) Classify(entityType string) models.SensitivityLevel {
	if level, ok := c.table[entityType]; ok {
		return level
	}
	return models.SensitivityLow
}

func (c *Classifier) ClassifyAll(entityTypes []string) []models.SensitivityLevel {
	levels := make([]models.SensitivityLevel, len(entityTypes))
	for i, t := range entityTypes {
		levels[i] = c.Classify(t)
	}
	return levels
}
