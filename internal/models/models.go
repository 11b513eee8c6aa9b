package models

import (
	"time"

	"github.com/google/uuid"
)

type SensitivityLevel string

const (
	SensitivityHigh   SensitivityLevel = "HIGH"
	SensitivityMedium SensitivityLevel = "MEDIUM"
	SensitivityLow    SensitivityLevel = "LOW"
)

// Rank orders levels so HIGH sorts first.
func (l SensitivityLevel) Rank() int {
	switch l {
	case SensitivityHigh:
		return 3
	case SensitivityMedium:
		return 2
	case SensitivityLow:
		return 1
	default:
		return 0
	}
}

func (l SensitivityLevel) Valid() bool {
	return l.Rank() > 0
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// DetectionEvent is one recognized sensitive span recorded against an identity.
// Events are append-only.
type DetectionEvent struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	Identity         string           `json:"identity" db:"identity"`
	EntityType       string           `json:"entity_type" db:"entity_type"`
	SensitivityLevel SensitivityLevel `json:"sensitivity_level" db:"sensitivity_level"`
	RecordedAt       time.Time        `json:"recorded_at" db:"recorded_at"`
}

type LeakGroup struct {
	ContentType      string           `json:"content_type"`
	SensitivityLevel SensitivityLevel `json:"sensitivity_level"`
	Count            int              `json:"count"`
}

type UserLeaks struct {
	Email string      `json:"email"`
	Leaks []LeakGroup `json:"leaks"`
}

type SensitiveType struct {
	Type  string           `json:"type"`
	Count int              `json:"count"`
	Level SensitivityLevel `json:"level"`
}

type TodayStats struct {
	DetectedCount      int             `json:"detectedCount"`
	SensitiveTypes     []SensitiveType `json:"sensitiveTypes"`
	LastExecutionDate  *string         `json:"lastExecutionDate"`
	LastExecutionCount int             `json:"lastExecutionCount"`
	ChangeRate         float64         `json:"changeRate"`
}

type MonthlyStats struct {
	ThisMonth     int     `json:"thisMonth"`
	LastMonth     int     `json:"lastMonth"`
	ChangePercent float64 `json:"changePercent"`
}

type Summary struct {
	Today       TodayStats   `json:"today"`
	Monthly     MonthlyStats `json:"monthly"`
	SafetyScore int          `json:"safetyScore"`
}

type MonthPoint struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type DayPoint struct {
	Date           string `json:"date"`
	DetectionCount int    `json:"detection_count"`
}

type MonthlyDaily struct {
	TotalCount int        `json:"totalCount"`
	DailyData  []DayPoint `json:"dailyData"`
}

type TypeCount struct {
	ContentType string `json:"content_type"`
	Count       int    `json:"count"`
}
