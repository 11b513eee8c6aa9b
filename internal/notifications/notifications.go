package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/privashield/leakwatch/internal/models"
)

// NotificationType defines the type of notification
type NotificationType string

const (
	NotifyDailyDigest NotificationType = "daily_digest"
)

// Notification represents a notification to be sent
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Severity  models.SensitivityLevel
	Fields    []SlackField
	Timestamp time.Time
}

// Config holds notification configuration
type Config struct {
	Slack SlackConfig
}

// SlackConfig holds Slack configuration
type SlackConfig struct {
	WebhookURL  string
	Channel     string
	Username    string
	IconEmoji   string
	Enabled     bool
	MinSeverity models.SensitivityLevel
}

// Service handles notifications
type Service struct {
	config Config
	logger *slog.Logger
	client *http.Client
}

// NewService creates a new notification service
func NewService(config Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Slack.Username == "" {
		config.Slack.Username = "PrivaShield"
	}
	if config.Slack.IconEmoji == "" {
		config.Slack.IconEmoji = ":shield:"
	}
	if config.Slack.MinSeverity == "" {
		config.Slack.MinSeverity = models.SensitivityLow
	}

	return &Service{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether any channel would deliver.
func (s *Service) Enabled() bool {
	return s.config.Slack.Enabled && s.config.Slack.WebhookURL != ""
}

// Send sends a notification to all enabled channels
func (s *Service) Send(ctx context.Context, notif *Notification) error {
	if !s.config.Slack.Enabled || notif.Severity.Rank() < s.config.Slack.MinSeverity.Rank() {
		return nil
	}
	if err := s.sendSlack(ctx, notif); err != nil {
		return fmt.Errorf("slack: %w", err)
	}
	return nil
}

// SlackMessage represents a Slack message payload
type SlackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text,omitempty"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// SlackAttachment represents a Slack attachment
type SlackAttachment struct {
	Color     string       `json:"color,omitempty"`
	Title     string       `json:"title,omitempty"`
	Text      string       `json:"text,omitempty"`
	Fallback  string       `json:"fallback,omitempty"`
	Fields    []SlackField `json:"fields,omitempty"`
	Footer    string       `json:"footer,omitempty"`
	Timestamp int64        `json:"ts,omitempty"`
}

// SlackField represents a field in a Slack attachment
type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

func (s *Service) sendSlack(ctx context.Context, notif *Notification) error {
	msg := SlackMessage{
		Channel:   s.config.Slack.Channel,
		Username:  s.config.Slack.Username,
		IconEmoji: s.config.Slack.IconEmoji,
		Attachments: []SlackAttachment{
			{
				Color:     severityToColor(notif.Severity),
				Title:     notif.Title,
				Text:      notif.Message,
				Fallback:  fmt.Sprintf("%s: %s", notif.Title, notif.Message),
				Fields:    notif.Fields,
				Footer:    "PrivaShield leak watch",
				Timestamp: notif.Timestamp.Unix(),
			},
		},
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.Slack.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}

	s.logger.Info("slack notification sent",
		"type", notif.Type,
		"title", notif.Title)

	return nil
}

func severityToColor(severity models.SensitivityLevel) string {
	switch severity {
	case models.SensitivityHigh:
		return "#FF0000"
	case models.SensitivityMedium:
		return "#FFA500"
	default:
		return "#36A64F"
	}
}

// DigestStats summarises a cross-user rollup.
type DigestStats struct {
	Period     string
	Identities int
	Total      int
	ByLevel    map[models.SensitivityLevel]int
	TopTypes   []models.TypeCount
}

const digestTopTypes = 5

// BuildDigest folds a rollup into digest totals.
func BuildDigest(period string, rollup []models.UserLeaks) DigestStats {
	stats := DigestStats{
		Period:     period,
		Identities: len(rollup),
		ByLevel:    make(map[models.SensitivityLevel]int),
	}

	byType := make(map[string]int)
	for _, u := range rollup {
		for _, g := range u.Leaks {
			stats.Total += g.Count
			stats.ByLevel[g.SensitivityLevel] += g.Count
			byType[g.ContentType] += g.Count
		}
	}

	for t, n := range byType {
		stats.TopTypes = append(stats.TopTypes, models.TypeCount{ContentType: t, Count: n})
	}
	sort.Slice(stats.TopTypes, func(i, j int) bool {
		if stats.TopTypes[i].Count != stats.TopTypes[j].Count {
			return stats.TopTypes[i].Count > stats.TopTypes[j].Count
		}
		return stats.TopTypes[i].ContentType < stats.TopTypes[j].ContentType
	})
	if len(stats.TopTypes) > digestTopTypes {
		stats.TopTypes = stats.TopTypes[:digestTopTypes]
	}
	return stats
}

// NotifyDailyDigest sends a daily digest notification
func (s *Service) NotifyDailyDigest(ctx context.Context, stats DigestStats) error {
	top := make([]string, len(stats.TopTypes))
	for i, t := range stats.TopTypes {
		top[i] = fmt.Sprintf("%s (%d)", t.ContentType, t.Count)
	}

	notif := &Notification{
		Type:     NotifyDailyDigest,
		Title:    "Daily Leak Digest",
		Message:  fmt.Sprintf("%d sensitive items recorded across %d users", stats.Total, stats.Identities),
		Severity: digestToSeverity(stats),
		Fields: []SlackField{
			{Title: "Period", Value: stats.Period, Short: true},
			{Title: "Users", Value: fmt.Sprintf("%d", stats.Identities), Short: true},
			{Title: "HIGH", Value: fmt.Sprintf("%d", stats.ByLevel[models.SensitivityHigh]), Short: true},
			{Title: "MEDIUM", Value: fmt.Sprintf("%d", stats.ByLevel[models.SensitivityMedium]), Short: true},
			{Title: "LOW", Value: fmt.Sprintf("%d", stats.ByLevel[models.SensitivityLow]), Short: true},
			{Title: "Top types", Value: strings.Join(top, ", "), Short: false},
		},
		Timestamp: time.Now(),
	}

	return s.Send(ctx, notif)
}

func digestToSeverity(stats DigestStats) models.SensitivityLevel {
	switch {
	case stats.ByLevel[models.SensitivityHigh] > 0:
		return models.SensitivityHigh
	case stats.ByLevel[models.SensitivityMedium] > 0:
		return models.SensitivityMedium
	default:
		return models.SensitivityLow
	}
}
