package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privashield/leakwatch/internal/models"
)

func sampleRollup() []models.UserLeaks {
	return []models.UserLeaks{
		{Email: "a@x.com", Leaks: []models.LeakGroup{
			{ContentType: "EMAIL", SensitivityLevel: models.SensitivityHigh, Count: 3},
			{ContentType: "NAME", SensitivityLevel: models.SensitivityMedium, Count: 1},
		}},
		{Email: "b@x.com", Leaks: []models.LeakGroup{
			{ContentType: "EMAIL", SensitivityLevel: models.SensitivityHigh, Count: 2},
			{ContentType: "AGE", SensitivityLevel: models.SensitivityLow, Count: 4},
		}},
	}
}

func TestBuildDigest(t *testing.T) {
	stats := BuildDigest("2024-06-15", sampleRollup())

	assert.Equal(t, 2, stats.Identities)
	assert.Equal(t, 10, stats.Total)
	assert.Equal(t, 5, stats.ByLevel[models.SensitivityHigh])
	assert.Equal(t, 1, stats.ByLevel[models.SensitivityMedium])
	assert.Equal(t, 4, stats.ByLevel[models.SensitivityLow])
	assert.Equal(t, []models.TypeCount{
		{ContentType: "EMAIL", Count: 5},
		{ContentType: "AGE", Count: 4},
		{ContentType: "NAME", Count: 1},
	}, stats.TopTypes)
	assert.Equal(t, models.SensitivityHigh, digestToSeverity(stats))
}

func TestNotifyDailyDigest_PostsToWebhook(t *testing.T) {
	var got SlackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc := NewService(Config{Slack: SlackConfig{Enabled: true, WebhookURL: srv.URL, Channel: "#leaks"}}, nil)
	require.True(t, svc.Enabled())

	err := svc.NotifyDailyDigest(context.Background(), BuildDigest("2024-06-15", sampleRollup()))
	require.NoError(t, err)

	assert.Equal(t, "#leaks", got.Channel)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "Daily Leak Digest", got.Attachments[0].Title)
	assert.Equal(t, "#FF0000", got.Attachments[0].Color)
	assert.Contains(t, got.Attachments[0].Text, "10 sensitive items")
}

func TestSend_Disabled(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := NewService(Config{Slack: SlackConfig{Enabled: false, WebhookURL: srv.URL}}, nil)
	require.NoError(t, svc.NotifyDailyDigest(context.Background(), BuildDigest("today", nil)))
	assert.False(t, called)
	assert.False(t, svc.Enabled())
}

func TestSend_BelowMinSeverity(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := NewService(Config{Slack: SlackConfig{
		Enabled: true, WebhookURL: srv.URL, MinSeverity: models.SensitivityHigh,
	}}, nil)
	require.NoError(t, svc.Send(context.Background(), &Notification{Severity: models.SensitivityMedium}))
	assert.False(t, called)
}

func TestSend_WebhookError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(Config{Slack: SlackConfig{Enabled: true, WebhookURL: srv.URL}}, nil)
	err := svc.Send(context.Background(), &Notification{Severity: models.SensitivityHigh})
	assert.ErrorContains(t, err, "status 500")
}
