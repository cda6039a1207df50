package monitoring

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cellsleep/config"
	coremon "github.com/kilianp07/cellsleep/core/monitoring"
)

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorInvalidDSN(t *testing.T) {
	_, err := NewSentryMonitor(config.SentryConfig{DSN: "::not a dsn"})
	assert.Error(t, err)
}

func TestSentryMonitorTags(t *testing.T) {
	var got []*sentry.Event
	require.NoError(t, sentry.Init(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			got = append(got, ev)
			return nil
		},
	}))
	m := &sentryMonitor{hub: sentry.CurrentHub()}

	m.CaptureException(nil, nil)
	m.CaptureException(errors.New("query failed"), map[string]string{"module": "sleep", "macro": "64"})
	m.CaptureException(errors.New("publish failed"), nil)

	require.Len(t, got, 2)
	assert.Equal(t, "sleep", got[0].Tags["module"])
	assert.Equal(t, "64", got[0].Tags["macro"])
	assert.NotContains(t, got[1].Tags, "macro")
}
