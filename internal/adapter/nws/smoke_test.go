//go:build nws

package nws

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real NWS API and need NWS_USER_AGENT set to a contact string.
// Run with: go test -tags=nws ./internal/adapter/nws/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	ua := os.Getenv("NWS_USER_AGENT")
	if ua == "" {
		t.Fatal("NWS_USER_AGENT must be set to run smoke tests")
	}
	return NewClient(Options{
		UserAgent: ua,
		Timeout:   10 * time.Second,
		Interval:  200 * time.Millisecond,
	}, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSmoke_Elevation_Denver(t *testing.T) {
	c := smokeClient(t)

	got, err := c.Elevation(context.Background(), 39.7392, -104.9903)
	require.NoError(t, err)
	assert.InDelta(t, 1600, got, 150, "Denver sits near one mile up")
}

func TestSmoke_Elevation_Mexico(t *testing.T) {
	c := smokeClient(t)

	_, err := c.Elevation(context.Background(), 25.6866, -100.3161)
	require.ErrorIs(t, err, domain.ErrNoCoverage)
}
