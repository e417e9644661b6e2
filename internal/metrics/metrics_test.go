package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"procwatch/internal/watchdog"
)

func TestObserveCountsByKind(t *testing.T) {
	c := New()
	c.Observe(watchdog.Event{Kind: watchdog.EventKilled})
	c.Observe(watchdog.Event{Kind: watchdog.EventKilled})
	c.Observe(watchdog.Event{Kind: watchdog.EventBound})

	assert.Equal(t, 2.0, testutil.ToFloat64(c.events.WithLabelValues("killed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("bound")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.events.WithLabelValues("kill_failed")))
}

func TestRegistryGauges(t *testing.T) {
	c := New()
	c.TrackRegistry(func() (int, int) { return 3, 1 })

	expected := `
# HELP procwatch_bound_entries Watch entries currently bound to a process
# TYPE procwatch_bound_entries gauge
procwatch_bound_entries 1
# HELP procwatch_entries Registered watch entries
# TYPE procwatch_entries gauge
procwatch_entries 3
`
	require.NoError(t, testutil.GatherAndCompare(c.Gatherer(), strings.NewReader(expected),
		"procwatch_entries", "procwatch_bound_entries"))
}

func TestHandlerServesText(t *testing.T) {
	c := New()
	c.Observe(watchdog.Event{Kind: watchdog.EventExited})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `procwatch_events_total{kind="exited"} 1`)
}
