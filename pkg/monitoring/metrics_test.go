package monitoring

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	return rec.Body.String()
}

func TestEventsCounter(t *testing.T) {
	m := New()
	m.EventsProcessed(3)
	m.EventsProcessed(2)

	body := scrape(t, m)
	assert.Contains(t, body, "spectrum_events_processed_total 5")
}

func TestPopulationGauges(t *testing.T) {
	m := New()
	m.Population(4, 2, 7)

	body := scrape(t, m)
	assert.Contains(t, body, "spectrum_parameters 4")
	assert.Contains(t, body, "spectrum_conditions 2")
	assert.Contains(t, body, "spectrum_spectra 7")
}

func TestMirrorGauge(t *testing.T) {
	m := New()
	m.MirrorConnected()
	m.MirrorConnected()
	m.MirrorDisconnected()

	body := scrape(t, m)
	assert.Contains(t, body, "spectrum_mirror_clients 1")
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.EventsProcessed(1)

	assert.True(t, strings.Contains(scrape(t, a), "spectrum_events_processed_total 1"))
	assert.True(t, strings.Contains(scrape(t, b), "spectrum_events_processed_total 0"))
}
