package metrics

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/shell-bridge/internal/relay"
	"github.com/2389/shell-bridge/internal/service"
	"github.com/2389/shell-bridge/internal/shell"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

type nopService struct{}

func (nopService) BeforeStartOrResume()                      {}
func (nopService) BeforeSuspend()                            {}
func (nopService) AfterStopped()                             {}
func (nopService) Close()                                    {}
func (nopService) ReceiveFromClient([]byte) service.Response { return service.Response{} }

func TestMetrics_ReadsSourcesAtScrape(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rl := relay.New(logger)
	reg := service.NewRegistry(rl, logger)
	reg.Register(service.NewFactory("nop", func(relay.Handle, service.Client) (service.Service, error) {
		return nopService{}, nil
	}))

	m := New(Sources{Relay: rl, Registry: reg})

	inst, err := reg.Resolve("nop", 1)
	require.NoError(t, err)
	inst.SendToClient([]byte("x")) // no delivery installed: dropped

	require.NoError(t, rl.Install(func(relay.Handle, string) {}))
	inst.SendToClient([]byte("y"))

	body := scrape(t, m)
	assert.Contains(t, body, "shell_bridge_relay_delivered_total 1")
	assert.Contains(t, body, "shell_bridge_relay_dropped_total 1")
	assert.Contains(t, body, "shell_bridge_services_live_instances 1")

	reg.CloseAll()
	assert.Contains(t, scrape(t, m), "shell_bridge_services_live_instances 0")
}

func TestMetrics_LifecycleAndHostRequests(t *testing.T) {
	m := New(Sources{})

	m.OnLifecycleEvent(shell.LifecycleEvent{Kind: shell.EventStart})
	m.OnLifecycleEvent(shell.LifecycleEvent{Kind: shell.EventStart})
	m.ObserveHostRequest("/host/start", http.StatusNoContent)
	m.ObserveDuplicate()

	body := scrape(t, m)
	assert.Contains(t, body, `shell_bridge_shell_lifecycle_events_total{kind="start"} 2`)
	assert.Contains(t, body, `shell_bridge_host_api_requests_total{code="204",route="/host/start"} 1`)
	assert.Contains(t, body, "shell_bridge_host_api_duplicate_requests_total 1")
	assert.NotContains(t, body, "shell_bridge_relay_delivered_total")
}

func TestMetrics_HubSubscribers(t *testing.T) {
	hub := relay.NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(hub.Close)
	m := New(Sources{Hub: hub})

	assert.Contains(t, scrape(t, m), "shell_bridge_bridge_subscribers 0")
}
