// ABOUTME: Shared setup for gateway tests: config, in-memory gRPC transport, HTTP helpers.
// ABOUTME: Each test gets its own shell host so coordinators never leak between tests.

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/2389/shell-bridge/internal/config"
	"github.com/2389/shell-bridge/internal/shell"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// testLogger creates a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns defaults with durations resolved.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Services.Clock.Interval = time.Second
	cfg.HostAPI.DedupeTTL = 5 * time.Minute
	return cfg
}

type testGateway struct {
	*Gateway
	mock *clock.Mock
	http *httptest.Server
}

func newTestGateway(t *testing.T, mutate func(*config.Config)) *testGateway {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}

	mock := clock.NewMock()
	gw, err := NewWithOptions(cfg, testLogger(), Options{
		Host:  shell.NewHost(nil),
		Clock: mock,
	})
	require.NoError(t, err)

	srv := httptest.NewServer(gw.Handler())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, gw.Shutdown(ctx))
	})

	return &testGateway{Gateway: gw, mock: mock, http: srv}
}

// dialBridge serves the gateway's gRPC server over bufconn and returns a client.
func (tg *testGateway) dialBridge(t *testing.T, opts ...grpc.DialOption) *BridgeClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	go func() { _ = tg.grpcServer.Serve(lis) }()

	opts = append([]grpc.DialOption{
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.NewClient("passthrough:///bufnet", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewBridgeClient(conn)
}

func (tg *testGateway) post(t *testing.T, path string, body any, header ...string) *http.Response {
	t.Helper()

	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, tg.http.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	resp, err := tg.http.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (tg *testGateway) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := tg.http.Client().Get(tg.http.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (tg *testGateway) attach(t *testing.T, hostID, deepLink string) AttachResponse {
	t.Helper()
	resp := tg.post(t, "/host/attach", AttachRequest{HostID: hostID, DeepLink: deepLink})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out AttachResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestGateway_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	gw, err := NewWithOptions(cfg, testLogger(), Options{Host: shell.NewHost(nil), Clock: clock.NewMock()})
	require.NoError(t, err)

	grpcLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Serve(ctx, grpcLn, httpLn) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + httpLn.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}

	assert.NoError(t, gw.Shutdown(context.Background()), "second shutdown returns first result")
}

func TestGateway_ShutdownClosesServices(t *testing.T) {
	tg := newTestGateway(t, nil)
	tg.attach(t, "main", "")
	client := tg.dialBridge(t)

	require.NoError(t, client.Resolve(context.Background(), "clock", 1))
	coord := tg.Host().Current()
	require.Equal(t, 1, coord.Registry().LiveCount())

	require.NoError(t, tg.Shutdown(context.Background()))
	assert.True(t, coord.IsShutdown())
	assert.Zero(t, coord.Registry().LiveCount())
}

func TestNewWithOptions_BadStorePath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewWithOptions(testConfigWith(func(c *config.Config) {
		c.Database.Path = filepath.Join(blocker, "ledger.db")
	}), testLogger(), Options{Host: shell.NewHost(nil)})
	assert.Error(t, err)
}

func TestNewWithOptions_ShortSecret(t *testing.T) {
	_, err := NewWithOptions(testConfigWith(func(c *config.Config) {
		c.Auth.JWTSecret = "short"
	}), testLogger(), Options{Host: shell.NewHost(nil)})
	assert.Error(t, err)
}

func testConfigWith(mutate func(*config.Config)) *config.Config {
	cfg := testConfig()
	mutate(cfg)
	return cfg
}

// lockedBuffer is a goroutine-safe log sink.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestNewWithOptions_RelayLogsComponentOnce(t *testing.T) {
	var out lockedBuffer
	logger := slog.New(slog.NewJSONHandler(&out, nil))

	gw, err := NewWithOptions(testConfig(), logger, Options{
		Host:  shell.NewHost(nil),
		Clock: clock.NewMock(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, gw.Shutdown(context.Background())) })

	assert.False(t, gw.relay.Deliver(1, []byte("early")))

	var line string
	for _, l := range strings.Split(out.String(), "\n") {
		if strings.Contains(l, "push dropped") {
			line = l
		}
	}
	require.NotEmpty(t, line)
	assert.Equal(t, 1, strings.Count(line, `"component":`), line)
	assert.Contains(t, line, `"component":"relay"`)
}
