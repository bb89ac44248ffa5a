package shell

import (
	"sync"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHost_ColdThenWarmBuildsOnce(t *testing.T) {
	mock := clock.NewMock()
	host := newTestHost(mock)

	first, start, err := host.OnHostAttach(HostRef{ID: "a"}, []string{"--x"}, "")
	require.NoError(t, err)
	assert.Equal(t, ColdStart, start)
	assert.Equal(t, []string{"--x"}, first.Args())

	second, start, err := host.OnHostAttach(HostRef{ID: "b"}, []string{"--y"}, "")
	require.NoError(t, err)
	assert.Equal(t, WarmStart, start)
	assert.Same(t, first, second)
	assert.Equal(t, []string{"--x"}, second.Args(), "warm start keeps original args")
	assert.Same(t, first, host.Current())
}

func TestHost_CreateTwiceFails(t *testing.T) {
	host := newTestHost(clock.NewMock())

	_, err := host.Create(nil, "")
	require.NoError(t, err)

	_, err = host.Create(nil, "")
	assert.ErrorIs(t, err, ErrDuplicateCoordinator)
}

func TestHost_CallsBeforeAttachFail(t *testing.T) {
	host := newTestHost(clock.NewMock())

	assert.Nil(t, host.Current())
	assert.ErrorIs(t, host.OnUiStart(HostRef{ID: "a"}), ErrNotPresent)
	assert.ErrorIs(t, host.OnUiStop(HostRef{ID: "a"}), ErrNotPresent)
	assert.ErrorIs(t, host.OnUiDestroy(HostRef{ID: "a"}), ErrNotPresent)
	assert.ErrorIs(t, host.OnNewDeepLink("app://x"), ErrNotPresent)
}

func TestHost_ConcurrentAttachBuildsOnce(t *testing.T) {
	host := newTestHost(clock.NewMock())

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		colds int
		seen  = map[*Coordinator]bool{}
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			coord, start, err := host.OnHostAttach(HostRef{ID: "s"}, nil, "")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			seen[coord] = true
			if start == ColdStart {
				colds++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, colds)
	assert.Len(t, seen, 1)
}

func TestHost_WarmStartForwardsDeepLink(t *testing.T) {
	host := newTestHost(clock.NewMock())

	coord, _, err := host.OnHostAttach(HostRef{ID: "a"}, nil, "app://first")
	require.NoError(t, err)

	_, _, err = host.OnHostAttach(HostRef{ID: "b"}, nil, "app://second")
	require.NoError(t, err)

	link, ok := coord.PendingDeepLink()
	require.True(t, ok)
	assert.Equal(t, "app://second", link)
}

func TestHost_AttachAfterShutdownFails(t *testing.T) {
	host := newTestHost(clock.NewMock())

	_, _, err := host.OnHostAttach(HostRef{ID: "a"}, nil, "")
	require.NoError(t, err)
	require.NoError(t, host.OnUiDestroy(HostRef{ID: "a", Finishing: true}))

	_, _, err = host.OnHostAttach(HostRef{ID: "b"}, nil, "")
	assert.ErrorIs(t, err, ErrShutdown)
}

func TestHost_NilOptionsFunc(t *testing.T) {
	host := NewHost(nil)

	coord, err := host.Create([]string{"a"}, "app://start")
	require.NoError(t, err)
	t.Cleanup(coord.Shutdown)

	assert.Equal(t, []string{"a"}, coord.Args())
	link, ok := coord.PendingDeepLink()
	assert.True(t, ok)
	assert.Equal(t, "app://start", link)
}

func TestProcess_ReturnsSameHost(t *testing.T) {
	assert.Same(t, Process(), Process())
}

func TestStart_String(t *testing.T) {
	assert.Equal(t, "cold", ColdStart.String())
	assert.Equal(t, "warm", WarmStart.String())
	assert.Equal(t, "unknown", Start(0).String())
}
