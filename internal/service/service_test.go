// ABOUTME: Shared fakes for service package tests: a recording service and capturing relay.

package service

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/2389/shell-bridge/internal/relay"
)

// fakeService echoes requests and counts hook invocations.
type fakeService struct {
	handle relay.Handle
	client Client

	resumes  atomic.Int32
	suspends atomic.Int32
	stops    atomic.Int32
	closes   atomic.Int32
}

func (f *fakeService) BeforeStartOrResume() { f.resumes.Add(1) }
func (f *fakeService) BeforeSuspend()       { f.suspends.Add(1) }
func (f *fakeService) AfterStopped()        { f.stops.Add(1) }
func (f *fakeService) Close()               { f.closes.Add(1) }

func (f *fakeService) ReceiveFromClient(data []byte) Response {
	return Response{Data: data}
}

// fakeFactory records every service it creates.
type fakeFactory struct {
	name string

	mu      sync.Mutex
	created []*fakeService
}

func (f *fakeFactory) Name() string { return f.name }

func (f *fakeFactory) Create(handle relay.Handle, client Client) (Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	svc := &fakeService{handle: handle, client: client}
	f.created = append(f.created, svc)
	return svc, nil
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeFactory) last() *fakeService {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created[len(f.created)-1]
}

// sink captures relay deliveries.
type sink struct {
	mu    sync.Mutex
	items []relay.Message
}

func (s *sink) deliver(handle relay.Handle, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, relay.Message{Kind: relay.KindPush, Handle: handle, Payload: payload})
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func newTestRegistry(t *testing.T) (*Registry, *sink) {
	t.Helper()
	rl := relay.New(slog.Default())
	s := &sink{}
	require.NoError(t, rl.Install(s.deliver))
	return NewRegistry(rl, slog.Default()), s
}
