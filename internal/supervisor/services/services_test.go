// Votarena - Character Voting and Multi-Origin Sourcing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/votarena

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type stubHTTPServer struct {
	listenErr error
	shutdowns atomic.Int32
	block     chan struct{}
}

func (s *stubHTTPServer) ListenAndServe() error {
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.block
	return http.ErrServerClosed
}

func (s *stubHTTPServer) Shutdown(_ context.Context) error {
	s.shutdowns.Add(1)
	close(s.block)
	return nil
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	server := &stubHTTPServer{block: make(chan struct{})}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("service did not stop")
	}

	if got := server.shutdowns.Load(); got != 1 {
		t.Errorf("shutdown calls = %d, want 1", got)
	}
}

func TestHTTPServerServiceStartupFailure(t *testing.T) {
	t.Parallel()

	server := &stubHTTPServer{listenErr: errors.New("port in use")}
	svc := NewHTTPServerService(server, time.Second)

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, server.listenErr) {
		t.Errorf("Serve() error = %v, want wrapped listen error", err)
	}
}

type fakeSweeper struct {
	sweeps atomic.Int32
	err    error
}

func (f *fakeSweeper) SweepExpiredSessions(_ context.Context) (int, error) {
	f.sweeps.Add(1)
	return 1, f.err
}

func TestSweeperServiceSweepsOnInterval(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{}
	svc := NewSweeperService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sweeper.sweeps.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if got := sweeper.sweeps.Load(); got < 2 {
		t.Errorf("sweeps = %d, want at least 2", got)
	}
}

func TestSweeperServiceContinuesAfterError(t *testing.T) {
	t.Parallel()

	sweeper := &fakeSweeper{err: errors.New("db busy")}
	svc := NewSweeperService(sweeper, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for sweeper.sweeps.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if got := sweeper.sweeps.Load(); got < 3 {
		t.Errorf("sweeps = %d, want at least 3 despite errors", got)
	}
}

type fakeWarmer struct {
	calls    atomic.Int32
	failures int32
}

func (f *fakeWarmer) Warm(_ context.Context) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("upstream slow")
	}
	return nil
}

func TestWarmupServiceRetriesUntilWarm(t *testing.T) {
	t.Parallel()

	warmer := &fakeWarmer{failures: 2}
	svc := NewWarmupService("star-wars-warmup", warmer, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for warmer.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if got := warmer.calls.Load(); got != 3 {
		t.Errorf("warm calls = %d, want 3", got)
	}
}

func TestServiceNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		svc  interface{ String() string }
		want string
	}{
		{NewHTTPServerService(&stubHTTPServer{}, 0), "http-server"},
		{NewSweeperService(&fakeSweeper{}, 0), "session-sweeper"},
		{NewWarmupService("star-wars-warmup", &fakeWarmer{}, 0), "star-wars-warmup"},
	}
	for _, tt := range tests {
		if got := tt.svc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
