package registry_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/snps-steve/bd-selfscan-sub001/internal/logic/registry"
)

type fakeSource struct {
	mu      sync.Mutex
	data    []byte
	err     error
	changes chan struct{}
}

func (f *fakeSource) Describe() string { return "fake" }

func (f *fakeSource) FetchQuery(context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.data, f.err
}

func (f *fakeSource) set(data string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data = []byte(data)
	f.err = err
}

type notifyingSource struct {
	*fakeSource
}

func (n notifyingSource) Changes() <-chan struct{} { return n.changes }

type fakeRecorder struct {
	mu      sync.Mutex
	results map[string]int
	apps    int
}

func (f *fakeRecorder) RecordConfigReload(result string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.results == nil {
		f.results = map[string]int{}
	}

	f.results[result]++
}

func (f *fakeRecorder) SetRegistryApplications(count int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apps = count
}

func (f *fakeRecorder) count(result string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.results[result]
}

func TestStore_Load(t *testing.T) {
	t.Parallel()

	logger := slog.Default()

	t.Run("not loaded pings error", func(t *testing.T) {
		t.Parallel()

		store := registry.NewStore(logger, &fakeSource{}, &fakeRecorder{})

		require.Nil(t, store.Current())
		require.ErrorIs(t, store.Ping(t.Context()), registry.ErrNotLoaded)
	})

	t.Run("successful load swaps snapshot", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{}
		src.set(validDoc, nil)

		rec := &fakeRecorder{}
		store := registry.NewStore(logger, src, rec)

		got, err := store.Load(t.Context())
		require.NoError(t, err)
		require.Same(t, got, store.Current())
		require.NoError(t, store.Ping(t.Context()))
		require.Equal(t, 1, rec.count("applied"))
		require.Equal(t, 3, rec.apps)
	})

	t.Run("failed reload keeps previous snapshot", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{}
		src.set(validDoc, nil)

		rec := &fakeRecorder{}
		store := registry.NewStore(logger, src, rec)

		before, err := store.Load(t.Context())
		require.NoError(t, err)

		src.set(`
applications:
  - name: x
    namespace: ns
    labelSelector: app=x
    projectGroup: g
    policyGating: true
    policyGatingRisk: NOPE
`, nil)

		err = store.Reload(t.Context())
		require.ErrorIs(t, err, registry.ErrInvalidSeverity)
		require.Same(t, before, store.Current())
		require.Error(t, store.Ping(t.Context()))
		require.Equal(t, 1, rec.count("failed"))

		_, ok := store.Current().Lookup("Billing")
		require.True(t, ok)

		src.set(validDoc, nil)
		require.NoError(t, store.Reload(t.Context()))
		require.NoError(t, store.Ping(t.Context()))
		require.Same(t, before, store.Current(), "unchanged revision keeps the same snapshot")
		require.Equal(t, 1, rec.count("unchanged"))
	})

	t.Run("fetch error keeps previous snapshot", func(t *testing.T) {
		t.Parallel()

		src := &fakeSource{}
		src.set(validDoc, nil)

		store := registry.NewStore(logger, src, &fakeRecorder{})

		before, err := store.Load(t.Context())
		require.NoError(t, err)

		src.set("", errors.New("connection refused"))

		_, err = store.Load(t.Context())
		require.ErrorIs(t, err, registry.ErrFetch)
		require.Same(t, before, store.Current())
	})
}

func TestStore_ReloadsOnChange(t *testing.T) {
	t.Parallel()

	src := &fakeSource{changes: make(chan struct{}, 1)}
	src.set(validDoc, nil)

	store := registry.NewStore(slog.Default(), notifyingSource{src}, &fakeRecorder{})

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	require.NoError(t, store.Start(ctx))

	select {
	case <-store.Ready():
	case <-time.After(time.Second):
		t.Fatal("store did not become ready")
	}

	require.Equal(t, 3, store.Current().Len())

	src.set(`
applications:
  - name: only
    namespace: ns
    labelSelector: app=only
    projectGroup: g
`, nil)
	src.changes <- struct{}{}

	require.Eventually(t, func() bool {
		return store.Current().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()

	require.NoError(t, store.Shutdown(shutdownCtx))
}
