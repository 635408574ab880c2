package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tritonhub/tritonhub/pkg/domain"
	"github.com/tritonhub/tritonhub/pkg/pipeline"
)

type mockConfig struct {
	listen  string
	timeout time.Duration
}

func (m *mockConfig) GetServerConfig() (string, time.Duration) {
	return m.listen, m.timeout
}

type mockFeed struct {
	snapshot    *pipeline.Snapshot
	snapshotErr error
	syncErr     error
	lastErr     error
	syncCalls   int
}

func (m *mockFeed) Snapshot() (*pipeline.Snapshot, error) {
	return m.snapshot, m.snapshotErr
}

func (m *mockFeed) SyncNow(_ context.Context) (*pipeline.Snapshot, error) {
	m.syncCalls++
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.snapshot, nil
}

func (m *mockFeed) LastError() error { return m.lastErr }

type mockStore struct {
	notifications []domain.Notification
	created       []domain.Notification
	completed     []int64
	readItems     []string
	doneItems     []string
	err           error
}

func (m *mockStore) ListNotifications(_ context.Context, _ string) ([]domain.Notification, error) {
	return m.notifications, m.err
}

func (m *mockStore) CreateNotification(_ context.Context, n *domain.Notification) error {
	if m.err != nil {
		return m.err
	}
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, *n)
	return nil
}

func (m *mockStore) SetNotificationCompleted(_ context.Context, _ string, id int64, _ bool) error {
	if m.err != nil {
		return m.err
	}
	m.completed = append(m.completed, id)
	return nil
}

func (m *mockStore) MarkItemRead(_ context.Context, _, itemID string) error {
	if m.err != nil {
		return m.err
	}
	m.readItems = append(m.readItems, itemID)
	return nil
}

func (m *mockStore) MarkItemCompleted(_ context.Context, _, itemID string) error {
	if m.err != nil {
		return m.err
	}
	m.doneItems = append(m.doneItems, itemID)
	return nil
}

type mockParser struct {
	parsed []domain.Notification
	err    error
}

func (m *mockParser) Parse(_ context.Context, _ string) ([]domain.Notification, error) {
	return m.parsed, m.err
}

func newTestServer(feed Feed, store Store, parser Parser) *Server {
	cfg := &mockConfig{listen: ":0", timeout: 5 * time.Second}
	return New(cfg, feed, store, parser, time.UTC, "test", false)
}

func TestServer_Middleware(t *testing.T) {
	srv := newTestServer(&mockFeed{}, &mockStore{}, nil)

	t.Run("ping", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
	})

	t.Run("app info header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", http.NoBody))
		assert.Equal(t, "tritonhub", rec.Header().Get("App-Name"))
	})
}

func TestServer_Run_GracefulShutdown(t *testing.T) {
	srv := newTestServer(&mockFeed{}, &mockStore{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
