package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mirrorgram/mirrorgram/internal/driver"
	"github.com/mirrorgram/mirrorgram/internal/offset"
	"github.com/mirrorgram/mirrorgram/pkg/message"
)

type fakeSource struct {
	statuses []driver.PairStatus
}

func (s *fakeSource) Status() []driver.PairStatus { return s.statuses }

type fakeStore struct {
	entries []offset.Entry
	err     error
}

func (s *fakeStore) Load(context.Context, message.Pair) (int64, bool, error) { return 0, false, nil }
func (s *fakeStore) Commit(context.Context, message.Pair, int64) error       { return nil }
func (s *fakeStore) All(context.Context) ([]offset.Entry, error)             { return s.entries, s.err }
func (s *fakeStore) Close() error                                            { return nil }

func newTestGateway(cfg Config, source StatusSource, store offset.Store) *Gateway {
	g := New(cfg, source, store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	g.startedAt = time.Now()
	return g
}

func TestHealth_OK(t *testing.T) {
	t.Parallel()
	source := &fakeSource{statuses: []driver.PairStatus{
		{Pair: "-100111 -> -100222/9", State: driver.StateSleeping},
	}}
	g := newTestGateway(Config{}, source, &fakeStore{})

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Pairs != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestHealth_DegradedOnPairError(t *testing.T) {
	t.Parallel()
	source := &fakeSource{statuses: []driver.PairStatus{
		{Pair: "a", State: driver.StateSleeping},
		{Pair: "b", State: driver.StateSleeping, LastError: "chat not found"},
	}}
	g := newTestGateway(Config{}, source, &fakeStore{})

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" {
		t.Errorf("response = %+v", resp)
	}
}

func TestStatus_ReturnsPairsAndOffsets(t *testing.T) {
	t.Parallel()
	source := &fakeSource{statuses: []driver.PairStatus{
		{Pair: "-1 -> -2", State: driver.StateIdle, Forwarded: 7, Offset: 42},
	}}
	store := &fakeStore{entries: []offset.Entry{
		{Pair: "-1 -> -2", MessageID: 42, UpdatedAt: time.Now()},
	}}
	g := newTestGateway(Config{}, source, store)

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Pairs) != 1 || resp.Pairs[0].Forwarded != 7 {
		t.Errorf("pairs = %+v", resp.Pairs)
	}
	if len(resp.Offsets) != 1 || resp.Offsets[0].MessageID != 42 {
		t.Errorf("offsets = %+v", resp.Offsets)
	}
}

func TestStatus_StoreFailure(t *testing.T) {
	t.Parallel()
	g := newTestGateway(Config{}, &fakeSource{}, &fakeStore{err: errors.New("database is locked")})

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStatus_BearerAuth(t *testing.T) {
	t.Parallel()
	g := newTestGateway(Config{AuthToken: "s3cret"}, &fakeSource{}, &fakeStore{})
	router := g.buildRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: status = %d", rec.Code)
	}
}

func TestStatus_AuthDoesNotGateHealth(t *testing.T) {
	t.Parallel()
	g := newTestGateway(Config{AuthToken: "s3cret"}, &fakeSource{}, &fakeStore{})

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health must stay public: status = %d", rec.Code)
	}
}

func TestMetrics_Exposed(t *testing.T) {
	t.Parallel()
	g := newTestGateway(Config{}, &fakeSource{}, &fakeStore{})

	rec := httptest.NewRecorder()
	g.buildRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
