// internal/server/server_test.go
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/live"
	"jobtrack/internal/models"
	"jobtrack/internal/store"
)

type fakeConn struct {
	mu     sync.Mutex
	events []live.Envelope
}

func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, v.(live.Envelope))
	return nil
}

func (f *fakeConn) received() []live.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]live.Envelope, len(f.events))
	copy(out, f.events)
	return out
}

// waitForEvents polls until the connection has received at least n
// pushes; the hub delivers on a per-client write loop.
func waitForEvents(t *testing.T, c *fakeConn, n int) []live.Envelope {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(c.received()) >= n
	}, time.Second, 5*time.Millisecond)
	return c.received()
}

func newTestServer(t *testing.T) (*Server, *store.Apps, *live.Hub) {
	t.Helper()
	log := logger.NewNoOpLogger()
	apps := store.NewApps(store.NewFileStore(filepath.Join(t.TempDir(), "data.json")), log)
	hub := live.NewHub(log)
	srv, err := New(apps, hub, log)
	require.NoError(t, err)
	return srv, apps, hub
}

func postJSON(t *testing.T, srv *Server, path, body string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestJobStatusStoresRecord(t *testing.T) {
	srv, apps, _ := newTestServer(t)

	code, body := postJSON(t, srv, "/jobstatuses",
		`{"company":"Acme","date":"2024-05-01","status":"pending","user_email":"hr@acme.com"}`)

	assert.Equal(t, 200, code)
	var records []models.ApplicationRecord
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1)
	assert.Equal(t, "Acme", records[0].Company)
	assert.Equal(t, "hr@acme.com", records[0].CompanyEmail)

	stored, err := apps.Get(context.Background(), DemoUser)
	require.NoError(t, err)
	assert.Equal(t, records, stored)
}

func TestJobStatusOverwritesSameCompany(t *testing.T) {
	srv, _, _ := newTestServer(t)

	postJSON(t, srv, "/jobstatuses",
		`{"company":"Acme","date":"2024-05-01","status":"pending","user_email":"hr@acme.com"}`)
	code, body := postJSON(t, srv, "/jobstatuses",
		`{"company":"Acme","date":"2024-06-01","status":"acceptance","user_email":"talent@acme.com"}`)

	assert.Equal(t, 200, code)
	var records []models.ApplicationRecord
	require.NoError(t, json.Unmarshal(body, &records))
	require.Len(t, records, 1, "same company replaces the record")
	assert.Equal(t, models.StatusAcceptance, records[0].Status)
	assert.Equal(t, "2024-06-01", records[0].Date)
}

func TestJobStatusRejectsMissingFields(t *testing.T) {
	srv, apps, _ := newTestServer(t)

	code, body := postJSON(t, srv, "/jobstatuses", `{"company":"Acme","date":"2024-05-01"}`)

	assert.Equal(t, 400, code)
	assert.Contains(t, string(body), "missing or invalid fields")
	stored, err := apps.Get(context.Background(), DemoUser)
	require.NoError(t, err)
	assert.Empty(t, stored, "rejected submissions never reach the store")
}

func TestJobStatusRejectsMalformedJSON(t *testing.T) {
	srv, _, _ := newTestServer(t)

	code, _ := postJSON(t, srv, "/jobstatuses", `{broken`)
	assert.Equal(t, 400, code)
}

func TestJobStatusBroadcastsUpdatedList(t *testing.T) {
	srv, _, hub := newTestServer(t)
	conn := &fakeConn{}
	hub.Add(conn)

	postJSON(t, srv, "/jobstatuses",
		`{"company":"Acme","date":"2024-05-01","status":"pending","user_email":"hr@acme.com"}`)

	events := waitForEvents(t, conn, 1)
	assert.Equal(t, live.EventApplicationsUpdate, events[0].Event)
}

func TestEmailsBroadcastsBatchVerbatim(t *testing.T) {
	srv, _, hub := newTestServer(t)
	conn := &fakeConn{}
	hub.Add(conn)

	code, body := postJSON(t, srv, "/emails", `[{"subject":"hello","sender":"a@b.com"}]`)

	assert.Equal(t, 200, code)
	assert.Contains(t, string(body), "Emails stored successfully")
	events := waitForEvents(t, conn, 1)
	assert.Equal(t, live.EventEmailUpdate, events[0].Event)
	assert.NotNil(t, hub.LastBatch(), "batch is kept for replay to late joiners")
}

func TestEmailsRejectsMalformedJSON(t *testing.T) {
	srv, _, hub := newTestServer(t)

	code, _ := postJSON(t, srv, "/emails", `not json`)
	assert.Equal(t, 400, code)
	assert.Nil(t, hub.LastBatch())
}

func TestUsersListsDemoAccount(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/users", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), DemoUser)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/metrics", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 200, resp.StatusCode)
}

func TestWSRouteRequiresUpgrade(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/ws", nil)
	resp, err := srv.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, 426, resp.StatusCode)
}
