package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"qgo-dispatch/internal/middleware"
	"qgo-dispatch/internal/mirror"
	"qgo-dispatch/internal/models"
	"qgo-dispatch/internal/session"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "ws-secret"

type fixedSource struct {
	mu    sync.Mutex
	state *mirror.State
}

func (f *fixedSource) State() *mirror.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

type recordedLocations struct {
	mu   sync.Mutex
	seen map[string]models.Location
}

func (r *recordedLocations) UpdateDriverLocation(_ context.Context, id string, loc models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[id] = loc
	return nil
}

func (r *recordedLocations) get(id string) (models.Location, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.seen[id]
	return loc, ok
}

type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func startHub(t *testing.T) (*Hub, *httptest.Server, *recordedLocations) {
	t.Helper()
	state := mirror.Reduce(mirror.Initial(), mirror.DriversReplaced{Drivers: []models.Driver{
		{ID: "D1", Name: "Rajesh Kumar", Password: "1234", Status: models.DriverStatusOnline},
	}})
	locs := &recordedLocations{seen: map[string]models.Location{}}
	hub := NewHub(&fixedSource{state: state}, locs)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	srv := httptest.NewServer(HandleWebSocket(hub, secret))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv, locs
}

func dial(t *testing.T, srv *httptest.Server, sess session.Session) *websocket.Conn {
	t.Helper()
	token, err := middleware.IssueToken(secret, sess, "dev-1", time.Now())
	require.NoError(t, err)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestSnapshotOnConnect(t *testing.T) {
	_, srv, _ := startHub(t)
	conn := dial(t, srv, session.Admin{})

	msg := read(t, conn)
	assert.Equal(t, "snapshot", msg.Type)
	assert.Contains(t, string(msg.Data), `"view":"admin_dashboard"`)
	assert.Contains(t, string(msg.Data), "Rajesh Kumar")
	assert.NotContains(t, string(msg.Data), "1234")
}

func TestPublishReachesEverySession(t *testing.T) {
	hub, srv, _ := startHub(t)
	admin := dial(t, srv, session.Admin{})
	driver := dial(t, srv, session.Driver{ID: "D1"})
	read(t, admin)
	read(t, driver)
	require.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.CountByRole(session.RoleDriver))

	next := mirror.Reduce(mirror.Initial(), mirror.JobsReplaced{Jobs: []models.Job{
		{ID: "J200", DriverID: "D1", Status: models.JobStatusPending},
	}})
	hub.Publish(next)

	assert.Contains(t, string(read(t, admin).Data), "J200")
	portal := read(t, driver)
	assert.Contains(t, string(portal.Data), `"view":"driver_portal"`)
	assert.Contains(t, string(portal.Data), "J200")
}

func TestPingAndLocation(t *testing.T) {
	_, srv, locs := startHub(t)
	conn := dial(t, srv, session.Driver{ID: "D1"})
	read(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", read(t, conn).Type)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "location_update",
		"data": map[string]float64{"lat": 28.6, "lng": 77.2},
	}))
	require.Eventually(t, func() bool {
		loc, ok := locs.get("D1")
		return ok && loc.Lat == 28.6
	}, time.Second, 5*time.Millisecond)
}

func TestAdminCannotReportLocation(t *testing.T) {
	_, srv, locs := startHub(t)
	conn := dial(t, srv, session.Admin{})
	read(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type": "location_update",
		"data": map[string]float64{"lat": 1, "lng": 1},
	}))
	assert.Equal(t, "error", read(t, conn).Type)
	_, ok := locs.get("")
	assert.False(t, ok)
}

func TestRejectsBadToken(t *testing.T) {
	_, srv, _ := startHub(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?token=nope"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestRepliesNeverDisplaceSnapshots(t *testing.T) {
	c := NewClient(session.Admin{}, "device-1", nil, nil)
	snapshot := []byte(`{"type":"snapshot"}`)
	c.trySend(snapshot)

	for i := 0; i < 3*controlBuffer; i++ {
		c.reply(Envelope{Type: "pong"})
	}

	require.Len(t, c.send, 1)
	assert.Equal(t, snapshot, <-c.send)
	assert.Len(t, c.control, controlBuffer)

	c.close()
	c.reply(Envelope{Type: "error", Data: "late"})
	assert.Len(t, c.control, controlBuffer)
}
