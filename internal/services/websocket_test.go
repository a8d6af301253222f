package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/chachabrian/railparcel-backend/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		station, _ := strconv.Atoi(r.URL.Query().Get("station"))
		_ = hub.ServeWS(w, r, 1, uint(station))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dialStation(t *testing.T, srv *httptest.Server, station uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?station=" + strconv.Itoa(int(station))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var f Frame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

func TestHubRoutesMessagesToRecipientStation(t *testing.T) {
	hub, srv := startHub(t)
	a := dialStation(t, srv, 1)
	b := dialStation(t, srv, 2)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, 2*time.Second, 10*time.Millisecond)

	err := hub.MessagesCreated(context.Background(), []models.Message{{ID: 5, FromStationID: 1, ToStationID: 2, Content: "for bravo"}})
	require.NoError(t, err)

	frame := readFrame(t, b)
	assert.Equal(t, FrameMessageCreated, frame.Type)
	data := frame.Data.(map[string]interface{})
	assert.Equal(t, "for bravo", data["content"])

	require.NoError(t, a.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err = a.ReadMessage()
	assert.Error(t, err)
}

func TestHubParcelUpdatedReachesBothEnds(t *testing.T) {
	hub, srv := startHub(t)
	a := dialStation(t, srv, 1)
	b := dialStation(t, srv, 2)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, 2*time.Second, 10*time.Millisecond)

	parcel := models.Parcel{ID: 3, TrackingNumber: "PMS-12345678", SenderStationID: 1, ReceiverStationID: 2, Status: models.ParcelStatusDelivered}
	require.NoError(t, hub.ParcelUpdated(context.Background(), parcel))

	for _, conn := range []*websocket.Conn{a, b} {
		frame := readFrame(t, conn)
		assert.Equal(t, FrameParcelUpdated, frame.Type)
		data := frame.Data.(map[string]interface{})
		assert.Equal(t, "delivered", data["status"])
		assert.Equal(t, "PMS-12345678", data["tracking_number"])
	}
}

func TestHubUnregistersClosedClients(t *testing.T) {
	hub, srv := startHub(t)
	conn := dialStation(t, srv, 1)
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, hub.BroadcastToStation(1, []byte("{}")))
}
