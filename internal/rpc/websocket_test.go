package rpc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LeJamon/goSwapd/internal/core/amount"
	"github.com/LeJamon/goSwapd/internal/core/swap"
	"github.com/LeJamon/goSwapd/internal/rpc/rpc_types"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamURL(srv *httptest.Server, query string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws" + query
}

func dial(t *testing.T, srv *httptest.Server, token, query string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.DefaultDialer.Dial(streamURL(srv, query), header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func dialStatus(t *testing.T, srv *httptest.Server, token, query string) int {
	t.Helper()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(streamURL(srv, query), header)
	if conn != nil {
		conn.Close()
	}
	require.Error(t, err)
	require.NotNil(t, resp)
	return resp.StatusCode
}

func readEvent(t *testing.T, conn *websocket.Conn) swap.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type  string     `json:"type"`
		Event swap.Event `json:"event"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "offerEvent", msg.Type)
	return msg.Event
}

func TestEventStreamRequiresCredentials(t *testing.T) {
	s := newStack(t, false)

	assert.Equal(t, http.StatusUnauthorized, dialStatus(t, s.srv, "", ""))
	assert.Equal(t, http.StatusForbidden, dialStatus(t, s.srv, "wrong", ""))
	assert.Equal(t, http.StatusForbidden, dialStatus(t, s.srv, "alice-token", "?account="+bob))
	assert.Zero(t, s.hub.ConnectionCount())

	// A hub that was never given an authenticator serves nobody.
	bare := httptest.NewServer(NewEventHub(1, nil))
	defer bare.Close()
	assert.Equal(t, http.StatusForbidden, dialStatus(t, bare, "", ""))
}

func TestEventStreamFiltersByAccount(t *testing.T) {
	s := newStack(t, false)

	all := dial(t, s.srv, "admin-token", "")
	carol := dial(t, s.srv, "admin-token", "?account=carol")
	mine := dial(t, s.srv, "alice-token", "")
	require.Eventually(t, func() bool { return s.hub.ConnectionCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H1", Accounts: []string{alice, bob}})
	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H2", Accounts: []string{"carol", bob}})
	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H3", Accounts: []string{alice, "carol"}})

	assert.Equal(t, "H1", readEvent(t, all).OfferID)
	assert.Equal(t, "H2", readEvent(t, all).OfferID)
	assert.Equal(t, "H3", readEvent(t, all).OfferID)
	assert.Equal(t, "H2", readEvent(t, carol).OfferID)
	assert.Equal(t, "H3", readEvent(t, carol).OfferID)
	assert.Equal(t, "H1", readEvent(t, mine).OfferID)
	assert.Equal(t, "H3", readEvent(t, mine).OfferID)
}

func TestEventStreamSubscribeCommand(t *testing.T) {
	s := newStack(t, false)

	conn := dial(t, s.srv, "admin-token", "?account=carol")
	require.NoError(t, conn.WriteJSON(rpc_types.WebSocketCommand{Command: "subscribe", ID: 1, Accounts: []string{alice}}))

	var resp rpc_types.WebSocketResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.EqualValues(t, 1, resp.ID)
	assert.ElementsMatch(t, []interface{}{"carol", alice}, resp.Result.(map[string]interface{})["accounts"])

	s.hub.Publish(swap.Event{Type: swap.EventOfferCancelled, OfferID: "H3", Actor: alice})
	assert.Equal(t, "H3", readEvent(t, conn).OfferID)

	require.NoError(t, conn.WriteJSON(rpc_types.WebSocketCommand{Command: "ledger"}))
	resp = rpc_types.WebSocketResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "unknownCmd", resp.Error.ErrorString)
}

func TestEventStreamUserCannotFollowOthers(t *testing.T) {
	s := newStack(t, false)

	conn := dial(t, s.srv, "alice-token", "")
	require.NoError(t, conn.WriteJSON(rpc_types.WebSocketCommand{Command: "subscribe", ID: 2, Accounts: []string{bob}}))

	var resp rpc_types.WebSocketResponse
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "forbidden", resp.Error.ErrorString)

	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H1", Accounts: []string{bob, "carol"}})
	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H2", Accounts: []string{alice, bob}})
	assert.Equal(t, "H2", readEvent(t, conn).OfferID)

	// Dropping the caller's own account silences the stream.
	require.NoError(t, conn.WriteJSON(rpc_types.WebSocketCommand{Command: "unsubscribe", ID: 3, Accounts: []string{alice}}))
	resp = rpc_types.WebSocketResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "success", resp.Status)

	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H4", Accounts: []string{alice, bob}})
	require.NoError(t, conn.WriteJSON(rpc_types.WebSocketCommand{Command: "subscribe", ID: 4, Accounts: []string{alice}}))
	resp = rpc_types.WebSocketResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.Equal(t, "success", resp.Status)
	assert.EqualValues(t, 4, resp.ID)

	s.hub.Publish(swap.Event{Type: swap.EventOfferCreated, OfferID: "H5", Accounts: []string{alice, bob}})
	assert.Equal(t, "H5", readEvent(t, conn).OfferID)
}

func TestEventStreamFromEngine(t *testing.T) {
	s := newStack(t, false)
	conn := dial(t, s.srv, "bob-token", "")
	require.Eventually(t, func() bool { return s.hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	_, err := s.call("alice-token", "offer_create", createParams("H6", amount.Zero))
	require.NoError(t, err)

	ev := readEvent(t, conn)
	assert.Equal(t, swap.EventOfferCreated, ev.Type)
	assert.Equal(t, "H6", ev.OfferID)
}

func TestEventStreamDisconnectsOnClose(t *testing.T) {
	s := newStack(t, false)

	dial(t, s.srv, "alice-token", "")
	require.Eventually(t, func() bool { return s.hub.ConnectionCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	s.hub.Close()
	assert.Zero(t, s.hub.ConnectionCount())
}
