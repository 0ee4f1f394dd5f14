package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

func dialWS(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close() //nolint:errcheck
	t.Cleanup(func() { conn.Close() }) //nolint:errcheck
	return conn
}

// readUntil reads messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) wsOutbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg wsOutbound
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg
		}
	}
}

func TestWS_RequiresStaff(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWS_EditFlowReachesOtherSessions(t *testing.T) {
	srv, st := newTestServer(t)
	c := seed(t, st, "Ravi", "Meera")[0]
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	editor := dialWS(t, ts, "staff_id=u1&staff_name=Asha")
	watcher := dialWS(t, ts, "staff_id=u2&staff_name=Vikram")

	snap := readUntil(t, editor, msgSnapshot)
	require.Len(t, snap.Clients, 2)
	readUntil(t, watcher, msgSnapshot)

	require.NoError(t, editor.WriteJSON(wsInbound{Type: msgStartEdit, ClientID: c.ID, Field: "lead_type"}))
	state := readUntil(t, editor, msgEditing)
	assert.Equal(t, c.ID, state.ClientID)
	assert.Equal(t, "cold", *state.Value)

	hot := "hot"
	require.NoError(t, editor.WriteJSON(wsInbound{Type: msgSetValue, Value: &hot}))
	readUntil(t, editor, msgEditing)
	require.NoError(t, editor.WriteJSON(wsInbound{Type: msgCommit}))

	saved := readUntil(t, editor, msgSaved)
	assert.Equal(t, model.LeadTypeHot, saved.Client.LeadType)

	change := readUntil(t, watcher, msgChange)
	require.NotNil(t, change.Event)
	assert.Equal(t, model.ChangeUpdate, change.Event.Type)
	assert.Equal(t, model.LeadTypeHot, change.Event.Record.LeadType)
}

func TestWS_CommitErrorKeepsEditing(t *testing.T) {
	srv, st := newTestServer(t)
	c := seed(t, st, "Ravi")[0]
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts, "staff_id=u1")
	readUntil(t, conn, msgSnapshot)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgStartEdit, ClientID: c.ID, Field: "expected_visit_date"}))
	readUntil(t, conn, msgEditing)
	bad := "next tuesday"
	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgSetValue, Value: &bad}))
	readUntil(t, conn, msgEditing)
	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgCommit}))

	errMsg := readUntil(t, conn, msgError)
	assert.Equal(t, "validation_error", errMsg.Error.Code)
	state := readUntil(t, conn, msgEditing)
	assert.Equal(t, "next tuesday", *state.Value)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgCancel}))
	readUntil(t, conn, msgIdle)
}

func TestWS_ScopedInsertAndComment(t *testing.T) {
	srv, st := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts, "staff_id=u1&staff_name=Asha&sheet=north")
	snap := readUntil(t, conn, msgSnapshot)
	assert.Empty(t, snap.Clients)

	// An import into another sheet is not delivered; one into north is.
	rec := upload(t, srv.Handler(), "a.csv", []byte("Client Name\nSouthie\n"), map[string]string{"sheet_id": "south"})
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = upload(t, srv.Handler(), "b.csv", []byte("Client Name\nNorthie\n"), map[string]string{"sheet_id": "north"})
	require.Equal(t, http.StatusCreated, rec.Code)

	change := readUntil(t, conn, msgChange)
	require.Equal(t, model.ChangeInsert, change.Event.Type)
	assert.Equal(t, "Northie", change.Event.Record.ClientName)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgAddComment, ClientID: change.Event.ID, Comment: "call at 5"}))
	saved := readUntil(t, conn, msgSaved)
	assert.Equal(t, "call at 5", *saved.Client.CallingComment)

	clients, err := st.ListClients(t.Context(), store.ClientFilter{SheetID: "north"})
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Len(t, clients[0].CallingCommentHistory, 1)
}

func TestWS_UnknownMessage(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	conn := dialWS(t, ts, "staff_id=u1")
	readUntil(t, conn, msgSnapshot)
	require.NoError(t, conn.WriteJSON(wsInbound{Type: "dance"}))
	assert.Equal(t, "validation_error", readUntil(t, conn, msgError).Error.Code)

	require.NoError(t, conn.WriteJSON(wsInbound{Type: msgStartEdit, ClientID: "nope", Field: "lead_type"}))
	assert.Equal(t, "not_found", readUntil(t, conn, msgError).Error.Code)
}
