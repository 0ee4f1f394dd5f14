package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/sells-group/estate-crm/internal/crm"
	"github.com/sells-group/estate-crm/internal/model"
	"github.com/sells-group/estate-crm/internal/store"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 64 << 10
)

// Inbound message types.
const (
	msgStartEdit  = "start_edit"
	msgSetValue   = "set_value"
	msgCommit     = "commit"
	msgCancel     = "cancel"
	msgAddComment = "add_comment"
)

// Outbound message types.
const (
	msgSnapshot = "snapshot"
	msgChange   = "change"
	msgEditing  = "editing"
	msgIdle     = "idle"
	msgSaved    = "saved"
	msgError    = "error"
)

type wsInbound struct {
	Type     string  `json:"type"`
	ClientID string  `json:"client_id,omitempty"`
	Field    string  `json:"field,omitempty"`
	Value    *string `json:"value,omitempty"`
	Comment  string  `json:"comment,omitempty"`
}

type wsOutbound struct {
	Type     string             `json:"type"`
	Clients  []model.Client     `json:"clients,omitempty"`
	Event    *model.ChangeEvent `json:"event,omitempty"`
	Client   *model.Client      `json:"client,omitempty"`
	ClientID string             `json:"client_id,omitempty"`
	Field    model.Field        `json:"field,omitempty"`
	Value    *string            `json:"value,omitempty"`
	Error    *errorBody         `json:"error,omitempty"`
}

// wsSession binds one socket to a grid and an editor. Inbound messages are
// handled on the read goroutine, which is the editor's only driver; remote
// change events are merged from a second goroutine. Writes are serialized.
type wsSession struct {
	conn   *websocket.Conn
	grid   *crm.Grid
	editor *crm.Editor
	log    *zap.Logger

	writeMu sync.Mutex
}

// handleWS upgrades to a WebSocket scoped to ?sheet= (all sheets when
// empty). The acting staff member comes from the staff headers or the
// staff_id and staff_name query parameters.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "staff identity is required", nil)
		return
	}
	sheet := r.URL.Query().Get("sheet")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		zap.L().Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Subscribe before loading so no change between the two is lost; replays
	// merge idempotently.
	events, err := s.st.Subscribe(ctx, sheet)
	if err != nil {
		zap.L().Error("websocket subscribe failed", zap.String("sheet", sheet), zap.Error(err))
		return
	}
	clients, err := s.st.ListClients(ctx, store.ClientFilter{SheetID: sheet})
	if err != nil {
		zap.L().Error("websocket load failed", zap.String("sheet", sheet), zap.Error(err))
		return
	}

	grid := crm.NewGrid(sheet)
	grid.Load(clients)
	sess := &wsSession{
		conn:   conn,
		grid:   grid,
		editor: crm.NewEditor(s.svc, grid, actor),
		log:    zap.L().With(zap.String("staff_id", actor.ID), zap.String("sheet", sheet)),
	}
	sess.log.Info("websocket connected", zap.Int("clients", grid.Len()))

	if clients == nil {
		clients = []model.Client{}
	}
	if err := sess.send(wsOutbound{Type: msgSnapshot, Clients: clients}); err != nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sess.forward(ctx, events)
	}()

	sess.readLoop(ctx)
	cancel()
	<-done
	sess.log.Info("websocket disconnected")
}

// forward merges remote changes into the grid and relays the ones that
// changed it. It also keeps the connection alive with pings.
func (ws *wsSession) forward(ctx context.Context, events <-chan model.ChangeEvent) {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return
				}
				ws.log.Warn("change feed closed")
				ws.conn.Close() //nolint:errcheck
				return
			}
			if !ws.grid.Apply(ev) {
				continue
			}
			if err := ws.send(wsOutbound{Type: msgChange, Event: &ev}); err != nil {
				return
			}
		case <-ping.C:
			ws.writeMu.Lock()
			ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			err := ws.conn.WriteMessage(websocket.PingMessage, nil)
			ws.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (ws *wsSession) readLoop(ctx context.Context) {
	ws.conn.SetReadLimit(wsMaxMessage)
	ws.conn.SetReadDeadline(time.Now().Add(wsPongWait)) //nolint:errcheck
	ws.conn.SetPongHandler(func(string) error {
		return ws.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg wsInbound
		if err := ws.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				ws.log.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		if err := ws.handle(ctx, msg); err != nil {
			return
		}
	}
}

// handle applies one inbound message. Domain failures are reported to the
// client; only write failures end the session.
func (ws *wsSession) handle(ctx context.Context, msg wsInbound) error {
	switch msg.Type {
	case msgStartEdit:
		field, ok := model.ParseField(msg.Field)
		if !ok {
			return ws.sendError("validation_error", "unknown field "+msg.Field)
		}
		c, held := ws.grid.Get(msg.ClientID)
		if !held {
			return ws.sendError("not_found", "client not found: "+msg.ClientID)
		}
		if err := ws.editor.StartEdit(msg.ClientID, field, c.Value(field)); err != nil {
			return ws.sendFailure(err)
		}
		return ws.sendState()

	case msgSetValue:
		if err := ws.editor.SetPending(msg.Value); err != nil {
			return ws.sendFailure(err)
		}
		return ws.sendState()

	case msgCommit:
		updated, err := ws.editor.Commit(ctx)
		if err != nil {
			if sendErr := ws.sendFailure(err); sendErr != nil {
				return sendErr
			}
			return ws.sendState()
		}
		return ws.send(wsOutbound{Type: msgSaved, Client: updated})

	case msgCancel:
		ws.editor.Cancel()
		return ws.sendState()

	case msgAddComment:
		updated, err := ws.editor.AddComment(ctx, msg.ClientID, msg.Comment)
		if err != nil {
			return ws.sendFailure(err)
		}
		return ws.send(wsOutbound{Type: msgSaved, Client: updated})
	}
	return ws.sendError("validation_error", "unknown message type "+msg.Type)
}

func (ws *wsSession) sendState() error {
	id, field, pending, ok := ws.editor.Target()
	if !ok {
		return ws.send(wsOutbound{Type: msgIdle})
	}
	return ws.send(wsOutbound{Type: msgEditing, ClientID: id, Field: field, Value: pending})
}

func (ws *wsSession) sendFailure(err error) error {
	_, code := classify(err)
	return ws.sendError(code, err.Error())
}

func (ws *wsSession) sendError(code, message string) error {
	return ws.send(wsOutbound{Type: msgError, Error: &errorBody{Code: code, Message: message}})
}

func (ws *wsSession) send(msg wsOutbound) error {
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	ws.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
	return ws.conn.WriteJSON(msg)
}
