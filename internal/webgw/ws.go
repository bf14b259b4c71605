package webgw

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/duelroom"
	"github.com/ethanyoon/verseduel/internal/obslog"
)

const (
	wsWriteTimeout = 5 * time.Second
	wsOpTimeout    = 10 * time.Second
)

// actionFrame is what the browser sends: ready up, submit an answer, host
// advance, or leave.
type actionFrame struct {
	Action string `json:"action"`
	Text   string `json:"text,omitempty"`
}

// eventFrame is what the server pushes: full room snapshots on every store
// change, a submit receipt, or a closed notice when the room goes away.
type eventFrame struct {
	Type   string             `json:"type"`
	Room   *duel.Room         `json:"room,omitempty"`
	Result *duel.SubmitResult `json:"result,omitempty"`
	Error  string             `json:"error,omitempty"`
}

// wsConn is one socket's seat at a room. It carries the same one-shot guard
// and client-side timers as the bot adapter, so an all-web or mixed room
// still gets its countdown expiry, round deadline, and reveal.
type wsConn struct {
	conn     *websocket.Conn
	games    *duel.Manager
	code     string
	playerID string
	guard    *duel.Guard

	writeMu sync.Mutex

	lastStatus duel.Status
	lastRound  int

	timerMu sync.Mutex
	timer   *time.Timer
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := duelroom.NormalizeCode(ps.ByName("code"))
	playerID := r.URL.Query().Get("player_id")

	room, err := g.games.Room(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if room == nil {
		writeError(w, duel.ErrNotFound)
		return
	}
	if _, ok := room.Players[playerID]; !ok {
		writeError(w, duel.ErrNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.String("code", code), zap.Error(err))
		return
	}
	defer conn.CloseNow()

	c := &wsConn{
		conn:       conn,
		games:      g.games,
		code:       code,
		playerID:   playerID,
		guard:      duel.NewGuard(),
		lastStatus: room.Status,
		lastRound:  room.CurrentRound,
	}
	defer c.stopTimer()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	unsub, err := g.games.Subscribe(ctx, code, func(room *duel.Room) {
		c.onRoomChange(room)
		if room == nil || room.Status == duel.StatusFinalResults {
			cancel()
		}
	})
	if err != nil {
		obslog.L().Warn("ws_subscribe_error", zap.String("code", code), zap.Error(err))
		return
	}
	defer unsub()

	c.push(eventFrame{Type: "room", Room: room})
	c.readLoop(ctx, g)
}

// readLoop consumes action frames until the socket drops or the room ends.
func (c *wsConn) readLoop(ctx context.Context, g *Gateway) {
	for {
		var frame actionFrame
		if err := wsjson.Read(ctx, c.conn, &frame); err != nil {
			return
		}
		opCtx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
		c.handleAction(opCtx, g, frame)
		cancel()
	}
}

func (c *wsConn) handleAction(ctx context.Context, g *Gateway, frame actionFrame) {
	switch frame.Action {
	case "ready":
		room, err := c.games.SetReady(ctx, c.code, c.playerID, true)
		if err != nil {
			c.push(eventFrame{Type: "error", Error: err.Error()})
			return
		}
		if room.AllReady() && c.guard.Arm(duel.StageStart()) {
			if _, _, err := c.games.StartIfReady(ctx, c.code); err != nil {
				obslog.L().Warn("start_if_ready_error", zap.String("code", c.code), zap.Error(err))
			}
		}
	case "answer":
		applied, room, res, err := c.games.SubmitAnswer(ctx, c.code, c.playerID, frame.Text)
		if err != nil {
			c.push(eventFrame{Type: "error", Error: err.Error()})
			return
		}
		if !applied {
			return
		}
		c.stopTimer()
		c.push(eventFrame{Type: "submitted", Result: res})
		if room != nil && room.AllFinished() && c.guard.Arm(duel.StageReveal(room.CurrentRound)) {
			if _, _, err := c.games.FinalizeRound(ctx, c.code); err != nil {
				obslog.L().Warn("finalize_error", zap.String("code", c.code), zap.Error(err))
			}
		}
	case "next":
		if _, _, err := c.games.AdvanceRound(ctx, c.code, c.playerID); err != nil {
			c.push(eventFrame{Type: "error", Error: err.Error()})
		}
	case "leave":
		if err := g.rooms.LeaveRoom(ctx, c.code, c.playerID); err != nil {
			c.push(eventFrame{Type: "error", Error: err.Error()})
		}
	default:
		c.push(eventFrame{Type: "error", Error: "unknown action"})
	}
}

// onRoomChange mirrors the bot adapter's watcher: push the snapshot, then
// fire whichever client-side transition this state calls for.
func (c *wsConn) onRoomChange(room *duel.Room) {
	if room == nil {
		c.push(eventFrame{Type: "closed"})
		return
	}
	c.push(eventFrame{Type: "room", Room: room})

	statusChanged := room.Status != c.lastStatus || room.CurrentRound != c.lastRound
	switch room.Status {
	case duel.StatusCountdown:
		if statusChanged {
			c.armCountdown(room.CurrentRound)
		}
	case duel.StatusPlaying:
		if statusChanged {
			c.armDeadline(room)
		}
		if room.AllFinished() && c.guard.Arm(duel.StageReveal(room.CurrentRound)) {
			c.stopTimer()
			c.finalize()
		}
	case duel.StatusRoundResults, duel.StatusFinalResults:
		if statusChanged {
			c.stopTimer()
		}
	}
	c.lastStatus = room.Status
	c.lastRound = room.CurrentRound
}

func (c *wsConn) armCountdown(round int) {
	c.setTimer(time.AfterFunc(duel.CountdownSeconds*time.Second, func() {
		if !c.guard.Arm(duel.StageBegin(round)) {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
		defer cancel()
		if _, _, err := c.games.BeginRound(ctx, c.code); err != nil {
			obslog.L().Warn("begin_round_error", zap.String("code", c.code), zap.Error(err))
		}
	}))
}

func (c *wsConn) armDeadline(room *duel.Room) {
	round := room.CurrentRound
	c.setTimer(time.AfterFunc(duel.DeadlineFor(room.Mode(round)), func() {
		ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
		defer cancel()
		_, r, _, err := c.games.SubmitAnswer(ctx, c.code, c.playerID, "")
		if err != nil {
			obslog.L().Warn("deadline_submit_error", zap.String("code", c.code), zap.Error(err))
			return
		}
		if r != nil && r.AllFinished() && c.guard.Arm(duel.StageReveal(round)) {
			c.finalize()
		}
	}))
}

func (c *wsConn) finalize() {
	ctx, cancel := context.WithTimeout(context.Background(), wsOpTimeout)
	defer cancel()
	if _, _, err := c.games.FinalizeRound(ctx, c.code); err != nil {
		obslog.L().Warn("finalize_error", zap.String("code", c.code), zap.Error(err))
	}
}

func (c *wsConn) push(frame eventFrame) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, frame); err != nil {
		obslog.L().Debug("ws_push_error", zap.String("code", c.code), zap.Error(err))
	}
}

func (c *wsConn) setTimer(t *time.Timer) {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = t
}

func (c *wsConn) stopTimer() {
	c.timerMu.Lock()
	defer c.timerMu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
