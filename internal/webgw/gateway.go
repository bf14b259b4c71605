// Package webgw exposes the duel over HTTP and WebSocket for web clients.
// It is a second, independent client of the shared store: a web player can
// face a Telegram player in the same room because every transition is a
// store-level compare-and-swap, never local state.
package webgw

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/duelroom"
	"github.com/ethanyoon/verseduel/internal/obslog"
)

type Gateway struct {
	rooms *duelroom.Manager
	games *duel.Manager
}

func New(rooms *duelroom.Manager, games *duel.Manager) *Gateway {
	return &Gateway{rooms: rooms, games: games}
}

func (g *Gateway) Router() *httprouter.Router {
	r := httprouter.New()
	r.GET("/healthz", g.health)
	r.POST("/api/rooms", g.createRoom)
	r.POST("/api/rooms/:code/join", g.joinRoom)
	r.GET("/api/rooms/:code", g.getRoom)
	r.GET("/ws/:code", g.serveWS)
	return r
}

func (g *Gateway) health(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createRequest struct {
	Name string `json:"name"`
}

type seatResponse struct {
	PlayerID string     `json:"player_id"`
	Room     *duel.Room `json:"room"`
}

func (g *Gateway) createRoom(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, duel.ErrInvalidArgs)
		return
	}
	pid := "web:" + uuid.NewString()
	room, err := g.rooms.CreateRoom(r.Context(), pid, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, seatResponse{PlayerID: pid, Room: room})
}

func (g *Gateway) joinRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, duel.ErrInvalidArgs)
		return
	}
	code := duelroom.NormalizeCode(ps.ByName("code"))
	if !duelroom.ValidCode(code) {
		writeError(w, duel.ErrNotFound)
		return
	}
	pid := "web:" + uuid.NewString()
	room, err := g.rooms.JoinRoom(r.Context(), code, pid, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, seatResponse{PlayerID: pid, Room: room})
}

func (g *Gateway) getRoom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := duelroom.NormalizeCode(ps.ByName("code"))
	room, err := g.games.Room(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	if room == nil {
		writeError(w, duel.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Warn("response_encode_error", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, duel.ErrInvalidArgs):
		status = http.StatusBadRequest
	case errors.Is(err, duel.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, duel.ErrNotHost):
		status = http.StatusForbidden
	case errors.Is(err, duel.ErrRoomFull), errors.Is(err, duel.ErrGameInProgress):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
