package webgw

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/ethanyoon/verseduel/internal/duel"
	"github.com/ethanyoon/verseduel/internal/duelroom"
	"github.com/ethanyoon/verseduel/internal/versebank"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	bank, err := versebank.Load()
	if err != nil {
		t.Fatalf("versebank.Load: %v", err)
	}
	store := duel.NewStoreWithClient(rdb)
	gw := New(duelroom.NewManager(store, bank), duel.NewManager(store))
	srv := httptest.NewServer(gw.Router())
	t.Cleanup(func() {
		srv.Close()
		rdb.Close()
		mr.Close()
	})
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSeat(t *testing.T, resp *http.Response) seatResponse {
	t.Helper()
	var seat seatResponse
	if err := json.NewDecoder(resp.Body).Decode(&seat); err != nil {
		t.Fatalf("decode seat: %v", err)
	}
	return seat
}

func TestCreateAndJoinRoom(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/rooms", createRequest{Name: "Alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	seat := decodeSeat(t, resp)
	if seat.PlayerID == "" || seat.Room == nil || !duelroom.ValidCode(seat.Room.Code) {
		t.Fatalf("bad seat: %+v", seat)
	}

	resp = postJSON(t, srv.URL+"/api/rooms/"+seat.Room.Code+"/join", createRequest{Name: "Bob"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d", resp.StatusCode)
	}
	joined := decodeSeat(t, resp)
	if len(joined.Room.Players) != 2 {
		t.Fatalf("join landed %d players", len(joined.Room.Players))
	}

	// Third seat must 409 without touching the document.
	resp = postJSON(t, srv.URL+"/api/rooms/"+seat.Room.Code+"/join", createRequest{Name: "Carol"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("third join status = %d, want 409", resp.StatusCode)
	}

	getResp, err := http.Get(srv.URL + "/api/rooms/" + seat.Room.Code)
	if err != nil {
		t.Fatalf("GET room: %v", err)
	}
	defer getResp.Body.Close()
	var room duel.Room
	if err := json.NewDecoder(getResp.Body).Decode(&room); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	if len(room.Players) != 2 {
		t.Fatalf("rejected join mutated players: %d", len(room.Players))
	}
}

func TestJoinMissingRoomIs404(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/rooms/ZZZZZZ/join", createRequest{Name: "Bob"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateRoomRequiresName(t *testing.T) {
	srv := newTestServer(t)
	resp := postJSON(t, srv.URL+"/api/rooms", createRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}
