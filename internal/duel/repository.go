package duel

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives finished matches to Postgres. Optional: the manager
// works without one attached.
type Repository struct {
	db *sql.DB
}

func NewRepository(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// SaveMatch upserts a finished match keyed by room code and creation time,
// so the racing archival writes from two clients collapse into one row.
func (r *Repository) SaveMatch(ctx context.Context, room *Room) error {
	if r == nil || r.db == nil || room == nil {
		return nil
	}
	if room.Status != StatusFinalResults {
		return nil
	}

	type archivedPlayer struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		TotalScore  int    `json:"total_score"`
		RoundScores []int  `json:"round_scores"`
	}
	players := make([]archivedPlayer, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, archivedPlayer{
			ID: p.ID, Name: p.Name, TotalScore: p.TotalScore, RoundScores: p.RoundScores,
		})
	}
	playersRaw, _ := json.Marshal(players)
	resultsRaw, _ := json.Marshal(room.RoundResults)

	winner := ""
	if w := room.Winners(); len(w) == 1 {
		winner = w[0].ID
	}

	q := `INSERT INTO duel_matches (
	    room_code, created_at, finished_at, total_rounds,
	    winner_id, players, round_results
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7)
	  ON CONFLICT (room_code, created_at) DO UPDATE SET
	    finished_at=EXCLUDED.finished_at,
	    total_rounds=EXCLUDED.total_rounds,
	    winner_id=EXCLUDED.winner_id,
	    players=EXCLUDED.players,
	    round_results=EXCLUDED.round_results`

	_, err := r.db.ExecContext(ctx, q,
		room.Code, room.CreatedAt, time.Now(), room.TotalRounds,
		winner, string(playersRaw), string(resultsRaw),
	)
	return err
}
