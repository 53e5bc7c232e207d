package creation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Repository archives created games to Postgres. Optional: the bot runs
// without it, losing only the audit trail.
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
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
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

// SaveCreated inserts an audit row for a game that was just created from a
// completed progress record.
func (r *Repository) SaveCreated(ctx context.Context, p *Progress) error {
	if r == nil || r.db == nil || p == nil {
		return nil
	}
	const q = `INSERT INTO created_games (
	    alpha_mobile, alpha_first_name,
	    beta_mobile_0, beta_mobile_1, beta_mobile_2,
	    story_id, story_type, game_mode, created_at
	  ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := r.db.ExecContext(ctx, q,
		p.AlphaPhone, p.AlphaName,
		p.Betas[0], p.Betas[1], p.Betas[2],
		p.StoryID, p.StoryType, p.GameMode, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert created_games: %w", err)
	}
	return nil
}
