package creation

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kweller/sms-games-bot/internal/obslog"
)

// Store persists Progress records as JSON blobs keyed by alpha phone number.
// No TTL: abandoned conversations stay until a game is created from them
// (known limitation carried over from the original flow).
type Store struct{ rdb *redis.Client }

func NewStore(rdb *redis.Client) *Store { return &Store{rdb: rdb} }

func (s *Store) key(alphaPhone string) string {
	return "create:alpha:" + strings.TrimSpace(alphaPhone)
}

// FindByAlpha returns the progress record for the alpha, or nil when absent.
func (s *Store) FindByAlpha(ctx context.Context, alphaPhone string) (*Progress, error) {
	raw, err := s.rdb.Get(ctx, s.key(alphaPhone)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p Progress
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Create stores a fresh record. A record that already exists is left in place
// (the turn queue serializes per-alpha writes, so a lost SetNX means a
// concurrent path already converged).
func (s *Store) Create(ctx context.Context, p *Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetNX(ctx, s.key(p.AlphaPhone), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		obslog.L().Warn("progress_create_exists", zap.String("alpha", p.AlphaPhone))
	}
	return nil
}

// Update replaces the record's mutable fields. Updating a missing record is
// not an error; it is logged and treated as already-converged state.
func (s *Store) Update(ctx context.Context, p *Progress) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	ok, err := s.rdb.SetXX(ctx, s.key(p.AlphaPhone), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		obslog.L().Warn("progress_update_missing", zap.String("alpha", p.AlphaPhone))
	}
	return nil
}

// Remove deletes the record. Removing a missing record is not an error.
func (s *Store) Remove(ctx context.Context, alphaPhone string) error {
	n, err := s.rdb.Del(ctx, s.key(alphaPhone)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		obslog.L().Warn("progress_remove_missing", zap.String("alpha", alphaPhone))
	}
	return nil
}
