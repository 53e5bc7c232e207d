package creation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kweller/sms-games-bot/internal/obslog"
	"github.com/kweller/sms-games-bot/internal/storycfg"
)

// Manager orchestrates one turn: read progress, decide, persist, dispatch
// outbound calls. Turns for the same alpha are serialized through a keyed
// queue so two messages can never act on the same stale record.
type Manager struct {
	store    *Store
	queue    *keyedQueue
	notifier Notifier
	creator  GameCreator
	repo     *Repository
}

func NewManager(rdb *redis.Client, notifier Notifier, creator GameCreator) *Manager {
	return &Manager{
		store:    NewStore(rdb),
		queue:    newKeyedQueue(),
		notifier: notifier,
		creator:  creator,
	}
}

// AttachRepository wires an optional database repository that archives
// created games.
func (m *Manager) AttachRepository(r *Repository) {
	if m != nil {
		m.repo = r
	}
}

// Submit schedules a validated turn for asynchronous processing. The caller
// has already acknowledged the transport request and does not wait for the
// conversational side effects.
func (m *Manager) Submit(t Turn, story *storycfg.Story) error {
	if strings.TrimSpace(t.AlphaPhone) == "" || strings.TrimSpace(t.Message) == "" {
		return ErrInvalidTurn
	}
	m.queue.Do(t.AlphaPhone, func() {
		m.handleTurn(context.Background(), t, story)
	})
	return nil
}

// Wait blocks until all submitted turns have drained. Used on shutdown and
// in tests.
func (m *Manager) Wait() { m.queue.Wait() }

func (m *Manager) handleTurn(ctx context.Context, t Turn, story *storycfg.Story) {
	log := obslog.L().With(
		zap.String("turn_id", uuid.NewString()),
		zap.String("alpha", t.AlphaPhone),
		zap.String("story_id", t.StoryID),
	)

	rec, err := m.store.FindByAlpha(ctx, t.AlphaPhone)
	if err != nil {
		// Turn stalls; the user's next message re-reads current state.
		log.Error("progress_read_error", zap.Error(err))
		return
	}

	act := Decide(rec, t)
	if act.Kind == ActionRecordCreated {
		if err := m.store.Create(ctx, act.Progress); err != nil {
			log.Error("progress_create_error", zap.Error(err))
			return
		}
		log.Info("progress_create", zap.String("story_type", t.StoryType))
		// The message that opened the conversation usually already carries
		// the first beta number, so run it against the fresh record instead
		// of asking the user to repeat themselves.
		act = Decide(act.Progress, t)
	}

	switch act.Kind {
	case ActionUpdateAndPrompt:
		if err := m.store.Update(ctx, act.Progress); err != nil {
			log.Error("progress_update_error", zap.Error(err))
			return
		}
		log.Info("progress_update", zap.String("stage", act.Progress.Stage().String()))
		m.sendPrompt(ctx, log, t.AlphaPhone, act.Prompt, story)

	case ActionPrompt:
		m.sendPrompt(ctx, log, t.AlphaPhone, act.Prompt, story)

	case ActionCreateGame:
		// Creation is committed before the record is removed; a failed call
		// is logged but not rolled back.
		if err := m.creator.CreateGame(ctx, act.Progress); err != nil {
			log.Error("game_create_error", zap.Error(err))
		} else {
			log.Info("game_create",
				zap.String("beta_0", act.Progress.Betas[0]),
				zap.String("beta_1", act.Progress.Betas[1]),
				zap.String("beta_2", act.Progress.Betas[2]),
			)
			if m.repo != nil {
				if err := m.repo.SaveCreated(ctx, act.Progress); err != nil {
					log.Error("game_archive_error", zap.Error(err))
				}
			}
		}
		if err := m.store.Remove(ctx, act.Progress.AlphaPhone); err != nil {
			log.Error("progress_remove_error", zap.Error(err))
		}
	}
}

func (m *Manager) sendPrompt(ctx context.Context, log *zap.Logger, alphaPhone string, prompt PromptID, story *storycfg.Story) {
	oip, ok := story.MobileCreate.OptinFor(string(prompt))
	if !ok {
		log.Warn("prompt_unconfigured", zap.String("prompt", string(prompt)))
		return
	}
	if err := m.notifier.SendPrompt(ctx, alphaPhone, oip); err != nil {
		log.Error("prompt_send_error", zap.String("prompt", string(prompt)), zap.Error(err))
		return
	}
	log.Info("prompt_send", zap.String("prompt", string(prompt)), zap.Int("optin", oip))
}
