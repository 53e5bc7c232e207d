package creation

import (
	"context"
	"errors"
	"sync"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kweller/sms-games-bot/internal/storycfg"
)

type promptSend struct {
	phone string
	optin int
}

type fakeNotifier struct {
	mu    sync.Mutex
	sends []promptSend
}

func (f *fakeNotifier) SendPrompt(_ context.Context, phone string, optin int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, promptSend{phone: phone, optin: optin})
	return nil
}

func (f *fakeNotifier) last(t *testing.T) promptSend {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sends) == 0 {
		t.Fatalf("no prompt sent")
	}
	return f.sends[len(f.sends)-1]
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

type fakeCreator struct {
	mu      sync.Mutex
	created []*Progress
	err     error
}

func (f *fakeCreator) CreateGame(_ context.Context, p *Progress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := *p
	f.created = append(f.created, &cp)
	return nil
}

func (f *fakeCreator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

var testStory = &storycfg.Story{
	Name: "Test Story",
	MobileCreate: storycfg.MobileCreate{
		AskBeta1OIP:         101,
		AskBeta2OIP:         102,
		InvalidMobileOIP:    103,
		NotEnoughPlayersOIP: 104,
	},
}

func newTestManager(t *testing.T) (*Manager, *Store, *fakeNotifier, *fakeCreator, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	notifier := &fakeNotifier{}
	creator := &fakeCreator{}
	m := NewManager(rdb, notifier, creator)
	cleanup := func() {
		_ = rdb.Close()
		mr.Close()
	}
	return m, NewStore(rdb), notifier, creator, cleanup
}

func submit(t *testing.T, m *Manager, msg string) {
	t.Helper()
	if err := m.Submit(testTurn(msg), testStory); err != nil {
		t.Fatalf("Submit(%q): %v", msg, err)
	}
	m.Wait()
}

func TestFirstTurnCreatesRecordAndFillsFirstBeta(t *testing.T) {
	m, store, notifier, _, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	// The opening message is consumed to create the shell record, then
	// re-evaluated so the beta it carries is not lost.
	submit(t, m, "+15552340001")

	rec, err := store.FindByAlpha(ctx, "15551230000")
	if err != nil || rec == nil {
		t.Fatalf("FindByAlpha: rec=%v err=%v", rec, err)
	}
	if rec.Betas[0] != "15552340001" {
		t.Fatalf("slot 0 = %q, want filled from first message", rec.Betas[0])
	}
	if s := notifier.last(t); s.optin != testStory.MobileCreate.AskBeta1OIP {
		t.Fatalf("prompt optin = %d, want ask_beta_1", s.optin)
	}
}

func TestAffirmativeWithOneBetaCreatesGame(t *testing.T) {
	m, store, _, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress("15552340001")
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	submit(t, m, "yes")

	if creator.count() != 1 {
		t.Fatalf("games created = %d, want 1", creator.count())
	}
	rec, err := store.FindByAlpha(ctx, seed.AlphaPhone)
	if err != nil {
		t.Fatalf("FindByAlpha: %v", err)
	}
	if rec != nil {
		t.Fatalf("record should be removed after creation, got %+v", rec)
	}
}

func TestAffirmativeWithNoBetasPromptsNotEnoughPlayers(t *testing.T) {
	m, store, notifier, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress()
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	submit(t, m, "yes")

	if creator.count() != 0 {
		t.Fatalf("game should not be created without betas")
	}
	if s := notifier.last(t); s.optin != testStory.MobileCreate.NotEnoughPlayersOIP {
		t.Fatalf("prompt optin = %d, want not_enough_players", s.optin)
	}
	rec, _ := store.FindByAlpha(ctx, seed.AlphaPhone)
	if rec == nil || rec.Stage() != StageAwaitingFirstBeta {
		t.Fatalf("record should be unchanged, got %+v", rec)
	}
}

func TestThirdBetaCreatesGameImmediately(t *testing.T) {
	m, store, _, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress("15552340001", "15553450002")
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	submit(t, m, "+15559998888")

	if creator.count() != 1 {
		t.Fatalf("games created = %d, want 1", creator.count())
	}
	creator.mu.Lock()
	g := creator.created[0]
	creator.mu.Unlock()
	if g.Betas[2] != "15559998888" {
		t.Fatalf("beta 2 = %q", g.Betas[2])
	}
	if rec, _ := store.FindByAlpha(ctx, seed.AlphaPhone); rec != nil {
		t.Fatalf("record should be removed, got %+v", rec)
	}
}

func TestGarbagePromptsInvalidMobile(t *testing.T) {
	m, store, notifier, _, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress("15552340001")
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	submit(t, m, "hello")

	if s := notifier.last(t); s.optin != testStory.MobileCreate.InvalidMobileOIP {
		t.Fatalf("prompt optin = %d, want invalid_mobile", s.optin)
	}
	rec, _ := store.FindByAlpha(ctx, seed.AlphaPhone)
	if rec == nil || rec.Betas != seed.Betas {
		t.Fatalf("record should be unchanged, got %+v", rec)
	}
}

func TestRedeliveryAfterResolutionRestarts(t *testing.T) {
	m, store, notifier, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress("15552340001")
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}
	submit(t, m, "yes")
	if creator.count() != 1 {
		t.Fatalf("setup: game not created")
	}

	// Same message again: no record anymore, so a fresh conversation starts;
	// "yes" against the fresh shell yields not_enough_players.
	submit(t, m, "yes")

	rec, _ := store.FindByAlpha(ctx, seed.AlphaPhone)
	if rec == nil || rec.Stage() != StageAwaitingFirstBeta {
		t.Fatalf("expected fresh record, got %+v", rec)
	}
	if creator.count() != 1 {
		t.Fatalf("re-delivery must not create a second game")
	}
	if s := notifier.last(t); s.optin != testStory.MobileCreate.NotEnoughPlayersOIP {
		t.Fatalf("prompt optin = %d, want not_enough_players", s.optin)
	}
}

func TestFullConversation(t *testing.T) {
	m, store, notifier, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	submit(t, m, "5552340001")
	submit(t, m, "5553450002")
	submit(t, m, "5554560003")

	if creator.count() != 1 {
		t.Fatalf("games created = %d, want 1", creator.count())
	}
	creator.mu.Lock()
	g := creator.created[0]
	creator.mu.Unlock()
	want := [MaxBetas]string{"15552340001", "15553450002", "15554560003"}
	if g.Betas != want {
		t.Fatalf("betas = %v, want %v", g.Betas, want)
	}
	if rec, _ := store.FindByAlpha(ctx, "15551230000"); rec != nil {
		t.Fatalf("record should be gone after creation")
	}
	// ask_beta_1 then ask_beta_2, nothing more
	if notifier.count() != 2 {
		t.Fatalf("prompts sent = %d, want 2", notifier.count())
	}
}

func TestConcurrentTurnsSameAlphaSerialized(t *testing.T) {
	m, store, _, _, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()

	seed := seededProgress()
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	var wg sync.WaitGroup
	msgs := []string{"5552340001", "5553450002"}
	for _, msg := range msgs {
		wg.Add(1)
		go func(msg string) {
			defer wg.Done()
			_ = m.Submit(testTurn(msg), testStory)
		}(msg)
	}
	wg.Wait()
	m.Wait()

	rec, err := store.FindByAlpha(ctx, seed.AlphaPhone)
	if err != nil || rec == nil {
		t.Fatalf("FindByAlpha: rec=%v err=%v", rec, err)
	}
	// Both numbers land, in some order, with no gap.
	if rec.Betas[0] == "" || rec.Betas[1] == "" || rec.Betas[2] != "" {
		t.Fatalf("betas = %v, want slots 0-1 filled", rec.Betas)
	}
	if rec.Betas[0] == rec.Betas[1] {
		t.Fatalf("duplicate beta: %v", rec.Betas)
	}
}

func TestCreateGameFailureStillRemovesRecord(t *testing.T) {
	m, store, _, creator, cleanup := newTestManager(t)
	defer cleanup()
	ctx := context.Background()
	creator.err = errors.New("downstream unavailable")

	seed := seededProgress("15552340001")
	if err := store.Create(ctx, seed); err != nil {
		t.Fatalf("Create: %v", err)
	}

	submit(t, m, "yes")

	// At-most-once effort: the record is gone even though creation failed.
	if rec, _ := store.FindByAlpha(ctx, seed.AlphaPhone); rec != nil {
		t.Fatalf("record should be removed despite creation failure")
	}
}

func TestStoreUnavailableStallsTurn(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	notifier := &fakeNotifier{}
	creator := &fakeCreator{}
	m := NewManager(rdb, notifier, creator)

	mr.Close() // store becomes unreachable before the turn runs

	if err := m.Submit(testTurn("5552340001"), testStory); err != nil {
		t.Fatalf("Submit: %v", err)
	}
	m.Wait()

	if notifier.count() != 0 || creator.count() != 0 {
		t.Fatalf("turn should stall silently: prompts=%d games=%d", notifier.count(), creator.count())
	}
}

func TestSubmitRejectsEmptyTurn(t *testing.T) {
	m, _, _, _, cleanup := newTestManager(t)
	defer cleanup()
	if err := m.Submit(Turn{}, testStory); !errors.Is(err, ErrInvalidTurn) {
		t.Fatalf("expected ErrInvalidTurn, got %v", err)
	}
}
