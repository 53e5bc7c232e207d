package creation

import (
	"context"
	"time"
)

// MaxBetas is the number of invite slots collected before a game starts.
const MaxBetas = 3

// Stage is the conversation state, derived entirely from which beta slots
// are populated. Slots fill strictly left to right, so the count is the state.
type Stage int

const (
	StageAwaitingFirstBeta Stage = iota
	StageAwaitingSecondBeta
	StageAwaitingThirdBeta
	StageComplete
)

func (s Stage) String() string {
	switch s {
	case StageAwaitingFirstBeta:
		return "awaiting_first_beta"
	case StageAwaitingSecondBeta:
		return "awaiting_second_beta"
	case StageAwaitingThirdBeta:
		return "awaiting_third_beta"
	default:
		return "complete"
	}
}

// Progress is the durable per-alpha record of a game-creation conversation.
// It exists only between the first inbound turn and game creation. Stored as
// JSON in Redis keyed by the alpha's phone number.
type Progress struct {
	AlphaPhone string `json:"alpha_phone"`
	AlphaName  string `json:"alpha_first_name"`

	StoryID   string `json:"story_id"`
	StoryType string `json:"story_type"`
	GameMode  string `json:"game_mode,omitempty"`

	// Betas[i] is set only after Betas[i-1]; empty string means unset.
	Betas [MaxBetas]string `json:"beta_phones"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stage reports how far the conversation has progressed.
func (p *Progress) Stage() Stage {
	n := 0
	for _, b := range p.Betas {
		if b == "" {
			break
		}
		n++
	}
	return Stage(n)
}

// Turn is one validated inbound message together with its routing metadata.
type Turn struct {
	StoryID    string
	StoryType  string
	GameMode   string
	AlphaPhone string
	Message    string
}

// PromptID names an outbound prompt template from the story configuration.
type PromptID string

const (
	PromptAskBeta1         PromptID = "ask_beta_1"
	PromptAskBeta2         PromptID = "ask_beta_2"
	PromptInvalidMobile    PromptID = "invalid_mobile"
	PromptNotEnoughPlayers PromptID = "not_enough_players"
)

// ActionKind discriminates the engine's decision.
type ActionKind string

const (
	// ActionRecordCreated: no record existed; a shell record was seeded from
	// the turn. The caller re-evaluates the same message against it before
	// replying.
	ActionRecordCreated ActionKind = "record_created"
	// ActionPrompt: send a prompt, record unchanged.
	ActionPrompt ActionKind = "prompt"
	// ActionUpdateAndPrompt: persist Progress, then send a prompt.
	ActionUpdateAndPrompt ActionKind = "update_and_prompt"
	// ActionCreateGame: trigger game creation with Progress, then remove the
	// record.
	ActionCreateGame ActionKind = "create_game"
)

// Action is the engine's decision for one turn.
type Action struct {
	Kind     ActionKind
	Prompt   PromptID
	Progress *Progress
}

// Notifier sends a prompt to a phone number by opt-in path.
type Notifier interface {
	SendPrompt(ctx context.Context, phone string, optin int) error
}

// GameCreator submits a completed progress record to the game-creation
// endpoint.
type GameCreator interface {
	CreateGame(ctx context.Context, p *Progress) error
}

// Errors
var (
	ErrInvalidTurn = errf("turn is missing required fields")
)

type staticErr string

func (e staticErr) Error() string { return string(e) }
func errf(s string) error         { return staticErr(s) }
