package creation

import (
	"time"

	"github.com/kweller/sms-games-bot/internal/phone"
)

// Decide maps (existing progress, latest message) to the next action. Pure:
// no I/O, never fails; malformed input routes to the invalid_mobile prompt.
//
// Ordering matters: the affirmative check runs before the phone-number check,
// so a message that reads as both is treated as affirmative.
func Decide(existing *Progress, t Turn) Action {
	if existing == nil {
		now := time.Now()
		return Action{
			Kind: ActionRecordCreated,
			Progress: &Progress{
				AlphaPhone: t.AlphaPhone,
				// First name is not asked for during creation; the phone
				// number stands in until the game flow collects it.
				AlphaName: t.AlphaPhone,
				StoryID:   t.StoryID,
				StoryType: t.StoryType,
				GameMode:  t.GameMode,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
	}

	if phone.IsAffirmative(t.Message) {
		// "Start now" requires at least one valid beta on file.
		if existing.Betas[0] != "" && phone.Valid(existing.Betas[0]) {
			return Action{Kind: ActionCreateGame, Progress: existing}
		}
		return Action{Kind: ActionPrompt, Prompt: PromptNotEnoughPlayers}
	}

	if phone.IsPhoneNumber(t.Message) {
		beta := phone.Normalize(t.Message)
		next := *existing
		next.UpdatedAt = time.Now()
		switch existing.Stage() {
		case StageAwaitingFirstBeta:
			next.Betas[0] = beta
			return Action{Kind: ActionUpdateAndPrompt, Prompt: PromptAskBeta1, Progress: &next}
		case StageAwaitingSecondBeta:
			next.Betas[1] = beta
			return Action{Kind: ActionUpdateAndPrompt, Prompt: PromptAskBeta2, Progress: &next}
		default:
			// Third number completes the set; no confirmation step.
			next.Betas[2] = beta
			return Action{Kind: ActionCreateGame, Progress: &next}
		}
	}

	return Action{Kind: ActionPrompt, Prompt: PromptInvalidMobile}
}
