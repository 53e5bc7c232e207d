package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kweller/sms-games-bot/internal/creation"
	"github.com/kweller/sms-games-bot/internal/phone"
	"github.com/kweller/sms-games-bot/internal/storycfg"
	"github.com/kweller/sms-games-bot/pkg/smsdto"
)

var errMissingParams = errors.New("Missing required params.")

// ValidateTurn checks a turn's required fields and resolves its story
// configuration. No side effects; the reason string of a returned error is
// sent verbatim to the caller. Shared by the webhook handler and the gateway
// event stream.
func ValidateTurn(ev *smsdto.TurnEvent, cat *storycfg.Catalog) (creation.Turn, *storycfg.Story, error) {
	if strings.TrimSpace(ev.StoryID) == "" ||
		strings.TrimSpace(ev.StoryType) == "" ||
		strings.TrimSpace(ev.Phone) == "" ||
		strings.TrimSpace(ev.Args) == "" {
		return creation.Turn{}, nil, errMissingParams
	}

	story, err := cat.Resolve(ev.StoryType, ev.StoryID)
	if err != nil {
		if errors.Is(err, storycfg.ErrUnsupportedStoryType) {
			return creation.Turn{}, nil, errors.New("Invalid story_type.")
		}
		if errors.Is(err, storycfg.ErrUnknownStory) {
			return creation.Turn{}, nil, fmt.Errorf("Game config not set up for story ID: %s", ev.StoryID)
		}
		return creation.Turn{}, nil, err
	}

	alpha := phone.Normalize(ev.Phone)
	if alpha == "" {
		return creation.Turn{}, nil, errMissingParams
	}

	return creation.Turn{
		StoryID:    strings.TrimSpace(ev.StoryID),
		StoryType:  strings.TrimSpace(ev.StoryType),
		GameMode:   strings.TrimSpace(ev.GameMode),
		AlphaPhone: alpha,
		Message:    ev.Args,
	}, story, nil
}
