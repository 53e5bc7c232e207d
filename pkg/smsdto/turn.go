package smsdto

// TurnEvent is one inbound message turn as delivered by the SMS gateway,
// either through the HTTP webhook or the gateway event stream.
type TurnEvent struct {
	StoryID   string `json:"story_id"`
	StoryType string `json:"story_type"`
	GameMode  string `json:"game_mode,omitempty"`
	Phone     string `json:"phone"`
	Args      string `json:"args"`
}
