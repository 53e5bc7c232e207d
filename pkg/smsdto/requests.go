package smsdto

// OptinRequest subscribes a phone number to an opt-in path, which delivers
// the templated prompt bound to that path.
type OptinRequest struct {
	AlphaPhone string `json:"alpha_phone"`
	AlphaOptin int    `json:"alpha_optin"`
}

// CreateGameRequest carries a completed progress record to the multiplayer
// game-creation endpoint. Unset beta slots are sent as empty strings.
type CreateGameRequest struct {
	AlphaMobile    string `json:"alpha_mobile"`
	AlphaFirstName string `json:"alpha_first_name"`
	BetaMobile0    string `json:"beta_mobile_0"`
	BetaMobile1    string `json:"beta_mobile_1"`
	BetaMobile2    string `json:"beta_mobile_2"`
	StoryID        string `json:"story_id"`
	StoryType      string `json:"story_type"`
}
