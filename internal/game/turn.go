package game

// Turn is the per-turn record: the speech delivered this turn (empty until
// submitted, replaced on resubmission) and the remaining tile-action budget.
type Turn struct {
	Number           int    `json:"number"`
	SpeechText       string `json:"speech_text,omitempty"`
	RemainingActions int    `json:"remaining_actions"`
}
