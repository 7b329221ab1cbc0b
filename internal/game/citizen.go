package game

// CitizenKind separates the permanent roster from time-limited arrivals.
type CitizenKind string

const (
	// CitizenCore citizens are created at game start and never removed.
	CitizenCore CitizenKind = "core"
	// CitizenDynamic citizens are spawned by tile actions and leave town
	// when their countdown expires.
	CitizenDynamic CitizenKind = "dynamic"
)

// Citizen is one town-hall attendee. Approval is the mayor's standing with
// them, clamped to [0,100]. RemainingTurns is nil for core citizens and a
// positive countdown for dynamic ones.
type Citizen struct {
	Name           string      `json:"name"`
	Kind           CitizenKind `json:"kind"`
	Profession     string      `json:"profession"`
	Age            int         `json:"age"`
	Personality    string      `json:"personality"`
	Approval       int         `json:"approval"`
	OpeningSpeech  string      `json:"opening_speech,omitempty"`
	RemainingTurns *int        `json:"remaining_turns,omitempty"`
}

// AdjustApproval adds delta to the citizen's approval and clamps the result.
func (c *Citizen) AdjustApproval(delta int) {
	c.Approval = ClampMeter(c.Approval + delta)
}
