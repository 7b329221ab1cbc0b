package game

// PromiseStatus is the lifecycle state of a promise.
type PromiseStatus string

const (
	PromiseActive PromiseStatus = "active"
	PromiseKept   PromiseStatus = "kept"
	PromiseBroken PromiseStatus = "broken"
)

// Promise is one commitment extracted from a speech. TargetCitizen is a weak
// reference by name: the citizen may leave town without invalidating the
// promise. Deadline, when set, is the turn number the player committed to.
type Promise struct {
	Text          string        `json:"text"`
	TurnMade      int           `json:"turn_made"`
	Deadline      *int          `json:"deadline,omitempty"`
	Status        PromiseStatus `json:"status"`
	TargetCitizen string        `json:"target_citizen,omitempty"`
}
