package game

import "errors"

// Domain error sentinels. Callers match them with errors.Is; the HTTP layer
// maps them to status codes.
var (
	// ErrNotFound: the referenced game or tile does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotRunning: the operation requires a game in running status.
	ErrNotRunning = errors.New("game is not running")
	// ErrInvalidAction: the action is not in the tile's available set.
	ErrInvalidAction = errors.New("action not available for tile")
	// ErrBudgetExhausted: no tile actions remain this turn.
	ErrBudgetExhausted = errors.New("no remaining actions this turn")
	// ErrPipelineFailure: the speech pipeline failed after the external
	// service call or while parsing its output; promise and citizen
	// mutations from the attempt are rolled back.
	ErrPipelineFailure = errors.New("speech pipeline failure")
)
