package runner

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned when the caller's context ends mid-interaction.
// Whatever step was in flight finished, but its result was not recorded.
var ErrInterrupted = errors.New("runner: interaction interrupted")

// LoopDepthExceededError reports that the model was still requesting tools
// after Limit completions.
type LoopDepthExceededError struct {
	Limit int
}

func (e *LoopDepthExceededError) Error() string {
	return fmt.Sprintf("runner: model still requesting tools after %d completions", e.Limit)
}
