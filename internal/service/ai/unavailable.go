package ai

import (
	"context"
	"errors"

	"github.com/seralis/fableforge/internal/model/game"
)

// ErrUnavailable is returned by Unavailable for every model call.
var ErrUnavailable = errors.New("model backend is not configured")

// Unavailable is the model client used when no backend credentials are
// present. Sessions can still be created, saved and loaded; running a turn
// fails at the turn boundary with a recoverable error.
type Unavailable struct{}

func (Unavailable) ModelName() string { return "unconfigured" }

func (Unavailable) Complete(ctx context.Context, messages []game.Message, temperature float64) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) Stream(ctx context.Context, messages []game.Message, temperature float64, onChunk func(string)) (string, error) {
	return "", ErrUnavailable
}
