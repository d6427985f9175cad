package renderer

import "fmt"

// RenderingError reports a frame that could not be produced: invalid
// dimensions, an incomplete offscreen target, a stale scene or a lost
// context.
type RenderingError struct {
	Op     string
	Width  int
	Height int
	Msg    string
}

func (e *RenderingError) Error() string {
	if e.Width != 0 || e.Height != 0 {
		return fmt.Sprintf("rendering failed during %s (%dx%d): %s", e.Op, e.Width, e.Height, e.Msg)
	}
	return fmt.Sprintf("rendering failed during %s: %s", e.Op, e.Msg)
}
