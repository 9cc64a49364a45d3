// Package controls tracks the player's keyboard state once per tick.
package controls

import (
	"chosenoffset.com/void/internal/render"
)

// Controls is the held state of the confirm key plus the confirm edge for
// the current tick.
type Controls struct {
	Enter bool

	confirm bool
}

// Poll refreshes the state from the input backend. Call once per tick.
func (c *Controls) Poll(in render.InputManager) {
	c.Enter = in.IsKeyPressed(render.KeyEnter)
	c.confirm = in.IsKeyJustPressed(render.KeyEnter) || in.IsKeyJustPressed(render.KeySpace)
}

// Confirm reports whether confirm was pressed this tick. Holding the key
// does not repeat it.
func (c *Controls) Confirm() bool {
	return c.confirm
}
