package camera

import "context"

// Camera is the high-level interface used by the hardware trigger and the
// web surface. It represents an abstract "camera", regardless of how the
// shot reaches the body.
type Camera interface {
	// Shoot takes one still: half press, full press, release.
	Shoot(ctx context.Context) error
}
