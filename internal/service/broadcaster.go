package service

import "guessflag/internal/model"

// Broadcaster fans out events to every subscriber of a session topic
// (avoids an import cycle with the ws transport). Delivery is best-effort:
// a publish failure never rolls back the state change that produced it.
type Broadcaster interface {
	Publish(code string, event model.Event)
}
