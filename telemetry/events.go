// Package telemetry publishes session lifecycle events to anything that
// wants to observe a running server, independent of and never fed back
// into the protocol state machine.
package telemetry

import (
	"time"

	"github.com/foundry9/robonav/protocol"
)

// Kind distinguishes the lifecycle milestones a consumer may want to
// filter on without parsing Detail.
type Kind string

const (
	Connected     Kind = "connected"
	Authenticated Kind = "authenticated"
	Move          Kind = "move"
	Obstacle      Kind = "obstacle"
	Recharging    Kind = "recharging"
	Recovered     Kind = "recovered"
	Arrived       Kind = "arrived"
	Error         Kind = "error"
	Closed        Kind = "closed"
)

// Event describes one observable change in a session.
type Event struct {
	SessionID      string          `json:"session_id"`
	Time           time.Time       `json:"time"`
	Kind           Kind            `json:"kind"`
	Phase          string          `json:"phase"`
	Username       string          `json:"username,omitempty"`
	Position       *protocol.Point `json:"position,omitempty"`
	Heading        string          `json:"heading,omitempty"`
	StepsRemaining int             `json:"steps_remaining"`
	ObstacleHits   int             `json:"obstacle_hits"`
	Recharging     bool            `json:"recharging"`
	Detail         string          `json:"detail,omitempty"`
}
