// Package nav implements the deterministic navigator that drives a robot
// of unknown initial pose to the grid origin, inferring heading from
// observed move acknowledgements and routing around obstacles.
package nav

import "github.com/foundry9/robonav/protocol"

// Heading is one of the four cardinal directions. Values increase clockwise
// so that turnRight is +1 and turnLeft is -1 modulo 4.
type Heading int

const (
	North Heading = iota
	East
	South
	West
)

func (h Heading) String() string {
	switch h {
	case North:
		return "NORTH"
	case East:
		return "EAST"
	case South:
		return "SOUTH"
	case West:
		return "WEST"
	default:
		return "UNKNOWN"
	}
}

func (h Heading) turnRight() Heading { return (h + 1) % 4 }
func (h Heading) turnLeft() Heading  { return (h + 3) % 4 }

// Point is a grid coordinate.
type Point = protocol.Point

// Command is one action the Navigator asks the session controller to send.
type Command int

const (
	CmdMove Command = iota
	CmdTurnLeft
	CmdTurnRight
	CmdPickUp
	CmdNone // exhaustion: the controller must stop issuing commands
)

// Message returns the wire text for c, or "" for CmdNone.
func (c Command) Message() string {
	switch c {
	case CmdMove:
		return protocol.Move
	case CmdTurnLeft:
		return protocol.TurnLeft
	case CmdTurnRight:
		return protocol.TurnRight
	case CmdPickUp:
		return protocol.PickUp
	default:
		return ""
	}
}

// Navigator holds the hidden-state planner for a single session. It is not
// safe for concurrent use; one Navigator belongs to exactly one session.
//
// Pose is unknown until two forward moves have been acknowledged: the
// first establishes a baseline coordinate, the second reveals heading from
// the coordinate delta (or, if blocked, triggers a turn-and-retry loop).
// Once heading is known, planNext drives toward the origin one axis at a
// time, turning the minimum number of steps (always clockwise when two
// turns are needed) before each move, and routing around a blocked cell
// with a fixed seven-command bypass that leaves heading unchanged.
type Navigator struct {
	stepsRemaining int
	maxObstacle    int
	obstacleHits   int

	position Point
	havePos  bool
	firstFix Point
	heading  Heading
	haveHdg  bool

	pending  []Command
	lastCmd  Command
	arrived  bool
	exhaust  bool
}

// New constructs a Navigator with the given step and obstacle-hit budgets.
func New(maxSteps, maxObstacleHits int) *Navigator {
	return &Navigator{
		stepsRemaining: maxSteps,
		maxObstacle:    maxObstacleHits,
	}
}

// Exhausted reports whether the step or obstacle-hit budget has been spent
// without reaching the origin.
func (n *Navigator) Exhausted() bool { return n.exhaust }

// Arrived reports whether the navigator has issued PICK UP.
func (n *Navigator) Arrived() bool { return n.arrived }

// StepsRemaining reports the current forward-move budget.
func (n *Navigator) StepsRemaining() int { return n.stepsRemaining }

// ObstacleHits reports the number of failed moves so far.
func (n *Navigator) ObstacleHits() int { return n.obstacleHits }

// Heading reports the current inferred heading and whether it is known.
func (n *Navigator) Heading() (Heading, bool) { return n.heading, n.haveHdg }

// Position reports the current known position and whether it is known.
func (n *Navigator) Position() (Point, bool) { return n.position, n.havePos }

// First returns the first command to issue, before any acknowledgement has
// been received: an unconditional forward move to establish a baseline
// coordinate.
func (n *Navigator) First() Command {
	n.lastCmd = CmdMove
	return CmdMove
}

// Advance consumes the acknowledgement ack for the previously issued
// command and returns the next command to issue, or CmdNone once the
// budget is exhausted.
func (n *Navigator) Advance(ack Point) Command {
	if n.lastCmd == CmdMove {
		if cmd, immediate := n.applyMoveAck(ack); immediate {
			n.lastCmd = cmd
			return cmd
		}
	}

	if n.havePos && n.position == (Point{}) {
		n.arrived = true
		n.lastCmd = CmdPickUp
		return CmdPickUp
	}

	if len(n.pending) > 0 {
		cmd := n.pending[0]
		n.pending = n.pending[1:]
		n.lastCmd = cmd
		return cmd
	}

	if !n.haveHdg {
		n.lastCmd = CmdMove
		return CmdMove
	}

	return n.planNext()
}

// applyMoveAck updates position, heading, and the step/obstacle budgets in
// response to the acknowledgement of a MOVE. When it decides the very next
// command itself (exhaustion, or a turn-and-retry/bypass kickoff), it
// returns that command with immediate=true; the caller must return it
// without consulting n.pending or planNext, since any follow-up commands
// have already been queued there.
func (n *Navigator) applyMoveAck(ack Point) (cmd Command, immediate bool) {
	if !n.havePos {
		n.havePos = true
		n.position = ack
		n.firstFix = ack
		return CmdNone, false
	}

	moved := ack != n.position

	if !n.haveHdg {
		if moved {
			n.heading = inferHeading(n.firstFix, ack)
			n.haveHdg = true
			n.position = ack
			n.stepsRemaining--
			if n.stepsRemaining <= 0 && n.position != (Point{}) {
				n.exhaust = true
				return CmdNone, true
			}
			return CmdNone, false
		}
		n.obstacleHits++
		if n.budgetSpent() {
			n.exhaust = true
			return CmdNone, true
		}
		// Heading still unknown: try the next direction.
		n.pending = append(n.pending, CmdMove)
		return CmdTurnRight, true
	}

	if moved {
		n.stepsRemaining--
		n.position = ack
		if n.stepsRemaining <= 0 && n.position != (Point{}) {
			n.exhaust = true
			return CmdNone, true
		}
		return CmdNone, false
	}

	n.obstacleHits++
	if n.budgetSpent() {
		n.exhaust = true
		return CmdNone, true
	}
	// Canonical bypass: turn right, move, turn left, move, turn left,
	// move, turn right. Net rotation is zero, so n.heading is untouched.
	n.pending = append(n.pending, CmdMove, CmdTurnLeft, CmdMove, CmdTurnLeft, CmdMove, CmdTurnRight)
	return CmdTurnRight, true
}

func (n *Navigator) budgetSpent() bool {
	return n.obstacleHits > n.maxObstacle
}

func inferHeading(p0, p1 Point) Heading {
	dx, dy := p1.X-p0.X, p1.Y-p0.Y
	switch {
	case dx == 1:
		return East
	case dx == -1:
		return West
	case dy == 1:
		return North
	default:
		return South
	}
}

// planNext decides the next move toward the origin given the current known
// position and heading: reduce |x| to 0 first, then |y|, issuing at most
// one turn per call so obstacle/arrival bookkeeping stays accurate between
// turns.
func (n *Navigator) planNext() Command {
	want := desiredHeading(n.position)
	if want != n.heading {
		switch turnCount(n.heading, want) {
		case 3:
			n.heading = n.heading.turnLeft()
			n.lastCmd = CmdTurnLeft
			return CmdTurnLeft
		default: // 1 or 2: always turn right, twice in a row for 2
			n.heading = n.heading.turnRight()
			n.lastCmd = CmdTurnRight
			return CmdTurnRight
		}
	}
	n.lastCmd = CmdMove
	return CmdMove
}

func desiredHeading(p Point) Heading {
	if p.X > 0 {
		return West
	}
	if p.X < 0 {
		return East
	}
	if p.Y > 0 {
		return South
	}
	return North
}

// turnCount returns how many clockwise quarter turns separate from and to.
func turnCount(from, to Heading) int {
	return int((to - from + 4) % 4)
}
