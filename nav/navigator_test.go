package nav_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foundry9/robonav/nav"
)

func TestFirstIsMove(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 100)
	assert.Equal(t, nav.CmdMove, n.First())
}

// TestPoseInferenceAndTurnDirection drives a navigator through baseline
// fix, heading inference (moving east), and the resulting 180-degree
// reorientation toward the origin, pinning that a two-turn reorientation
// is always expressed as two consecutive right turns.
func TestPoseInferenceAndTurnDirection(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 100)
	require.Equal(t, nav.CmdMove, n.First())

	// Baseline fix: no heading yet, second probe move requested.
	cmd := n.Advance(nav.Point{X: 5, Y: 5})
	require.Equal(t, nav.CmdMove, cmd)
	_, ok := n.Heading()
	assert.False(t, ok)

	// Moved east by one: heading is now known.
	cmd = n.Advance(nav.Point{X: 6, Y: 5})
	require.Equal(t, nav.CmdTurnRight, cmd)
	heading, ok := n.Heading()
	require.True(t, ok)
	assert.Equal(t, nav.South, heading, "east rotated once clockwise is south")

	// East needs two right turns to reach west; the second is also a right turn.
	cmd = n.Advance(nav.Point{X: 6, Y: 5})
	require.Equal(t, nav.CmdTurnRight, cmd)
	heading, _ = n.Heading()
	assert.Equal(t, nav.West, heading)

	// Heading now matches the desired direction: move.
	cmd = n.Advance(nav.Point{X: 6, Y: 5})
	assert.Equal(t, nav.CmdMove, cmd)
}

func TestObstacleDuringProbeRetriesWithoutBypass(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 100)
	require.Equal(t, nav.CmdMove, n.First())

	cmd := n.Advance(nav.Point{X: 0, Y: 5})
	require.Equal(t, nav.CmdMove, cmd)

	// Second probe move is blocked: position unchanged.
	cmd = n.Advance(nav.Point{X: 0, Y: 5})
	require.Equal(t, nav.CmdTurnRight, cmd)
	assert.Equal(t, 1, n.ObstacleHits())
	_, ok := n.Heading()
	assert.False(t, ok, "heading still unknown after a blocked probe")

	// Retry the probe in the new direction: a single move, no bypass queue.
	cmd = n.Advance(nav.Point{X: 0, Y: 5})
	require.Equal(t, nav.CmdMove, cmd)

	// Moved south, which also happens to already be the desired heading
	// toward the origin at column x=0.
	cmd = n.Advance(nav.Point{X: 0, Y: 4})
	require.Equal(t, nav.CmdMove, cmd, "heading resolved to south, already desired")
	heading, ok := n.Heading()
	require.True(t, ok)
	assert.Equal(t, nav.South, heading)
}

// TestCanonicalBypassSequence pins the exact seven-action obstacle bypass:
// turn right, move, turn left, move, turn left, move, turn right, with no
// net change of heading.
func TestCanonicalBypassSequence(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 3)
	require.Equal(t, nav.CmdMove, n.First())

	require.Equal(t, nav.CmdMove, n.Advance(nav.Point{X: 6, Y: 5}))       // baseline
	require.Equal(t, nav.CmdTurnRight, n.Advance(nav.Point{X: 7, Y: 5}))  // heading east, turn 1/2
	require.Equal(t, nav.CmdTurnRight, n.Advance(nav.Point{X: 7, Y: 5}))  // turn 2/2, now west
	require.Equal(t, nav.CmdMove, n.Advance(nav.Point{X: 7, Y: 5}))       // heading matches, move

	heading, _ := n.Heading()
	require.Equal(t, nav.West, heading)

	// The move is blocked: obstacle bypass kicks off.
	cmd := n.Advance(nav.Point{X: 7, Y: 5})
	require.Equal(t, nav.CmdTurnRight, cmd)
	assert.Equal(t, 1, n.ObstacleHits())

	wantSequence := []nav.Command{
		nav.CmdMove, nav.CmdTurnLeft, nav.CmdMove, nav.CmdTurnLeft, nav.CmdMove, nav.CmdTurnRight,
	}
	pos := nav.Point{X: 7, Y: 5}
	for i, want := range wantSequence {
		if want == nav.CmdMove {
			pos.X++ // any forward progress; exact coordinates aren't under test here
		}
		got := n.Advance(pos)
		assert.Equalf(t, want, got, "bypass step %d", i)
	}

	// Heading is unchanged after the net-zero-rotation bypass.
	heading, _ = n.Heading()
	assert.Equal(t, nav.West, heading)
	assert.Equal(t, 1, n.ObstacleHits(), "bypass itself must not add obstacle hits")
}

func TestArrivalOnFirstFixTriggersPickUp(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 100)
	require.Equal(t, nav.CmdMove, n.First())

	cmd := n.Advance(nav.Point{X: 0, Y: 0})
	assert.Equal(t, nav.CmdPickUp, cmd)
	assert.True(t, n.Arrived())
}

func TestStepBudgetExhaustion(t *testing.T) {
	t.Parallel()
	n := nav.New(1, 100)
	require.Equal(t, nav.CmdMove, n.First())

	require.Equal(t, nav.CmdMove, n.Advance(nav.Point{X: 5, Y: 5})) // baseline, free
	cmd := n.Advance(nav.Point{X: 6, Y: 5})                         // consumes the single step
	assert.Equal(t, nav.CmdNone, cmd)
	assert.True(t, n.Exhausted())
	assert.Equal(t, 0, n.StepsRemaining())
}

func TestObstacleBudgetExhaustion(t *testing.T) {
	t.Parallel()
	n := nav.New(100, 0)
	require.Equal(t, nav.CmdMove, n.First())

	require.Equal(t, nav.CmdMove, n.Advance(nav.Point{X: 5, Y: 5}))
	cmd := n.Advance(nav.Point{X: 5, Y: 5}) // first obstacle hit already exceeds a budget of zero
	assert.Equal(t, nav.CmdNone, cmd)
	assert.True(t, n.Exhausted())
	assert.Equal(t, 1, n.ObstacleHits())
}

// TestExhaustionExactlyAtArrivalAllowsPickUp pins the resolution that
// reaching the origin on the very move that would otherwise exhaust the
// step budget still counts as arrival, not exhaustion.
func TestExhaustionExactlyAtArrivalAllowsPickUp(t *testing.T) {
	t.Parallel()
	n := nav.New(1, 100)
	require.Equal(t, nav.CmdMove, n.First())

	require.Equal(t, nav.CmdMove, n.Advance(nav.Point{X: 1, Y: 0})) // baseline, free
	cmd := n.Advance(nav.Point{X: 0, Y: 0})                         // last step lands on origin
	assert.Equal(t, nav.CmdPickUp, cmd)
	assert.True(t, n.Arrived())
	assert.False(t, n.Exhausted())
}
