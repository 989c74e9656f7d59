package navigation

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/matijazezelj/wayfind/pkg/models"
)

// Turn is the maneuver at an interior node of a path.
type Turn string

const (
	TurnStraight Turn = "straight"
	TurnLeft     Turn = "left"
	TurnRight    Turn = "right"
	TurnAround   Turn = "around"
)

// StepType is the coarse classification of a direction step.
type StepType string

const (
	StepStart    StepType = "start"
	StepStraight StepType = "straight"
	StepLeft     StepType = "left"
	StepRight    StepType = "right"
	StepAround   StepType = "around"
	StepSpecial  StepType = "special"
	StepArrive   StepType = "arrive"
)

// turnThreshold is the minimum |cross| that counts as a turn.
const turnThreshold = 0.5

// Step is one instruction of a route.
type Step struct {
	Text   string   `json:"text"`
	NodeID string   `json:"node_id"`
	Type   StepType `json:"type"`
	// Turn is the geometric maneuver at the node, kept on special steps
	// so haptic feedback can still signal the direction.
	Turn Turn `json:"turn,omitempty"`
	// Distance to the next node of the path in meters.
	Distance float64 `json:"distance,omitempty"`
}

// ClassifyTurn classifies the maneuver at curr when arriving from prev and
// leaving toward next, using the 2D cross and dot products of the incoming
// and outgoing vectors. Positive cross is a left turn with Y pointing north.
func ClassifyTurn(prev, curr, next orb.Point) Turn {
	d1x, d1y := curr[0]-prev[0], curr[1]-prev[1]
	d2x, d2y := next[0]-curr[0], next[1]-curr[1]
	cross := d1x*d2y - d1y*d2x
	dot := d1x*d2x + d1y*d2y

	switch {
	case math.Abs(cross) < turnThreshold && dot > 0:
		return TurnStraight
	case cross > turnThreshold:
		return TurnLeft
	case cross < -turnThreshold:
		return TurnRight
	case dot > 0:
		return TurnStraight
	default:
		return TurnAround
	}
}

// Heading describes the first hop of path, for example "Head east — 12m",
// choosing east/west when the horizontal component dominates and
// north/south otherwise. It returns false for paths shorter than two nodes.
func Heading(b *Building, path []string) (string, bool) {
	if len(path) < 2 {
		return "", false
	}
	from, _ := b.Node(path[0])
	to, _ := b.Node(path[1])
	dx, dy := to.X-from.X, to.Y-from.Y

	var dir string
	switch {
	case math.Abs(dx) > math.Abs(dy) && dx > 0:
		dir = "east"
	case math.Abs(dx) > math.Abs(dy):
		dir = "west"
	case dy > 0:
		dir = "north"
	default:
		dir = "south"
	}
	return fmt.Sprintf("Head %s — %dm", dir, int(math.Round(b.Distance(path[0], path[1])))), true
}

// Directions is the plain turn-by-turn form: one step per interior node and
// a final arrive step. The first hop is described separately by Heading.
// Special nodes replace the turn text with an advisory phrase but keep the
// turn classification as the step type.
func Directions(b *Building, path []string) []Step {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		return []Step{alreadyThere(b, path[0])}
	}

	steps := make([]Step, 0, len(path)-1)
	for i := 1; i < len(path)-1; i++ {
		turn := turnAt(b, path, i)
		n, _ := b.Node(path[i])
		text := turnText(turn, n)
		if phrase, ok := specialPhrase(b, path, i); ok {
			text = phrase
		}
		steps = append(steps, Step{
			Text:     text,
			NodeID:   n.ID,
			Type:     StepType(turn),
			Turn:     turn,
			Distance: b.Distance(path[i], path[i+1]),
		})
	}
	return append(steps, arrival(b, path[len(path)-1]))
}

// Guidance is the richer voice and vibration form. It opens with an
// explicit start step carrying the heading, emits special steps for
// elevator, stairs, ramp and refuge nodes, and closes with an arrive step.
func Guidance(b *Building, path []string) []Step {
	if len(path) == 0 {
		return nil
	}
	if len(path) == 1 {
		return []Step{alreadyThere(b, path[0])}
	}

	first, _ := b.Node(path[0])
	heading, _ := Heading(b, path)
	steps := make([]Step, 0, len(path))
	steps = append(steps, Step{
		Text:     fmt.Sprintf("Starting at %s. %s.", first.DisplayName(), heading),
		NodeID:   first.ID,
		Type:     StepStart,
		Distance: b.Distance(path[0], path[1]),
	})

	for i := 1; i < len(path)-1; i++ {
		turn := turnAt(b, path, i)
		n, _ := b.Node(path[i])
		step := Step{
			Text:     turnText(turn, n),
			NodeID:   n.ID,
			Type:     StepType(turn),
			Turn:     turn,
			Distance: b.Distance(path[i], path[i+1]),
		}
		if phrase, ok := specialPhrase(b, path, i); ok {
			step.Text = phrase
			step.Type = StepSpecial
		}
		steps = append(steps, step)
	}
	return append(steps, arrival(b, path[len(path)-1]))
}

// Pattern returns the vibration pulses for the step in milliseconds,
// alternating on and off durations. Special steps vibrate like their turn.
func (s Step) Pattern() []int {
	t := s.Type
	if t == StepSpecial {
		t = StepType(s.Turn)
	}
	switch t {
	case StepStart:
		return []int{200}
	case StepLeft:
		return []int{100, 100, 100}
	case StepRight:
		return []int{300}
	case StepAround:
		return []int{100, 100, 100, 100, 100}
	case StepArrive:
		return []int{500, 200, 500}
	default:
		return []int{50}
	}
}

func turnAt(b *Building, path []string, i int) Turn {
	prev, _ := b.Node(path[i-1])
	curr, _ := b.Node(path[i])
	next, _ := b.Node(path[i+1])
	return ClassifyTurn(prev.Point(), curr.Point(), next.Point())
}

func turnText(t Turn, n models.Node) string {
	switch t {
	case TurnLeft:
		return fmt.Sprintf("Turn left at %s.", n.DisplayName())
	case TurnRight:
		return fmt.Sprintf("Turn right at %s.", n.DisplayName())
	case TurnAround:
		return fmt.Sprintf("Turn around at %s.", n.DisplayName())
	default:
		return fmt.Sprintf("Continue straight past %s.", n.DisplayName())
	}
}

// specialPhrase returns the advisory for path[i]. A stairs node only says
// to take the stairs when the next hop is a stairs edge; otherwise the
// route just crosses the landing.
func specialPhrase(b *Building, path []string, i int) (string, bool) {
	n, _ := b.Node(path[i])
	switch n.Type {
	case models.NodeElevator:
		return "Take the elevator.", true
	case models.NodeStairs:
		if e, ok := b.Edge(path[i], path[i+1]); ok && e.Type == models.EdgeStairs {
			return "Take the stairs.", true
		}
		return "Pass the stairwell landing.", true
	case models.NodeRamp:
		return "Use the ramp.", true
	case models.NodeRefuge:
		return "Pass through the refuge area.", true
	}
	return "", false
}

func arrival(b *Building, id string) Step {
	n, _ := b.Node(id)
	var text string
	switch n.Type {
	case models.NodeExit:
		text = fmt.Sprintf("You have reached %s. Exit the building.", n.DisplayName())
	case models.NodeRefuge:
		text = fmt.Sprintf("You have reached %s. Stay here, help is on the way.", n.DisplayName())
	default:
		text = fmt.Sprintf("You have arrived at %s.", n.DisplayName())
	}
	return Step{Text: text, NodeID: id, Type: StepArrive}
}

func alreadyThere(b *Building, id string) Step {
	n, _ := b.Node(id)
	return Step{Text: fmt.Sprintf("You are already at %s.", n.DisplayName()), NodeID: id, Type: StepArrive}
}
