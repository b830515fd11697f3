// Package lifecycle encodes the fixed driver-status sequence of an order.
package lifecycle

// Driver statuses as the backend spells them.
const (
	PickMe         = "Pick me"
	Accepted       = "Accepted"
	Coming         = "Coming"
	ArrivedForPick = "Arrived for pick"
	Traveling      = "Traveling"
	Dropped        = "Dropped"
)

// Action is the next step a driver may take on an order.
type Action struct {
	Label string
	Next  string
}

// edges is a simple path: every status has at most one successor and
// Dropped has none.
var edges = map[string]string{
	PickMe:         Accepted,
	Accepted:       Coming,
	Coming:         ArrivedForPick,
	ArrivedForPick: Traveling,
	Traveling:      Dropped,
}

// NextAction returns the action available from status. Terminal and
// unknown statuses have none.
func NextAction(status string) (Action, bool) {
	next, ok := edges[status]
	if !ok {
		return Action{}, false
	}
	return Action{Label: "Mark as " + next, Next: next}, true
}

// Sequence returns the statuses in lifecycle order.
func Sequence() []string {
	return []string{PickMe, Accepted, Coming, ArrivedForPick, Traveling, Dropped}
}

// Terminal reports whether status is the end of the lifecycle.
func Terminal(status string) bool { return status == Dropped }
