// File: internal/deployer/state.go
// Brief: Deploy state machine states and the transition record.

package deployer

// State names one phase of a deploy.
type State string

const (
	StateIdle           State = "Idle"
	StateBuilding       State = "Building"
	StatePublishing     State = "Publishing"
	StateGraphApplying  State = "GraphApplying"
	StateRolloutWaiting State = "RolloutWaiting"
	StateVerifying      State = "Verifying"
	StateSucceeded      State = "Succeeded"
	StateFailed         State = "Failed"
)

// Transition is one recorded state change. The full sequence of a deploy is
// kept on the Result so callers and tests can assert on the exact path taken.
type Transition struct {
	From State
	To   State
}

// Result is the outcome of one deploy run.
type Result struct {
	State       State
	Transitions []Transition
	// ImageURI is the fully qualified image reference that was deployed.
	ImageURI string
	// BuildSkipped is set when the target tag already existed in the registry.
	BuildSkipped bool
	Err          error
}

func (r *Result) transition(to State) {
	from := StateIdle
	if n := len(r.Transitions); n > 0 {
		from = r.Transitions[n-1].To
	}
	r.Transitions = append(r.Transitions, Transition{From: from, To: to})
	r.State = to
}

// Path returns the visited states in order, starting at Idle.
func (r *Result) Path() []State {
	out := []State{StateIdle}
	for _, t := range r.Transitions {
		out = append(out, t.To)
	}
	return out
}
