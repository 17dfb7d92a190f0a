package runtime

// Status is the state of an evaluation. Every status except Running is
// terminal for a given Evaluate call.
type Status string

const (
	StatusRunning              Status = "running"
	StatusIdle                 Status = "idle"
	StatusTimedOut             Status = "timed_out"
	StatusMaxIterationsReached Status = "max_iterations_reached"
)

// Terminal reports whether s ends an evaluation.
func (s Status) Terminal() bool {
	return s != StatusRunning
}

// EvaluationState is the progress of one evaluation run.
type EvaluationState struct {
	RunID string

	// Iteration is the number of passes started.
	Iteration int

	// RulesFired counts node rewrites that changed data, over all passes.
	RulesFired int

	// Transactions counts committed passes that changed the graph.
	Transactions int

	// IdleStreak counts consecutive passes that left the graph unchanged.
	IdleStreak int

	Status Status

	// FinalHash is the graph hash when the run ended.
	FinalHash string
}

// Idle reports whether the run ended because the graph stopped changing.
func (s EvaluationState) Idle() bool {
	return s.Status == StatusIdle
}
