package runner

import (
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// Step modes
const (
	ModeResolve = "resolve" // POST /v1/combat/resolve
	ModeQueue   = "queue"   // POST /v1/combat/queue, then wait for the worker
)

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep sends one combat request, Repeat times
type TestStep struct {
	Name         string         `json:"name,omitempty"`
	Mode         string         `json:"mode,omitempty"` // defaults to resolve
	Request      combat.Request `json:"request"`
	Repeat       int            `json:"repeat,omitempty"`
	Expectations Expectations   `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Status   *int     `json:"status,omitempty"`   // HTTP status of every response
	Outcomes []string `json:"outcomes,omitempty"` // allowed outcome labels
	Indexes  []int    `json:"indexes,omitempty"`  // allowed outcome indexes
	Fallback *bool    `json:"fallback,omitempty"`

	// Shares maps outcome labels to expected frequency over all repeats.
	Shares    map[string]float64 `json:"shares,omitempty"`
	Tolerance float64            `json:"tolerance,omitempty"` // absolute, defaults to 0.05
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Counts   map[string]int
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
}
