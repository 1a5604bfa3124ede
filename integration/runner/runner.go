package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

const defaultTolerance = 0.05

// Runner executes integration tests against a running combat-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...any)
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...any) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, suite.Name, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) runStep(ctx context.Context, testName string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{
		TestName: testName,
		StepName: step.Name,
		Counts:   make(map[string]int),
	}

	repeat := max(step.Repeat, 1)
	var resolutions []*combat.Resolution

	for range repeat {
		var (
			res    *combat.Resolution
			status int
			err    error
		)
		switch step.Mode {
		case "", ModeResolve:
			res, status, err = r.resolve(ctx, step.Request)
		case ModeQueue:
			res, status, err = r.queueAndWait(ctx, step.Request)
		default:
			err = fmt.Errorf("unknown step mode %q", step.Mode)
		}
		if err != nil {
			result.Error = err
			result.Duration = time.Since(start)
			return result
		}

		if want := step.Expectations.Status; want != nil && status != *want {
			result.Error = fmt.Errorf("expected status %d, got %d", *want, status)
			result.Duration = time.Since(start)
			return result
		}
		if res != nil {
			resolutions = append(resolutions, res)
			result.Counts[res.Outcome]++
		}
	}

	result.Error = validateExpectations(step.Expectations, resolutions)
	result.Success = result.Error == nil
	result.Duration = time.Since(start)
	return result
}

// validateExpectations checks every resolution against the step's expectations
func validateExpectations(exp Expectations, resolutions []*combat.Resolution) error {
	var errs []string

	for _, res := range resolutions {
		if len(exp.Outcomes) > 0 && !slices.Contains(exp.Outcomes, res.Outcome) {
			errs = append(errs, fmt.Sprintf("outcome %q not in %v", res.Outcome, exp.Outcomes))
		}
		if len(exp.Indexes) > 0 && !slices.Contains(exp.Indexes, res.OutcomeIndex) {
			errs = append(errs, fmt.Sprintf("outcome index %d not in %v", res.OutcomeIndex, exp.Indexes))
		}
		if exp.Fallback != nil && res.Fallback != *exp.Fallback {
			errs = append(errs, fmt.Sprintf("expected fallback=%t, got %t", *exp.Fallback, res.Fallback))
		}
	}

	if len(exp.Shares) > 0 {
		if len(resolutions) == 0 {
			errs = append(errs, "shares expected but no resolutions were returned")
		} else {
			tolerance := exp.Tolerance
			if tolerance <= 0 {
				tolerance = defaultTolerance
			}
			counts := make(map[string]int)
			for _, res := range resolutions {
				counts[res.Outcome]++
			}
			for name, want := range exp.Shares {
				got := float64(counts[name]) / float64(len(resolutions))
				if math.Abs(got-want) > tolerance {
					errs = append(errs, fmt.Sprintf("share of %q: expected %.3f±%.3f, got %.3f", name, want, tolerance, got))
				}
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("expectations not met:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// resolve posts a synchronous resolution. A nil resolution is returned for non-200 responses.
func (r *Runner) resolve(ctx context.Context, req combat.Request) (*combat.Resolution, int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal combat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/v1/combat/resolve", bytes.NewBuffer(body))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create resolve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to send resolve request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, nil
	}

	var res combat.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to parse resolution: %w", err)
	}
	return &res, resp.StatusCode, nil
}

// ListResolutions fetches an attacker's recent resolutions, newest first
func (r *Runner) ListResolutions(ctx context.Context, attackerID, limit int) ([]*combat.Resolution, error) {
	url := r.BaseURL + "/v1/combat?attacker_id=" + strconv.Itoa(attackerID) + "&limit=" + strconv.Itoa(limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %w", err)
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("history endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var list []*combat.Resolution
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	return list, nil
}
