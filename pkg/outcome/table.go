package outcome

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeights is matched by every *InvalidWeightsError.
var ErrInvalidWeights = errors.New("invalid weights")

// InvalidWeightsError reports a weight vector that cannot be sampled from.
type InvalidWeightsError struct {
	Index  int // offending index, or -1 when the vector as a whole is bad
	Reason string
}

func (e *InvalidWeightsError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("invalid weights: %s", e.Reason)
	}
	return fmt.Sprintf("invalid weights: index %d: %s", e.Index, e.Reason)
}

func (e *InvalidWeightsError) Is(target error) bool {
	return target == ErrInvalidWeights
}

// Table is an alias-method sampling table. It is never modified after New
// returns, so a single Table may be shared by any number of goroutines.
type Table struct {
	prob  []float64
	alias []int
}

// New builds a Table from non-negative weights using Vose's alias method.
// The weights do not need to be normalized.
func New(weights []float64) (*Table, error) {
	n := len(weights)
	if n == 0 {
		return nil, &InvalidWeightsError{Index: -1, Reason: "no outcomes"}
	}

	var sum float64
	for i, w := range weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, &InvalidWeightsError{Index: i, Reason: "not a finite number"}
		}
		if w < 0 {
			return nil, &InvalidWeightsError{Index: i, Reason: fmt.Sprintf("negative weight %g", w)}
		}
		sum += w
	}
	if sum == 0 {
		return nil, &InvalidWeightsError{Index: -1, Reason: "weights sum to zero"}
	}
	if math.IsInf(sum, 0) {
		return nil, &InvalidWeightsError{Index: -1, Reason: "weights overflow"}
	}

	scaled := make([]float64, n)
	small := make([]int, 0, n)
	large := make([]int, 0, n)
	for i, w := range weights {
		// Divide first: n/sum overflows for subnormal sums.
		scaled[i] = w / sum * float64(n)
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}

	t := &Table{
		prob:  make([]float64, n),
		alias: make([]int, n),
	}

	// Every pass retires one small index, so the loop runs at most n times.
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]

		t.prob[s] = scaled[s]
		t.alias[s] = l

		scaled[l] -= 1 - scaled[s]
		if scaled[l] < 1 {
			large = large[:len(large)-1]
			small = append(small, l)
		}
	}

	// Leftovers are floating-point residue; they always accept themselves.
	for _, i := range large {
		t.prob[i] = 1
		t.alias[i] = i
	}
	for _, i := range small {
		t.prob[i] = 1
		t.alias[i] = i
	}

	return t, nil
}

// Len returns the number of outcomes.
func (t *Table) Len() int {
	return len(t.prob)
}

// Probability returns the acceptance probability of slot i.
func (t *Table) Probability(i int) float64 {
	return t.prob[i]
}

// Alias returns the outcome a rejected draw of slot i falls through to.
// Slots with probability 1 alias themselves.
func (t *Table) Alias(i int) int {
	return t.alias[i]
}

// Pick draws one outcome index in [0, Len()) in constant time.
func (t *Table) Pick(src Source) int {
	i := src.IntN(len(t.prob))
	if src.Float64() <= t.prob[i] {
		return i
	}
	return t.alias[i]
}

// Picker pairs a Table with the random source it draws from.
type Picker struct {
	table *Table
	src   Source
}

// NewPicker builds a Table from weights and binds it to src. A nil src
// falls back to GlobalSource.
func NewPicker(weights []float64, src Source) (*Picker, error) {
	t, err := New(weights)
	if err != nil {
		return nil, err
	}
	if src == nil {
		src = GlobalSource{}
	}
	return &Picker{table: t, src: src}, nil
}

// Pick returns the next outcome index.
func (p *Picker) Pick() int {
	return p.table.Pick(p.src)
}

// Table returns the underlying sampling table.
func (p *Picker) Table() *Table {
	return p.table
}
