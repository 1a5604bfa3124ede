package combat

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownMethod = errors.New("unknown attack method")
	ErrNoProfile     = errors.New("no outcome profile for method")
	ErrBadRequest    = errors.New("invalid combat request")
)

// Method is the attack method of a combat action.
type Method string

const (
	MethodMelee  Method = "melee"
	MethodRanged Method = "ranged"
	MethodMagic  Method = "magic"
)

// Methods lists every valid attack method.
var Methods = []Method{MethodMelee, MethodRanged, MethodMagic}

// ParseMethod converts a string (case-insensitive) into a Method.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
	return m, nil
}

func (m Method) Valid() bool {
	switch m {
	case MethodMelee, MethodRanged, MethodMagic:
		return true
	}
	return false
}

func (m Method) String() string {
	return string(m)
}

// UnmarshalText rejects unknown methods when decoding JSON or YAML keys.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Request asks for the outcome of one attack. Attacker, target and method
// are carried for bookkeeping; only Weights drive the draw. When Weights is
// empty the caller is expected to derive them from a Profile.
type Request struct {
	AttackerID int       `json:"attacker_id"`
	TargetID   int       `json:"target_id"`
	Method     Method    `json:"method"`
	Weights    []float64 `json:"weights,omitempty"`
}

// Validate checks the bookkeeping fields. Weights are validated by the sampler.
func (r *Request) Validate() error {
	if r.AttackerID <= 0 {
		return fmt.Errorf("%w: attacker_id must be positive", ErrBadRequest)
	}
	if r.TargetID <= 0 {
		return fmt.Errorf("%w: target_id must be positive", ErrBadRequest)
	}
	if !r.Method.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownMethod, r.Method)
	}
	return nil
}

// Response carries the sampled outcome index. Its meaning belongs to the caller.
type Response struct {
	OutcomeIndex int  `json:"outcome_index"`
	Fallback     bool `json:"fallback,omitempty"`
}

// Resolution is the stored record of a resolved attack.
type Resolution struct {
	ID           uuid.UUID `json:"id"`
	AttackerID   int       `json:"attacker_id"`
	TargetID     int       `json:"target_id"`
	Method       Method    `json:"method"`
	Weights      []float64 `json:"weights"`
	OutcomeIndex int       `json:"outcome_index"`
	Outcome      string    `json:"outcome,omitempty"`
	Fallback     bool      `json:"fallback,omitempty"`
	ResolvedAt   time.Time `json:"resolved_at"`
}

// NewResolution stamps a fresh id and time on a request/response pair.
func NewResolution(req Request, resp Response, label string) *Resolution {
	return &Resolution{
		ID:           uuid.New(),
		AttackerID:   req.AttackerID,
		TargetID:     req.TargetID,
		Method:       req.Method,
		Weights:      req.Weights,
		OutcomeIndex: resp.OutcomeIndex,
		Outcome:      label,
		Fallback:     resp.Fallback,
		ResolvedAt:   time.Now().UTC(),
	}
}
