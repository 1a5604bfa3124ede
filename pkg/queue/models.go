package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/pkg/combat"
)

// Request is a queued combat request
type Request struct {
	RequestID  string         `json:"request_id"`
	Combat     combat.Request `json:"combat"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

// NewRequest wraps a combat request with a fresh request id
func NewRequest(req combat.Request) *Request {
	return &Request{
		RequestID:  uuid.New().String(),
		Combat:     req,
		EnqueuedAt: time.Now().UTC(),
	}
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
