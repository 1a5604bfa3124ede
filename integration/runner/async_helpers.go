package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jwebster45206/combat-engine/pkg/combat"
)

const (
	// PollInterval is how often to check history for the queued resolution
	PollInterval = 250 * time.Millisecond
	// QueueTimeout is max time to wait for a worker to resolve a queued request
	QueueTimeout = 30 * time.Second
)

// QueueResponse is the response from the queue endpoint
type QueueResponse struct {
	RequestID string `json:"request_id"`
}

// PostQueue posts a combat request to the queue endpoint and returns the request_id
func PostQueue(ctx context.Context, client *http.Client, baseURL string, req combat.Request) (string, int, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal combat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/v1/combat/queue", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create queue request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send queue request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", resp.StatusCode, nil
	}

	var queued QueueResponse
	if err := json.NewDecoder(resp.Body).Decode(&queued); err != nil {
		return "", resp.StatusCode, fmt.Errorf("failed to parse queue response: %w", err)
	}
	return queued.RequestID, resp.StatusCode, nil
}

// queueAndWait queues req and polls the attacker's history until a new
// resolution appears. Non-202 responses return a nil resolution.
func (r *Runner) queueAndWait(ctx context.Context, req combat.Request) (*combat.Resolution, int, error) {
	before, err := r.ListResolutions(ctx, req.AttackerID, 1)
	if err != nil {
		return nil, 0, err
	}
	var lastID string
	if len(before) > 0 {
		lastID = before[0].ID.String()
	}

	requestID, status, err := PostQueue(ctx, r.Client, r.BaseURL, req)
	if err != nil || requestID == "" {
		return nil, status, err
	}
	r.Logger("      queued request %s", requestID)

	res, err := r.waitForResolution(ctx, req.AttackerID, lastID)
	return res, status, err
}

func (r *Runner) waitForResolution(ctx context.Context, attackerID int, lastID string) (*combat.Resolution, error) {
	ctx, cancel := context.WithTimeout(ctx, QueueTimeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		list, err := r.ListResolutions(ctx, attackerID, 1)
		if err != nil {
			return nil, err
		}
		if len(list) > 0 && list[0].ID.String() != lastID {
			return list[0], nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for queued resolution for attacker %d", attackerID)
		case <-ticker.C:
		}
	}
}
