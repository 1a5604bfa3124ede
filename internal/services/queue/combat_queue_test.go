package queue

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/combat-engine/pkg/combat"
	queuePkg "github.com/jwebster45206/combat-engine/pkg/queue"
)

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	redisURL := "redis://" + mr.Addr()

	client, err := NewClient(redisURL, logger)
	if err != nil {
		mr.Close()
		t.Fatalf("Failed to create queue client: %v", err)
	}

	return client, mr
}

func TestCombatQueue_EnqueueAndDequeue(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewCombatQueue(client)
	ctx := context.Background()

	first := queuePkg.NewRequest(combat.Request{AttackerID: 1, TargetID: 2, Method: combat.MethodMelee, Weights: []float64{1, 2}})
	second := queuePkg.NewRequest(combat.Request{AttackerID: 3, TargetID: 2, Method: combat.MethodMagic})

	for _, req := range []*queuePkg.Request{first, second} {
		if err := q.EnqueueRequest(ctx, req); err != nil {
			t.Fatalf("Failed to enqueue request: %v", err)
		}
	}

	depth, err := q.Depth(ctx)
	if err != nil {
		t.Fatalf("Failed to get depth: %v", err)
	}
	if depth != 2 {
		t.Errorf("Expected depth 2, got %d", depth)
	}

	got, err := q.DequeueRequest(ctx)
	if err != nil {
		t.Fatalf("Failed to dequeue: %v", err)
	}
	if got.RequestID != first.RequestID {
		t.Errorf("Expected request %s first, got %s", first.RequestID, got.RequestID)
	}
	if got.Combat.Method != combat.MethodMelee || len(got.Combat.Weights) != 2 {
		t.Errorf("Combat request not preserved: %+v", got.Combat)
	}

	got, err = q.BlockingDequeueRequest(ctx, time.Second)
	if err != nil {
		t.Fatalf("Failed to blocking dequeue: %v", err)
	}
	if got == nil || got.RequestID != second.RequestID {
		t.Fatalf("Expected request %s, got %+v", second.RequestID, got)
	}
	if got.Combat.Method != combat.MethodMagic {
		t.Errorf("Expected magic, got %s", got.Combat.Method)
	}

	got, err = q.DequeueRequest(ctx)
	if err != nil {
		t.Fatalf("Dequeue on empty queue returned error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil from empty queue, got %+v", got)
	}
}

func TestCombatQueue_RequeueGoesToHead(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewCombatQueue(client)
	ctx := context.Background()

	first := queuePkg.NewRequest(combat.Request{AttackerID: 7, TargetID: 2, Method: combat.MethodMelee})
	second := queuePkg.NewRequest(combat.Request{AttackerID: 7, TargetID: 2, Method: combat.MethodRanged})
	for _, req := range []*queuePkg.Request{first, second} {
		if err := q.EnqueueRequest(ctx, req); err != nil {
			t.Fatalf("Failed to enqueue request: %v", err)
		}
	}

	got, err := q.DequeueRequest(ctx)
	if err != nil || got == nil {
		t.Fatalf("Failed to dequeue request: %v", err)
	}
	if err := q.RequeueRequest(ctx, got); err != nil {
		t.Fatalf("Failed to requeue request: %v", err)
	}

	for _, want := range []string{first.RequestID, second.RequestID} {
		got, err := q.DequeueRequest(ctx)
		if err != nil || got == nil {
			t.Fatalf("Failed to dequeue request: %v", err)
		}
		if got.RequestID != want {
			t.Errorf("Expected request %s, got %s", want, got.RequestID)
		}
	}
}

func TestCombatQueue_BlockingDequeueCancelled(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	q := NewCombatQueue(client)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := q.BlockingDequeueRequest(ctx, time.Second)
	if err != nil {
		t.Fatalf("Expected no error on cancelled context, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil request, got %+v", got)
	}
}

func TestCombatQueue_BadPayload(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer mr.Close()
	defer client.Close()

	if _, err := mr.RPush(requestsKey, "not json"); err != nil {
		t.Fatalf("Failed to seed queue: %v", err)
	}

	q := NewCombatQueue(client)
	if _, err := q.DequeueRequest(context.Background()); err == nil {
		t.Error("Expected parse error for bad payload")
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	addr := mr.Addr()
	mr.Close()

	if _, err := NewClient(addr, logger); err == nil {
		t.Error("Expected error connecting to closed redis")
	}
}
