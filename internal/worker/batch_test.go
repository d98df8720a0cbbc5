package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 4, 3, 2, 1}

	results := Map(context.Background(), items, 3, func(ctx context.Context, index int, item int) (int, error) {
		time.Sleep(time.Duration(item) * time.Millisecond)
		return item * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("expected %d results, got %d", len(items), len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d", i, r.Index)
		}
		if r.Value != items[i]*10 {
			t.Errorf("result %d: expected %d, got %d", i, items[i]*10, r.Value)
		}
	}
}

func TestMap_IsolatesErrors(t *testing.T) {
	items := []string{"ok", "fail", "ok"}

	results := Map(context.Background(), items, 2, func(ctx context.Context, index int, item string) (string, error) {
		if item == "fail" {
			return "", errors.New("boom")
		}
		return item, nil
	})

	if results[0].Err != nil || results[2].Err != nil {
		t.Errorf("expected successes around the failure, got %v / %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Error("expected error for failing item")
	}
}

func TestMap_Empty(t *testing.T) {
	results := Map(context.Background(), []int(nil), 2, func(ctx context.Context, index int, item int) (int, error) {
		t.Fatal("fn should not be called")
		return 0, nil
	})
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int32
	results := Map(ctx, []int{1, 2, 3}, 1, func(ctx context.Context, index int, item int) (int, error) {
		atomic.AddInt32(&calls, 1)
		return item, nil
	})

	if atomic.LoadInt32(&calls) != 0 {
		t.Errorf("expected no calls on a cancelled context, got %d", calls)
	}
	for i, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("result %d: expected context.Canceled, got %v", i, r.Err)
		}
	}
}

func TestChunk(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}

	batches := Chunk(items, 3)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	if len(batches[0]) != 3 || len(batches[2]) != 1 || batches[2][0] != 7 {
		t.Errorf("unexpected batches: %v", batches)
	}

	if got := Chunk([]int{}, 3); len(got) != 0 {
		t.Errorf("expected no batches for empty input, got %v", got)
	}
	if got := Chunk(items, 0); len(got) != len(items) {
		t.Errorf("expected size 0 to behave as size 1, got %d batches", len(got))
	}
}
