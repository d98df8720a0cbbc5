package worker

import (
	"context"
)

// indexedJob runs fn on one element and remembers its position
type indexedJob[T, R any] struct {
	index int
	item  T
	fn    func(ctx context.Context, index int, item T) (R, error)
}

func (j *indexedJob[T, R]) Execute(ctx context.Context) Result {
	out, err := j.fn(ctx, j.index, j.item)
	return &IndexedResult[R]{Index: j.index, Value: out, Err: err}
}

// IndexedResult is the outcome of one element processed by Map
type IndexedResult[R any] struct {
	Index int
	Value R
	Err   error
}

// GetError returns the error from the job
func (r *IndexedResult[R]) GetError() error {
	return r.Err
}

// Map runs fn over items with at most concurrency workers and returns one
// result per item in input order. Items that never ran because ctx ended
// carry the context's error.
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(ctx context.Context, index int, item T) (R, error)) []IndexedResult[R] {
	out := make([]IndexedResult[R], len(items))
	if len(items) == 0 {
		return out
	}

	pool := NewPool(ctx, concurrency)
	pool.Start()

	for i, item := range items {
		if !pool.Submit(&indexedJob[T, R]{index: i, item: item, fn: fn}) {
			break
		}
	}

	finished := make([]bool, len(items))
	for _, res := range pool.Wait() {
		r := res.(*IndexedResult[R])
		out[r.Index] = *r
		finished[r.Index] = true
	}

	for i := range out {
		if !finished[i] {
			out[i] = IndexedResult[R]{Index: i, Err: context.Cause(ctx)}
		}
	}

	return out
}

// Chunk splits items into consecutive batches of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = 1
	}

	var batches [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
