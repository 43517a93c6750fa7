package stagequeue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for want := 0; want < 5; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Fatalf("TryPop = %d,%v want %d", got, ok, want)
		}
	}
	if _, ok := q.TryPop(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestNextTerminatesAfterCompletion(t *testing.T) {
	q := New[string]()
	q.Push("a")
	q.MarkCompleted()
	q.MarkCompleted()

	if got, ok := q.Next(); !ok || got != "a" {
		t.Fatalf("Next = %q,%v", got, ok)
	}
	if _, ok := q.Next(); ok {
		t.Fatal("expected termination on completed empty queue")
	}
	if !q.Completed() {
		t.Fatal("Completed should stay true")
	}
}

func TestMarkCompletedReleasesBlockedConsumer(t *testing.T) {
	q := New[int]()
	done := make(chan bool)
	go func() {
		_, ok := q.Next()
		done <- ok
	}()

	time.Sleep(20 * time.Millisecond)
	q.MarkCompleted()

	select {
	case ok := <-done:
		if ok {
			t.Fatal("consumer received an item from an empty queue")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer was not released")
	}
}

func TestNextContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, _, err := q.NextContext(ctx)
		done <- err
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected context error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("NextContext did not observe cancellation")
	}
}

func TestNextContextCancelledLeavesItemsQueued(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok, err := q.NextContext(ctx); ok || !errors.Is(err, context.Canceled) {
		t.Fatalf("NextContext = ok %v, err %v; want cancellation", ok, err)
	}
	if q.Len() != 2 {
		t.Fatalf("Len = %d, want 2", q.Len())
	}
}

func TestConcurrentNoLossNoDuplication(t *testing.T) {
	const producers, perProducer = 4, 250
	q := New[int]()

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(base*perProducer + i)
			}
		}(p)
	}

	results := make(chan []int)
	for c := 0; c < 2; c++ {
		go func() {
			var got []int
			for {
				item, ok := q.Next()
				if !ok {
					results <- got
					return
				}
				got = append(got, item)
			}
		}()
	}

	wg.Wait()
	q.MarkCompleted()

	seen := make(map[int]int)
	for c := 0; c < 2; c++ {
		for _, v := range <-results {
			seen[v]++
		}
	}
	if len(seen) != producers*perProducer {
		t.Fatalf("popped %d distinct items, want %d", len(seen), producers*perProducer)
	}
	for v, n := range seen {
		if n != 1 {
			t.Fatalf("item %d popped %d times", v, n)
		}
	}
	if q.Len() != 0 || q.Pushed() != producers*perProducer {
		t.Fatalf("Len=%d Pushed=%d", q.Len(), q.Pushed())
	}
}

func TestSingleConsumerPreservesProducerOrder(t *testing.T) {
	q := New[int]()
	go func() {
		for i := 0; i < 100; i++ {
			q.Push(i)
		}
		q.MarkCompleted()
	}()
	want := 0
	for {
		item, ok := q.Next()
		if !ok {
			break
		}
		if item != want {
			t.Fatalf("got %d want %d", item, want)
		}
		want++
	}
	if want != 100 {
		t.Fatalf("received %d items", want)
	}
}
