package corert

import (
	"sync"
	"testing"
)

func TestAtomicTaskListPushPopFIFO(t *testing.T) {
	l := NewAtomicTaskList()
	if !l.IsEmpty() {
		t.Fatal("new list should be empty")
	}
	tasks := make([]*Task, 10)
	for i := range tasks {
		tasks[i] = &Task{id: uint64(i)}
		l.Push(tasks[i])
	}
	if l.Len() != 10 {
		t.Fatalf("Len = %d, want 10", l.Len())
	}
	for i, want := range tasks {
		got, ok := l.Pop()
		if !ok || got != want {
			t.Fatalf("Pop[%d] = %v, %v; want %v, true", i, got, ok, want)
		}
	}
	if !l.IsEmpty() {
		t.Fatal("list should be empty after draining")
	}
	if _, ok := l.Pop(); ok {
		t.Fatal("Pop on empty list should report false")
	}
}

// TestAtomicTaskListSpansMultipleChunks exercises the chunk-boundary path
// (Push/Pop across more than one taskChunkSize worth of entries).
func TestAtomicTaskListSpansMultipleChunks(t *testing.T) {
	l := NewAtomicTaskList()
	n := taskChunkSize*2 + 17
	for i := 0; i < n; i++ {
		l.Push(&Task{id: uint64(i)})
	}
	if l.Len() != n {
		t.Fatalf("Len = %d, want %d", l.Len(), n)
	}
	count := 0
	for {
		_, ok := l.Pop()
		if !ok {
			break
		}
		count++
	}
	if count != n {
		t.Fatalf("drained %d, want %d", count, n)
	}
}

func TestAtomicTaskListTakeBatch(t *testing.T) {
	l := NewAtomicTaskList()
	for i := 0; i < 5; i++ {
		l.Push(&Task{id: uint64(i)})
	}
	dst := l.TakeBatch(nil, 3)
	if len(dst) != 3 {
		t.Fatalf("TakeBatch returned %d, want 3", len(dst))
	}
	if l.Len() != 2 {
		t.Fatalf("remaining Len = %d, want 2", l.Len())
	}
	dst = l.TakeBatch(dst, 10)
	if len(dst) != 5 {
		t.Fatalf("TakeBatch total = %d, want 5", len(dst))
	}
	if !l.IsEmpty() {
		t.Fatal("list should be drained")
	}
}

// TestAtomicTaskListConcurrentPushPop is the MPMC stress case work sharing
// across executors depends on: many producers, many consumers, no lost or
// duplicated tasks.
func TestAtomicTaskListConcurrentPushPop(t *testing.T) {
	l := NewAtomicTaskList()
	const producers, perProducer = 8, 200
	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				l.Push(&Task{id: uint64(i)})
			}
		}()
	}
	wg.Wait()

	want := producers * perProducer
	if l.Len() != want {
		t.Fatalf("Len = %d, want %d", l.Len(), want)
	}

	var mu sync.Mutex
	drained := 0
	var consumers sync.WaitGroup
	consumers.Add(producers)
	for c := 0; c < producers; c++ {
		go func() {
			defer consumers.Done()
			for {
				_, ok := l.Pop()
				if !ok {
					return
				}
				mu.Lock()
				drained++
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()
	if drained != want {
		t.Fatalf("drained %d, want %d", drained, want)
	}
}

func TestSharedExecutorTaskListOwnerID(t *testing.T) {
	s := newSharedExecutorTaskList(42)
	if s.OwnerID != 42 {
		t.Fatalf("OwnerID = %d, want 42", s.OwnerID)
	}
	s.Push(&Task{id: 1})
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}
