package corert

import "testing"

func TestReadyQueueFIFO(t *testing.T) {
	q := newReadyQueue()
	a := &Task{id: 1}
	b := &Task{id: 2}
	c := &Task{id: 3}

	q.pushBack(a)
	q.pushBack(b)
	q.pushBack(c)
	if q.len() != 3 {
		t.Fatalf("len = %d, want 3", q.len())
	}

	for i, want := range []*Task{a, b, c} {
		got, ok := q.popFront()
		if !ok || got != want {
			t.Fatalf("popFront[%d] = %v, %v; want %v, true", i, got, ok, want)
		}
	}
	if q.len() != 0 {
		t.Fatalf("len = %d, want 0", q.len())
	}
}

func TestReadyQueuePushFrontReprioritises(t *testing.T) {
	q := newReadyQueue()
	a := &Task{id: 1}
	b := &Task{id: 2}
	q.pushBack(a)
	q.pushFront(b)

	got, ok := q.popFront()
	if !ok || got != b {
		t.Fatalf("popFront = %v, %v; want %v, true", got, ok, b)
	}
	got, ok = q.popFront()
	if !ok || got != a {
		t.Fatalf("popFront = %v, %v; want %v, true", got, ok, a)
	}
}

func TestReadyQueuePopBack(t *testing.T) {
	q := newReadyQueue()
	a := &Task{id: 1}
	b := &Task{id: 2}
	q.pushBack(a)
	q.pushBack(b)

	got, ok := q.popBack()
	if !ok || got != b {
		t.Fatalf("popBack = %v, %v; want %v, true", got, ok, b)
	}
	if q.len() != 1 {
		t.Fatalf("len = %d, want 1", q.len())
	}
}

func TestReadyQueueDrainFront(t *testing.T) {
	q := newReadyQueue()
	tasks := make([]*Task, 5)
	for i := range tasks {
		tasks[i] = &Task{id: uint64(i)}
		q.pushBack(tasks[i])
	}
	dst := q.drainFront(nil, 3)
	if len(dst) != 3 {
		t.Fatalf("drained %d, want 3", len(dst))
	}
	for i, task := range dst {
		if task != tasks[i] {
			t.Fatalf("drained[%d] = %v, want %v", i, task, tasks[i])
		}
	}
	if q.len() != 2 {
		t.Fatalf("remaining len = %d, want 2", q.len())
	}
}

func TestReadyQueueShrinkIfSparse(t *testing.T) {
	q := newReadyQueue()
	for i := 0; i < 600; i++ {
		q.pushBack(&Task{id: uint64(i)})
	}
	for i := 0; i < 550; i++ {
		q.popFront()
	}
	before := cap(q.buf)
	q.shrinkIfSparse()
	if cap(q.buf) >= before {
		t.Fatalf("shrinkIfSparse did not shrink: before=%d after=%d", before, cap(q.buf))
	}
	if q.len() != 50 {
		t.Fatalf("len after shrink = %d, want 50", q.len())
	}
}
