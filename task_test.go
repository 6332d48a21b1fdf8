package corert

import "testing"

type fakeFuture struct {
	polls    int
	readyAt  int
	dropped  bool
	lastCall Call
}

func (f *fakeFuture) poll(cx *Context) bool {
	f.polls++
	if f.lastCall.Kind != CallNone {
		cx.SetCall(f.lastCall)
	}
	return f.polls >= f.readyAt
}

func (f *fakeFuture) drop() { f.dropped = true }

func TestTaskPollClearsStaleCall(t *testing.T) {
	ff := &fakeFuture{readyAt: 2}
	task := newTask(nil, Local, "t", ff)
	task.call = Call{Kind: CallYieldCurrentGlobalTask}

	cx := &Context{task: task}
	complete := task.poll(cx)
	if complete {
		t.Fatal("task should not be complete after first poll")
	}
	// poll must reset the stale Call before delegating, and the fake future
	// doesn't set a new one, so it should read back as CallNone.
	if task.call.Kind != CallNone {
		t.Fatalf("call.Kind = %v, want CallNone", task.call.Kind)
	}
}

func TestTaskTakeCallResetsSlot(t *testing.T) {
	ff := &fakeFuture{readyAt: 1}
	task := newTask(nil, Local, "t", ff)
	task.call = Call{Kind: CallYieldCurrentGlobalTask}

	c := task.takeCall()
	if c.Kind != CallYieldCurrentGlobalTask {
		t.Fatalf("takeCall = %v, want CallYieldCurrentGlobalTask", c.Kind)
	}
	if task.call.Kind != CallNone {
		t.Fatalf("call after takeCall = %v, want CallNone", task.call.Kind)
	}
}

func TestTaskPoolReusesFreedHandles(t *testing.T) {
	p := newTaskPool()
	ff1 := &fakeFuture{readyAt: 1}
	t1 := p.get(nil, Local, "first", ff1)
	id1 := t1.ID()
	p.put(t1)

	if !ff1.dropped {
		t.Fatal("put should call drop on the freed future")
	}

	ff2 := &fakeFuture{readyAt: 1}
	t2 := p.get(nil, Global, "second", ff2)
	if t2 != t1 {
		t.Fatal("get should reuse the freed Task handle")
	}
	if t2.ID() == id1 {
		t.Fatal("reused handle must get a fresh ID")
	}
	if t2.Name() != "second" || t2.Locality() != Global {
		t.Fatalf("reused handle fields not reset: name=%q locality=%v", t2.Name(), t2.Locality())
	}
}

func TestLocalityString(t *testing.T) {
	if Local.String() != "local" {
		t.Fatalf("Local.String() = %q, want local", Local.String())
	}
	if Global.String() != "global" {
		t.Fatalf("Global.String() = %q, want global", Global.String())
	}
}
