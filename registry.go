package corert

import "sync"

// peerHandle is one executor's entry in the global registry: its shared
// work-sharing mailbox, and a stop flag any executor can set to ask it to
// shut down.
type peerHandle struct {
	id     uint64
	shared *SharedExecutorTaskList
	stop   bool
}

// registry tracks every live Executor for cross-executor work sharing and
// coordinated shutdown.
//
// Grounded on eventloop's registry.go, but deliberately simplified: that
// registry tracks promises, which are garbage collected independently of
// any explicit close, so it uses weak.Pointer plus ring-buffer scavenging
// to reclaim entries lazily as the GC catches up. Executors have an
// explicit lifecycle instead (NewExecutor/Run/shutdown) — there is always
// a concrete unregister call — so the weak-pointer/scavenge machinery has
// nothing to do here; this registry is a plain mutex-guarded map plus a
// revision counter so peers can cheaply detect "nothing changed" and skip
// re-copying the peer list every maintenance pass.
type registry struct {
	mu       sync.RWMutex
	peers    map[uint64]*peerHandle
	revision uint64
}

var globalRegistry = &registry{peers: make(map[uint64]*peerHandle)}

func (r *registry) register(id uint64, shared *SharedExecutorTaskList) *peerHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	h := &peerHandle{id: id, shared: shared}
	r.peers[id] = h
	r.revision++
	return h
}

func (r *registry) unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
	r.revision++
}

func (r *registry) requestStop(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.peers[id]; ok {
		h.stop = true
	}
}

func (r *registry) requestStopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.peers {
		h.stop = true
	}
}

// SubscribedState is one executor's cached view of the registry, refreshed
// only when the registry's revision has advanced since the last snapshot.
type SubscribedState struct {
	Peers      []*SharedExecutorTaskList
	Stop       bool
	lastSeenID uint64
	revision   uint64
}

// snapshot refreshes st in place if the registry has changed since st was
// last populated, and always refreshes st.Stop (which is specific to id
// and cheap to recheck regardless of the global revision).
func (r *registry) snapshot(id uint64, st *SubscribedState) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h, ok := r.peers[id]; ok {
		st.Stop = h.stop
	}
	if st.revision == r.revision {
		return
	}
	st.Peers = st.Peers[:0]
	for peerID, h := range r.peers {
		if peerID == id {
			continue
		}
		st.Peers = append(st.Peers, h.shared)
	}
	st.revision = r.revision
}

// StopExecutor asks the executor identified by id to stop at its next
// maintenance pass. A no-op if id is not currently registered.
func StopExecutor(id uint64) { globalRegistry.requestStop(id) }

// StopAllExecutors asks every currently registered executor to stop.
func StopAllExecutors() { globalRegistry.requestStopAll() }
