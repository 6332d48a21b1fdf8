package corert

// SharedExecutorTaskList is OwnerID's cross-thread mailbox of Global tasks:
// OwnerID sheds its excess Global tasks into it, Global tasks woken from
// other goroutines land in it, OwnerID pulls from it at the end of a
// round, and other executors steal from it during their maintenance pass.
// Each Executor publishes exactly one of these to the global registry
// (see registry.go).
type SharedExecutorTaskList struct {
	OwnerID uint64
	*AtomicTaskList
}

func newSharedExecutorTaskList(ownerID uint64) *SharedExecutorTaskList {
	return &SharedExecutorTaskList{
		OwnerID:        ownerID,
		AtomicTaskList: NewAtomicTaskList(),
	}
}
