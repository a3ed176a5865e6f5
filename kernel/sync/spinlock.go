// Package sync provides the spinlock primitives used to guard shared kernel
// state. Bring-up runs single-threaded with interrupts masked; the locks
// exist so the state they guard stays correct once more CPUs come online.
package sync

import "sync/atomic"

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for !l.TryToAcquire() {
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}

// RWSpinlock implements a reader/writer spinlock. Multiple readers may hold
// the lock concurrently; writers get exclusive access. There is no queueing:
// a writer busy-waits until the reader count drains.
type RWSpinlock struct {
	// state is the number of active readers, or -1 while a writer holds
	// the lock.
	state int32
}

// AcquireRead blocks until the lock can be acquired for reading.
func (l *RWSpinlock) AcquireRead() {
	for {
		cur := atomic.LoadInt32(&l.state)
		if cur >= 0 && atomic.CompareAndSwapInt32(&l.state, cur, cur+1) {
			return
		}
	}
}

// ReleaseRead drops a read hold on the lock.
func (l *RWSpinlock) ReleaseRead() {
	if atomic.AddInt32(&l.state, -1) < 0 {
		panic("sync: read-unlock of unlocked RWSpinlock")
	}
}

// AcquireWrite blocks until the lock can be acquired exclusively.
func (l *RWSpinlock) AcquireWrite() {
	for !atomic.CompareAndSwapInt32(&l.state, 0, -1) {
	}
}

// ReleaseWrite drops an exclusive hold on the lock.
func (l *RWSpinlock) ReleaseWrite() {
	if !atomic.CompareAndSwapInt32(&l.state, -1, 0) {
		panic("sync: write-unlock of unlocked RWSpinlock")
	}
}
