package scan

import "sync"

// dirQueue is the shared work queue drained by the directory workers. It is
// a stack: LIFO order gives the walk a depth-first bias, which reaches leaf
// directories, and therefore usable size signal, sooner than breadth-first.
type dirQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	stack    []string
	inFlight int
}

func newDirQueue(root string) *dirQueue {
	q := &dirQueue{stack: []string{root}}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push adds a discovered subdirectory and wakes idle workers.
func (q *dirQueue) push(path string) {
	q.mu.Lock()
	q.stack = append(q.stack, path)
	q.cond.Broadcast()
	q.mu.Unlock()
}

// pop hands the next directory to a worker, or reports that the worker
// should exit. It blocks while the queue is empty but other workers are
// still busy, since any of them may push more work.
//
// checkStop is evaluated once per dequeue attempt; when it fires, the whole
// backlog is dropped so a runaway tree cannot hold memory, and in-flight
// workers are left to finish their current directory.
func (q *dirQueue) pop(checkStop func() bool) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.stack) == 0 && q.inFlight > 0 {
		q.cond.Wait()
	}
	if len(q.stack) == 0 {
		// Drained: no work left and nobody left to produce more.
		return "", false
	}
	if checkStop() {
		q.stack = nil
		q.cond.Broadcast()
		return "", false
	}

	path := q.stack[len(q.stack)-1]
	q.stack = q.stack[:len(q.stack)-1]
	q.inFlight++
	return path, true
}

// done marks one directory finished and wakes workers waiting for either
// new work or quiescence.
func (q *dirQueue) done() {
	q.mu.Lock()
	q.inFlight--
	q.cond.Broadcast()
	q.mu.Unlock()
}
