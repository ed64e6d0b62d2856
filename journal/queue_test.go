package journal

import (
	"sync"
	"testing"
	"time"

	"github.com/sprocd/sprocd/internal/tassert"
)

type fakeWriter struct {
	mu      sync.Mutex
	written [][]byte
}

func (w *fakeWriter) Write(p []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.written = append(w.written, append([]byte(nil), p...))
	return nil
}

func (w *fakeWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.written)
}

func TestQueueIsFull(t *testing.T) {
	q := NewQueue(&fakeWriter{}, 10, 2)
	tassert.Fatalf(t, !q.IsFull(), "expected empty queue not full")

	q.admit(Entry{Size: 11})
	tassert.Fatalf(t, q.IsFull(), "expected size cap to trip IsFull")
}

func TestWaitQueueWakesWaitersFIFO(t *testing.T) {
	w := &fakeWriter{}
	q := NewQueue(w, 1, 100) // size budget of 1 byte forces serialization

	var order []int
	var mu sync.Mutex
	var wg sync.WaitGroup

	// occupy the single byte of budget so every producer below must wait.
	q.mu.Lock()
	q.queueSize = 1
	q.mu.Unlock()

	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for q.IsFull() {
				q.WaitQueue()
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			q.admit(Entry{Size: 0})
			q.writer.Write(nil)
			q.complete(Entry{Size: 0})
		}(i)
		time.Sleep(5 * time.Millisecond) // keep FIFO submission order deterministic
	}

	// release the initial artificial budget hold.
	q.mu.Lock()
	q.queueSize = 0
	notFull := !q.isFullLocked()
	q.mu.Unlock()
	if notFull {
		q.wakeup(false)
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for FIFO waiters to drain")
	}

	tassert.Fatalf(t, len(order) == 3, "expected all 3 waiters to run, got %d", len(order))
	tassert.Fatalf(t, order[0] == 0 && order[1] == 1 && order[2] == 2,
		"expected FIFO wake order [0 1 2], got %v", order)
}

func TestAdmitAsyncWritesThrough(t *testing.T) {
	w := &fakeWriter{}
	q := NewQueue(w, 1<<20, 100)
	q.AdmitAsync(Entry{Size: 10, Payload: []byte("hello")})

	deadline := time.Now().Add(time.Second)
	for w.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	tassert.Fatalf(t, w.count() == 1, "expected the background write to land")
}
