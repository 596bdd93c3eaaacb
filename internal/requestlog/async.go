package requestlog

import (
	"sync"
	"time"

	"github.com/tuncerburak97/vitrin/internal/model"
)

// QueueObserver reports the async sink backlog.
type QueueObserver interface {
	ObserveQueueSize(queue string, size float64)
}

// AsyncSink hands entries to a pool of workers so the request path never
// waits on the underlying writer. When the queue is full, or after Close,
// entries are written synchronously instead of being dropped.
type AsyncSink struct {
	next    Sink
	queue   chan *model.LogEntry
	workers int
	metrics QueueObserver

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	done   chan struct{}
}

// NewAsyncSink starts workerCount workers draining a queue of bufferSize
// entries into next. metrics may be nil.
func NewAsyncSink(next Sink, workerCount, bufferSize int, metrics QueueObserver) *AsyncSink {
	if workerCount < 1 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	s := &AsyncSink{
		next:    next,
		queue:   make(chan *model.LogEntry, bufferSize),
		workers: workerCount,
		metrics: metrics,
		done:    make(chan struct{}),
	}

	s.startWorkers()
	return s
}

func (s *AsyncSink) startWorkers() {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.process()
	}

	if s.metrics != nil {
		go s.monitorQueue()
	}
}

func (s *AsyncSink) process() {
	defer s.wg.Done()
	for entry := range s.queue {
		s.next.Emit(entry)
	}
}

// Emit queues entry, or writes it directly when the queue is full or closed.
func (s *AsyncSink) Emit(entry *model.LogEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.next.Emit(entry)
		return
	}

	select {
	case s.queue <- entry:
	default:
		s.next.Emit(entry)
	}
}

// Close stops accepting queued entries and waits until the backlog is written.
func (s *AsyncSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *AsyncSink) monitorQueue() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.metrics.ObserveQueueSize("request_log", float64(len(s.queue)))
		}
	}
}
