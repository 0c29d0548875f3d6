package artifact

import (
	"fmt"
	"log"
	"sync"
	"time"

	"spacedetect/internal/detection"
)

// DefaultQueueSize bounds the number of artifacts waiting to be written
const DefaultQueueSize = 16

// Artifact is an annotated image waiting to be persisted
type Artifact struct {
	ID         string
	Data       []byte
	Filename   string
	FileSize   int64
	Detections []detection.Detection
	Mode       detection.Mode
	CreatedAt  time.Time
}

// Persister writes artifacts on a background worker so the request path
// never waits for disk. Failures are logged and dropped.
type Persister struct {
	store  *Store
	ledger *Ledger
	logger *log.Logger

	jobs   chan *Artifact
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool

	// onSaved is called after each artifact is handled, with the write error
	onSaved func(*Artifact, error)
}

// NewPersister starts the worker. ledger may be nil.
func NewPersister(store *Store, ledger *Ledger, queueSize int, logger *log.Logger) *Persister {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	p := &Persister{
		store:  store,
		ledger: ledger,
		logger: logger,
		jobs:   make(chan *Artifact, queueSize),
	}

	p.wg.Add(1)
	go p.run()
	return p
}

// Submit queues an artifact without blocking. A full queue or a closed
// persister drops it and returns an ErrPersistence.
func (p *Persister) Submit(a *Artifact) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return fmt.Errorf("%w: persister closed, dropping %s", detection.ErrPersistence, a.ID)
	}

	select {
	case p.jobs <- a:
		return nil
	default:
		return fmt.Errorf("%w: queue full, dropping %s", detection.ErrPersistence, a.ID)
	}
}

// Close stops accepting artifacts and waits for queued ones to be written
func (p *Persister) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Persister) run() {
	defer p.wg.Done()

	for a := range p.jobs {
		err := p.persist(a)
		if err != nil {
			p.logger.Printf("[Persister] %v", err)
		}
		if p.onSaved != nil {
			p.onSaved(a, err)
		}
	}
}

func (p *Persister) persist(a *Artifact) error {
	path, err := p.store.Save(a.Data, a.ID)
	if err != nil {
		return err
	}
	p.logger.Printf("[Persister] Saved processed image to: %s", path)

	if p.ledger == nil {
		return nil
	}

	classIDs := make([]int, 0, len(a.Detections))
	for _, d := range a.Detections {
		classIDs = append(classIDs, d.ClassID)
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	record := &Record{
		ID:         a.ID,
		Path:       path,
		Filename:   a.Filename,
		FileSize:   a.FileSize,
		Detections: len(a.Detections),
		ClassIDs:   classIDs,
		Mode:       string(a.Mode),
		CreatedAt:  createdAt,
	}
	if err := p.ledger.Append(record); err != nil {
		return fmt.Errorf("%w: %w", detection.ErrPersistence, err)
	}
	return nil
}
