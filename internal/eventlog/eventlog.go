// Package eventlog records combat events as newline-delimited JSON through a
// bounded buffer, with global and per-combatant rate limits.
package eventlog

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"kaiju-arena/internal/combat"
)

const (
	BufferSize          = 1024                   // circular buffer size
	MaxEventsPerSec     = 1000                   // default global rate limit
	MaxPerCombatant     = 100                    // per-combatant rate limit per second
	BatchFlushSize      = 64                     // events per batch write
	BatchFlushInterval  = 100 * time.Millisecond // how often to flush
	LimiterCleanupEvery = 5 * time.Minute
)

// Record is one line of the log.
type Record struct {
	Sequence uint64    `json:"seq"`
	Time     time.Time `json:"time"`
	combat.Event
}

// Log is a bounded, rate-limited event recorder. Record is safe to call from
// the scheduler while the writer goroutine drains the buffer.
type Log struct {
	mu        sync.Mutex
	buffer    [BufferSize]Record
	writeHead uint64
	readHead  uint64

	globalLimiter *rate.Limiter
	limiters      sync.Map // combatant id -> *limiterEntry
	perCombatant  rate.Limit

	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	out   io.Writer
	file  *os.File
	outMu sync.Mutex

	log zerolog.Logger
	now func() time.Time

	dropped atomic.Uint64
	total   atomic.Uint64
	written atomic.Uint64
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastUsed atomic.Int64
}

// New creates a log allowing eventsPerSec events globally (MaxEventsPerSec
// when not positive).
func New(eventsPerSec int, logger zerolog.Logger) *Log {
	if eventsPerSec <= 0 {
		eventsPerSec = MaxEventsPerSec
	}
	burst := max(1, eventsPerSec/10)
	return &Log{
		globalLimiter: rate.NewLimiter(rate.Limit(eventsPerSec), burst),
		perCombatant:  rate.Limit(MaxPerCombatant),
		stopChan:      make(chan struct{}),
		log:           logger.With().Str("component", "eventlog").Logger(),
		now:           time.Now,
	}
}

// Open starts writing to the file at path, appending.
func (l *Log) Open(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	l.file = f
	l.Start(f)
	return nil
}

// Start begins the writer goroutines. A nil w keeps events buffered only.
func (l *Log) Start(w io.Writer) {
	if l.running.Swap(true) {
		return
	}
	l.out = w
	l.writerWg.Add(2)
	go l.writerLoop()
	go l.cleanupLoop()
}

// Stop flushes what is buffered and closes any file opened by Open.
func (l *Log) Stop() {
	l.stopOnce.Do(func() {
		l.running.Store(false)
		close(l.stopChan)
		l.writerWg.Wait()

		l.outMu.Lock()
		if l.file != nil {
			l.file.Close()
		}
		l.outMu.Unlock()
	})
}

// Record buffers e. It returns false when the log is stopped or a rate limit
// rejected the event. A full buffer drops the oldest event instead.
func (l *Log) Record(e combat.Event) bool {
	if !l.running.Load() {
		return false
	}
	if !l.globalLimiter.Allow() {
		l.dropped.Add(1)
		return false
	}
	if e.CombatantID != "" && !l.limiterFor(e.CombatantID).Allow() {
		l.dropped.Add(1)
		return false
	}

	l.mu.Lock()
	if l.writeHead-l.readHead >= BufferSize {
		l.readHead++
		l.dropped.Add(1)
	}
	l.writeHead++
	l.buffer[l.writeHead%BufferSize] = Record{Sequence: l.writeHead, Time: l.now(), Event: e}
	l.mu.Unlock()

	l.total.Add(1)
	return true
}

// Sink adapts the log to a combat event callback.
func (l *Log) Sink() combat.EventFunc {
	return func(e combat.Event) { l.Record(e) }
}

func (l *Log) limiterFor(id string) *rate.Limiter {
	now := l.now().UnixNano()
	if v, ok := l.limiters.Load(id); ok {
		entry := v.(*limiterEntry)
		entry.lastUsed.Store(now)
		return entry.limiter
	}
	entry := &limiterEntry{limiter: rate.NewLimiter(l.perCombatant, MaxPerCombatant/10)}
	entry.lastUsed.Store(now)
	actual, _ := l.limiters.LoadOrStore(id, entry)
	return actual.(*limiterEntry).limiter
}

func (l *Log) writerLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, BatchFlushSize)
	for {
		select {
		case <-l.stopChan:
			for {
				batch = l.collect(batch[:0])
				if len(batch) == 0 {
					return
				}
				l.flush(batch)
			}
		case <-ticker.C:
			batch = l.collect(batch[:0])
			if len(batch) > 0 {
				l.flush(batch)
			}
		}
	}
}

// cleanupLoop forgets limiters of combatants that stopped producing events.
func (l *Log) cleanupLoop() {
	defer l.writerWg.Done()

	ticker := time.NewTicker(LimiterCleanupEvery)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanupLimiters(l.now().Add(-LimiterCleanupEvery))
		}
	}
}

func (l *Log) cleanupLimiters(cutoff time.Time) {
	l.limiters.Range(func(key, value any) bool {
		if value.(*limiterEntry).lastUsed.Load() < cutoff.UnixNano() {
			l.limiters.Delete(key)
		}
		return true
	})
}

// collect moves up to BatchFlushSize buffered records into batch.
func (l *Log) collect(batch []Record) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.readHead < l.writeHead && len(batch) < BatchFlushSize {
		l.readHead++
		batch = append(batch, l.buffer[l.readHead%BufferSize])
	}
	return batch
}

// Recent returns up to n of the newest records, oldest first, including
// records already written out.
func (l *Log) Recent(n int) []Record {
	if n <= 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	avail := min(uint64(n), l.writeHead, BufferSize)
	out := make([]Record, 0, avail)
	for seq := l.writeHead - avail + 1; seq <= l.writeHead; seq++ {
		out = append(out, l.buffer[seq%BufferSize])
	}
	return out
}

// flush writes the batch as newline-delimited JSON.
func (l *Log) flush(batch []Record) {
	l.outMu.Lock()
	defer l.outMu.Unlock()
	if l.out == nil {
		return
	}
	enc := json.NewEncoder(l.out)
	for _, r := range batch {
		if err := enc.Encode(r); err != nil {
			l.log.Warn().Err(err).Uint64("seq", r.Sequence).Msg("event write failed")
			continue
		}
		l.written.Add(1)
	}
}

// Stats reports counters for monitoring.
type Stats struct {
	Total   uint64 `json:"total"`
	Dropped uint64 `json:"dropped"`
	Written uint64 `json:"written"`
	Pending uint64 `json:"pending"`
	Running bool   `json:"running"`
}

// Stats returns the current counters.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	pending := l.writeHead - l.readHead
	l.mu.Unlock()
	return Stats{
		Total:   l.total.Load(),
		Dropped: l.dropped.Load(),
		Written: l.written.Load(),
		Pending: pending,
		Running: l.running.Load(),
	}
}
