package relayconn

import (
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a read-only snapshot of a relay connection's counters, per
// spec §4.3's statistics list.
type Stats struct {
	MessagesIn         int64
	MessagesOut        int64
	BytesIn            int64
	BytesOut           int64
	EventsIn           int64
	EoseCount          int64
	ActiveSubs         int
	UniqueEvents       int64
	DuplicateEvents    int64
	ValidatedEvents    int64
	NonValidatedEvents int64
	DroppedEvents      int64
	SamplingRate       float64
	LastConnectedAt    time.Time
	ConnectionAttempts int64
}

// statCounters holds the live, mutable counters backing a Stats snapshot.
// All fields except activeSubs/lastConnectedAt are updated with atomics so
// the hot read/verify path never blocks on a lock for bookkeeping.
type statCounters struct {
	messagesIn, messagesOut             int64
	bytesIn, bytesOut                   int64
	eventsIn, eoseCount                 int64
	uniqueEvents, duplicateEvents       int64
	validatedEvents, nonValidatedEvents int64
	droppedEvents                       int64
	connectionAttempts                  int64

	mu              sync.RWMutex
	activeSubs      int
	lastConnectedAt time.Time
}

func (c *statCounters) incMessagesIn()          { atomic.AddInt64(&c.messagesIn, 1) }
func (c *statCounters) incMessagesOut()         { atomic.AddInt64(&c.messagesOut, 1) }
func (c *statCounters) addBytesIn(n int64)      { atomic.AddInt64(&c.bytesIn, n) }
func (c *statCounters) addBytesOut(n int64)     { atomic.AddInt64(&c.bytesOut, n) }
func (c *statCounters) incEventsIn()            { atomic.AddInt64(&c.eventsIn, 1) }
func (c *statCounters) incEoseCount()           { atomic.AddInt64(&c.eoseCount, 1) }
func (c *statCounters) incUniqueEvents()        { atomic.AddInt64(&c.uniqueEvents, 1) }
func (c *statCounters) incDuplicateEvents()     { atomic.AddInt64(&c.duplicateEvents, 1) }
func (c *statCounters) incValidatedEvents()     { atomic.AddInt64(&c.validatedEvents, 1) }
func (c *statCounters) incNonValidatedEvents()  { atomic.AddInt64(&c.nonValidatedEvents, 1) }
func (c *statCounters) incConnectionAttempts()  { atomic.AddInt64(&c.connectionAttempts, 1) }

func (c *statCounters) droppedEventsInc() { atomic.AddInt64(&c.droppedEvents, 1) }

func (c *statCounters) snapshot(rate float64) Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		MessagesIn:         atomic.LoadInt64(&c.messagesIn),
		MessagesOut:        atomic.LoadInt64(&c.messagesOut),
		BytesIn:            atomic.LoadInt64(&c.bytesIn),
		BytesOut:           atomic.LoadInt64(&c.bytesOut),
		EventsIn:           atomic.LoadInt64(&c.eventsIn),
		EoseCount:          atomic.LoadInt64(&c.eoseCount),
		ActiveSubs:         c.activeSubs,
		UniqueEvents:       atomic.LoadInt64(&c.uniqueEvents),
		DuplicateEvents:    atomic.LoadInt64(&c.duplicateEvents),
		ValidatedEvents:    atomic.LoadInt64(&c.validatedEvents),
		NonValidatedEvents: atomic.LoadInt64(&c.nonValidatedEvents),
		DroppedEvents:      atomic.LoadInt64(&c.droppedEvents),
		SamplingRate:       rate,
		LastConnectedAt:    c.lastConnectedAt,
		ConnectionAttempts: atomic.LoadInt64(&c.connectionAttempts),
	}
}

func (c *statCounters) setActiveSubs(n int) {
	c.mu.Lock()
	c.activeSubs = n
	c.mu.Unlock()
}

func (c *statCounters) setLastConnected(t time.Time) {
	c.mu.Lock()
	c.lastConnectedAt = t
	c.mu.Unlock()
}
