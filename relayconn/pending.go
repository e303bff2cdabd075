package relayconn

import "sync"

// OkOutcome is the terminal result of a publish's pending OK correlation.
type OkOutcome struct {
	Success bool
	Message string
	Reason  OkReason
}

// OkReason classifies how a pending OK was completed.
type OkReason int

const (
	OkReceived OkReason = iota
	OkTimeout
	OkDisconnected
	OkCancelled
)

// pendingOK is a "CompletableOnce<OkResult>" (spec §4.3's term) for one
// outgoing EVENT: exactly one of the completion paths (OK received, deadline,
// socket close, cancellation) fires, and only the first one wins.
type pendingOK struct {
	once   sync.Once
	result chan OkOutcome
}

func newPendingOK() *pendingOK {
	return &pendingOK{result: make(chan OkOutcome, 1)}
}

func (p *pendingOK) complete(o OkOutcome) {
	p.once.Do(func() {
		p.result <- o
	})
}

func (p *pendingOK) wait() <-chan OkOutcome {
	return p.result
}
