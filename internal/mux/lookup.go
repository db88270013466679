package mux

import (
	"time"

	"github.com/rickgao/submux/internal/model"
)

// lookupKind names the four serialized lookup pipelines.
type lookupKind string

const (
	lookupSecurities lookupKind = "securities"
	lookupPortfolios lookupKind = "portfolios"
	lookupBoards     lookupKind = "boards"
	lookupTimeFrames lookupKind = "time_frames"
)

// lookupState serializes one lookup kind: FIFO queue with the head in
// flight downstream, plus the timeout wheel for unacknowledged requests.
type lookupState struct {
	kind       lookupKind
	resultType model.MessageType
	queue      []*model.Message
	timeouts   *timeoutWheel
}

func newLookupState(kind lookupKind, resultType model.MessageType, timeout time.Duration) *lookupState {
	return &lookupState{
		kind:       kind,
		resultType: resultType,
		timeouts:   newTimeoutWheel(timeout),
	}
}

func (ls *lookupState) reset() {
	ls.queue = nil
	ls.timeouts.reset()
}

// lookupKindForRequest maps an inbound lookup type to its pipeline.
func lookupKindForRequest(t model.MessageType) (lookupKind, bool) {
	switch t {
	case model.TypeSecurityLookup:
		return lookupSecurities, true
	case model.TypePortfolioLookup:
		return lookupPortfolios, true
	case model.TypeBoardLookup:
		return lookupBoards, true
	case model.TypeTimeFrameLookup:
		return lookupTimeFrames, true
	}
	return "", false
}

// lookupKindForResult maps an outbound result type to its pipeline.
func lookupKindForResult(t model.MessageType) (lookupKind, bool) {
	switch t {
	case model.TypeSecurityLookupResult:
		return lookupSecurities, true
	case model.TypePortfolioLookupResult:
		return lookupPortfolios, true
	case model.TypeBoardLookupResult:
		return lookupBoards, true
	case model.TypeTimeFrameLookupResult:
		return lookupTimeFrames, true
	}
	return "", false
}

// enqueueLookupLocked applies the single-in-flight policy: duplicates
// are swallowed, a non-empty queue suppresses forwarding, and a timeout
// is armed when the venue cannot produce the result type.
func (a *adapter) enqueueLookupLocked(em *emission, kind lookupKind, msg *model.Message) {
	ls := a.lookups[kind]

	for _, q := range ls.queue {
		if q.EqualRequest(msg) {
			return
		}
	}

	ls.queue = append(ls.queue, msg.Clone())
	a.stats.LookupsQueued++

	if !a.down.SupportsOut(ls.resultType) {
		ls.timeouts.start(msg.TxID)
	}

	if len(ls.queue) == 1 {
		em.down = append(em.down, msg)
	}
}

// drainLookupLocked advances the pipeline after a result (real or
// synthetic): drop the finished head and schedule the next entry for
// re-entry through the inbound port.
func (a *adapter) drainLookupLocked(em *emission, kind lookupKind, msg *model.Message) {
	ls := a.lookups[kind]

	ls.timeouts.remove(msg.OriginalTxID)

	if len(ls.queue) == 0 {
		return
	}
	ls.queue = ls.queue[1:]

	if len(ls.queue) == 0 {
		return
	}

	next := ls.queue[0]
	next.IsBack = true
	next.Adapter = a
	a.passThrough[next.TxID] = struct{}{}
	em.loop = append(em.loop, next)
}
