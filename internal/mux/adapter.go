package mux

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rickgao/submux/internal/model"
)

// Adapter is the bidirectional mid-pipeline stage. SendIn receives
// control traffic from clients; HandleOut receives data and result
// messages from the venue transport.
type Adapter interface {
	// SendIn dispatches an inbound control message.
	SendIn(*model.Message) error

	// HandleOut dispatches an outbound message, settling acks, draining
	// lookup queues, firing timeouts, and tagging data messages.
	HandleOut(*model.Message) error

	// Stats returns current adapter statistics.
	Stats() Stats
}

// emission collects the messages a dispatch decided to send. Ports are
// only invoked after the adapter mutex is released.
type emission struct {
	down   []*model.Message // forward to the venue transport
	up     []*model.Message // raise to the client layer
	loop   []*model.Message // re-enter through the inbound port
	replay []*model.Message // captured subscribes awaiting loop emission
}

// adapter is the internal implementation.
type adapter struct {
	opts   Options
	down   Downstream
	up     UpstreamSink
	logger *slog.Logger

	mu sync.Mutex

	mdByKey        map[marketDataKey]*subscription
	newsBoardByKey map[scopeKey]*subscription
	pfByName       map[portfolioKey]*subscription

	mdByTx          map[model.TxID]*subscription
	orderStatusByTx map[model.TxID]*subscription
	pfLookupByTx    map[model.TxID]*subscription
	pfLookupOrder   []model.TxID // insertion order of live portfolio lookups

	historyOnly map[model.TxID]struct{}
	passThrough map[model.TxID]struct{}

	pendingReplay []*model.Message
	prevLocalTime time.Time

	lookups map[lookupKind]*lookupState

	stats Stats
}

// NewAdapter creates a subscription multiplexing adapter over the given
// ports. Panics on nil ports; rejects a negative lookup timeout.
func NewAdapter(opts Options, down Downstream, up UpstreamSink, logger *slog.Logger) (Adapter, error) {
	if down == nil {
		panic("mux: nil downstream")
	}
	if up == nil {
		panic("mux: nil upstream sink")
	}
	if opts.LookupTimeout < 0 {
		return nil, ErrInvalidInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &adapter{
		opts:            opts,
		down:            down,
		up:              up,
		logger:          logger,
		mdByKey:         make(map[marketDataKey]*subscription),
		newsBoardByKey:  make(map[scopeKey]*subscription),
		pfByName:        make(map[portfolioKey]*subscription),
		mdByTx:          make(map[model.TxID]*subscription),
		orderStatusByTx: make(map[model.TxID]*subscription),
		pfLookupByTx:    make(map[model.TxID]*subscription),
		historyOnly:     make(map[model.TxID]struct{}),
		passThrough:     make(map[model.TxID]struct{}),
	}
	a.lookups = map[lookupKind]*lookupState{
		lookupSecurities: newLookupState(lookupSecurities, model.TypeSecurityLookupResult, opts.LookupTimeout),
		lookupPortfolios: newLookupState(lookupPortfolios, model.TypePortfolioLookupResult, opts.LookupTimeout),
		lookupBoards:     newLookupState(lookupBoards, model.TypeBoardLookupResult, opts.LookupTimeout),
		lookupTimeFrames: newLookupState(lookupTimeFrames, model.TypeTimeFrameLookupResult, opts.LookupTimeout),
	}
	return a, nil
}

// SendIn dispatches an inbound control message.
func (a *adapter) SendIn(msg *model.Message) error {
	if msg == nil {
		panic("mux: nil message")
	}

	em := &emission{}

	a.mu.Lock()
	a.stats.MessagesIn++

	switch msg.Type {
	case model.TypeReset:
		a.resetLocked(em, msg)

	case model.TypeDisconnect:
		a.disconnectLocked(em, msg)

	case model.TypeMarketData:
		a.marketDataInLocked(em, msg)

	case model.TypePortfolio:
		a.portfolioInLocked(em, msg)

	case model.TypeOrderStatus:
		a.orderStatusInLocked(em, msg)

	case model.TypePortfolioLookup:
		a.portfolioLookupInLocked(em, msg)

	case model.TypeSecurityLookup, model.TypeBoardLookup, model.TypeTimeFrameLookup:
		if a.consumePassThroughLocked(msg.TxID) {
			em.down = append(em.down, msg)
			break
		}
		kind, _ := lookupKindForRequest(msg.Type)
		a.enqueueLookupLocked(em, kind, msg)

	default:
		em.down = append(em.down, msg)
	}

	a.mu.Unlock()
	return a.emit(em)
}

// HandleOut dispatches an outbound message from the venue transport.
func (a *adapter) HandleOut(msg *model.Message) error {
	if msg == nil {
		panic("mux: nil message")
	}

	em := &emission{}
	suppress := false

	a.mu.Lock()
	a.stats.MessagesOut++

	switch msg.Type {
	case model.TypeConnect:
		if msg.Ok() {
			a.armReplayLocked(em)
		}

	case model.TypeReconnectingFinished:
		if a.opts.RestoreOnErrorReconnect {
			em.replay = a.snapshotLocked()
		}

	case model.TypeMarketData:
		suppress = a.processOutAckLocked(em, a.mdByTx, msg)

	case model.TypeSecurity:
		a.lookups[lookupSecurities].timeouts.update(msg.OriginalTxID)

	case model.TypeBoard:
		a.lookups[lookupBoards].timeouts.update(msg.OriginalTxID)
		a.tagMarketDataLocked(msg)

	case model.TypeSecurityLookupResult, model.TypeBoardLookupResult, model.TypeTimeFrameLookupResult:
		kind, _ := lookupKindForResult(msg.Type)
		a.drainLookupLocked(em, kind, msg)

	case model.TypePortfolioLookupResult:
		suppress = a.processOutAckLocked(em, a.pfLookupByTx, msg)
		a.drainLookupLocked(em, lookupPortfolios, msg)

	case model.TypePortfolio:
		a.lookups[lookupPortfolios].timeouts.update(msg.OriginalTxID)
		a.tagTransactionalLocked(msg)

	case model.TypePortfolioChange, model.TypePositionChange:
		a.tagTransactionalLocked(msg)

	case model.TypeCandleTimeFrame, model.TypeCandleTick, model.TypeCandleVolume, model.TypeCandleRange,
		model.TypeNews, model.TypeBoardState:
		a.tagMarketDataLocked(msg)

	case model.TypeExecution:
		switch msg.ExecType {
		case model.ExecTick, model.ExecOrderLog:
			a.tagMarketDataLocked(msg)
		case model.ExecTransaction:
			a.tagTransactionalLocked(msg)
		default:
			a.mu.Unlock()
			return &UnsupportedMessageError{Type: msg.Type, Exec: msg.ExecType}
		}
	}

	if !suppress {
		em.up = append(em.up, msg)
	}

	a.tickLocked(em, msg.LocalTime)
	a.prepareReplayLocked(em)
	a.mu.Unlock()
	return a.emit(em)
}

// Stats returns current adapter statistics.
func (a *adapter) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	s := a.stats
	s.MarketDataKeys = len(a.mdByKey)
	s.NewsBoardKeys = len(a.newsBoardByKey)
	s.Portfolios = len(a.pfByName)
	s.OrderStatuses = len(a.orderStatusByTx)
	s.PortfolioLookups = len(a.pfLookupByTx)
	s.PassThrough = len(a.passThrough)
	s.HistoryOnly = len(a.historyOnly)
	s.PendingReplay = len(a.pendingReplay)
	for _, ls := range a.lookups {
		s.QueuedLookups += len(ls.queue)
	}
	return s
}

// --- inbound subscription routing ---

func (a *adapter) marketDataInLocked(em *emission, msg *model.Message) {
	if a.consumePassThroughLocked(msg.TxID) {
		em.down = append(em.down, msg)
		return
	}

	if msg.DataType.SecurityRequired() {
		key := a.marketDataKeyFor(msg)
		if msg.IsSubscribe {
			subscribeIn(a, em, a.mdByKey, a.mdByTx, key, msg)
		} else {
			unsubscribeIn(a, em, a.mdByKey, a.mdByTx, key, msg)
		}
		return
	}

	key := scopeKeyFor(msg)
	if msg.IsSubscribe {
		subscribeIn(a, em, a.newsBoardByKey, a.mdByTx, key, msg)
	} else {
		unsubscribeIn(a, em, a.newsBoardByKey, a.mdByTx, key, msg)
	}
}

func (a *adapter) portfolioInLocked(em *emission, msg *model.Message) {
	if a.consumePassThroughLocked(msg.TxID) {
		em.down = append(em.down, msg)
		return
	}

	key := portfolioKey(strings.ToLower(msg.PortfolioName))
	if msg.IsSubscribe {
		subscribeIn(a, em, a.pfByName, nil, key, msg)
	} else {
		unsubscribeIn(a, em, a.pfByName, nil, key, msg)
	}
}

func (a *adapter) orderStatusInLocked(em *emission, msg *model.Message) {
	if a.consumePassThroughLocked(msg.TxID) {
		em.down = append(em.down, msg)
		return
	}

	if msg.IsSubscribe {
		a.registerByTxLocked(a.orderStatusByTx, msg)
		em.down = append(em.down, msg)
		return
	}
	a.unsubscribeByTxLocked(em, a.orderStatusByTx, msg)
}

func (a *adapter) portfolioLookupInLocked(em *emission, msg *model.Message) {
	if a.consumePassThroughLocked(msg.TxID) {
		em.down = append(em.down, msg)
		return
	}

	if !msg.IsSubscribe {
		a.unsubscribeByTxLocked(em, a.pfLookupByTx, msg)
		return
	}

	a.registerByTxLocked(a.pfLookupByTx, msg)
	a.pfLookupOrder = append(a.pfLookupOrder, msg.TxID)

	// Forwarding is governed by the lookup queue, not the table.
	a.enqueueLookupLocked(em, lookupPortfolios, msg)
}

// registerByTxLocked tracks a one-per-request subscription under its own
// transaction id. These keys are never shared.
func (a *adapter) registerByTxLocked(byTx map[model.TxID]*subscription, msg *model.Message) {
	info := newSubscription(msg.TxID, msg)
	info.add(msg.TxID)
	info.requests = append(info.requests, msg.Clone())
	byTx[msg.TxID] = info
}

// unsubscribeByTxLocked removes a one-per-request subscription and
// forwards the unsubscribe.
func (a *adapter) unsubscribeByTxLocked(em *emission, byTx map[model.TxID]*subscription, msg *model.Message) {
	info, ok := byTx[msg.OriginalTxID]
	if !ok {
		a.nonExistLocked(em, msg)
		return
	}
	info.remove(msg.OriginalTxID)
	delete(byTx, msg.OriginalTxID)
	a.removePfLookupOrder(msg.OriginalTxID)
	em.down = append(em.down, msg)
}

func (a *adapter) consumePassThroughLocked(tx model.TxID) bool {
	if _, ok := a.passThrough[tx]; ok {
		delete(a.passThrough, tx)
		return true
	}
	return false
}

// --- time tick ---

// tickLocked advances the lookup timeout wheels by the observed delta
// between outbound local times. Expired lookups are answered with
// synthetic result messages of the kind's result type (no error set)
// and their queues advance as if the venue had responded.
func (a *adapter) tickLocked(em *emission, now time.Time) {
	if now.IsZero() {
		return
	}

	if !a.prevLocalTime.IsZero() {
		delta := now.Sub(a.prevLocalTime)
		for _, ls := range a.lookups {
			for _, tx := range ls.timeouts.tick(delta) {
				synthetic := &model.Message{
					Type:         ls.resultType,
					OriginalTxID: tx,
					LocalTime:    now,
				}
				a.drainLookupLocked(em, ls.kind, synthetic)
				em.up = append(em.up, synthetic)
				a.stats.TimeoutsFired++
			}
		}
	}

	a.prevLocalTime = now
}

// --- port emission ---

// prepareReplayLocked converts captured subscribes into loop emissions:
// IsBack set, this adapter bound as sender, and the tx registered as
// pass-through so the re-entry skips bookkeeping.
func (a *adapter) prepareReplayLocked(em *emission) {
	for _, m := range em.replay {
		m.IsBack = true
		m.Adapter = a
		a.passThrough[m.TxID] = struct{}{}
		em.loop = append(em.loop, m)
		a.stats.Replays++
	}
	em.replay = nil
}

// emit invokes the ports with the collected messages. Must be called
// without the adapter mutex held.
func (a *adapter) emit(em *emission) error {
	var firstErr error
	for _, m := range em.down {
		if err := a.down.SendIn(m); err != nil {
			a.logger.Error("downstream send failed", "type", m.Type, "tx", m.TxID, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	for _, m := range em.up {
		a.up.RaiseNewOut(m)
	}
	for _, m := range em.loop {
		a.up.OnSendIn(m)
	}
	return firstErr
}
