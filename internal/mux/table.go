package mux

import (
	"sort"
	"strings"

	"github.com/rickgao/submux/internal/model"
)

// marketDataKey is the equivalence class deciding whether two market-data
// subscribes can share one physical subscription.
type marketDataKey struct {
	dataType model.DataType
	security model.SecurityID
	arg      string
}

// scopeKey keys news/board subscriptions by their case-folded scope
// string (news id or board code; empty allowed).
type scopeKey string

// portfolioKey keys portfolio subscriptions by case-folded name.
// One-per-request subscriptions (order status, portfolio lookup) use
// their own model.TxID as the key.
type portfolioKey string

func (a *adapter) marketDataKeyFor(msg *model.Message) marketDataKey {
	k := marketDataKey{dataType: msg.DataType, security: msg.SecurityID, arg: msg.Arg}
	if !a.down.SubscriptionBySecurity() {
		k.security = model.SecurityID{}
	}
	return k
}

func scopeKeyFor(msg *model.Message) scopeKey {
	if msg.DataType == model.DataBoard {
		return scopeKey(strings.ToLower(msg.BoardCode))
	}
	return scopeKey(strings.ToLower(msg.NewsID))
}

// subscription tracks one physical subscription and the logical
// subscribers multiplexed onto it.
type subscription struct {
	// message is the canonical subscribe request: a clone of the first
	// subscribe seen for the key.
	message *model.Message

	// requests holds every subscribe/unsubscribe seen for the key, in
	// arrival order. Each downstream ack fans out to one per-request ack.
	requests []*model.Message

	// key locates the owning keyed-map entry so a failed or drained
	// subscription can be unregistered.
	key any

	subscribers  map[model.TxID]struct{}
	snapshot     []model.TxID // cached; nil when dirty
	isSubscribed bool
}

func newSubscription(key any, first *model.Message) *subscription {
	return &subscription{
		message:     first.Clone(),
		key:         key,
		subscribers: make(map[model.TxID]struct{}),
	}
}

func (s *subscription) add(tx model.TxID) {
	s.subscribers[tx] = struct{}{}
	s.snapshot = nil
}

func (s *subscription) remove(tx model.TxID) {
	delete(s.subscribers, tx)
	s.snapshot = nil
}

// subscriberIDs returns the cached immutable subscriber snapshot,
// rebuilding it if a mutation dirtied the cache. Callers share the
// returned slice and must not modify it.
func (s *subscription) subscriberIDs() []model.TxID {
	if s.snapshot == nil {
		s.snapshot = make([]model.TxID, 0, len(s.subscribers))
		for tx := range s.subscribers {
			s.snapshot = append(s.snapshot, tx)
		}
		sort.Slice(s.snapshot, func(i, j int) bool { return s.snapshot[i] < s.snapshot[j] })
	}
	return s.snapshot
}

// request returns the tracked request with the given transaction id.
func (s *subscription) request(tx model.TxID) *model.Message {
	for _, r := range s.requests {
		if r.TxID == tx {
			return r
		}
	}
	return nil
}

// subscribeIn runs the subscribe half of the table state machine for a
// keyed map. When a by-tx index is given it receives the subscriber's tx
// so downstream acks and data tagging can find the info.
func subscribeIn[K comparable](
	a *adapter, em *emission,
	byKey map[K]*subscription, byTx map[model.TxID]*subscription,
	key K, msg *model.Message,
) (created bool) {
	tx := msg.TxID

	info, ok := byKey[key]
	if !ok {
		info = newSubscription(key, msg)
		byKey[key] = info
		created = true
	}

	info.add(tx)

	sendIn := len(info.subscribers) == 1
	onlyHistory := false
	if a.opts.SupportMultipleSubscriptions && !sendIn {
		onlyHistory = true
		sendIn = true
		a.historyOnly[tx] = struct{}{}
	}

	info.requests = append(info.requests, msg.Clone())
	if byTx != nil {
		byTx[tx] = info
	}

	if sendIn {
		if onlyHistory {
			msg.IsHistory = true
		}
		em.down = append(em.down, msg)
		return created
	}

	if info.isSubscribed {
		// The physical subscription is already live: answer this
		// subscriber directly.
		em.up = append(em.up, &model.Message{Type: msg.Type, OriginalTxID: tx})
		a.stats.AcksSynthesized++
	}
	return created
}

// unsubscribeIn runs the unsubscribe half. The physical unsubscribe goes
// downstream only when the last subscriber leaves; its own tx is then
// indexed so the terminating ack can settle the info.
func unsubscribeIn[K comparable](
	a *adapter, em *emission,
	byKey map[K]*subscription, byTx map[model.TxID]*subscription,
	key K, msg *model.Message,
) {
	info, ok := byKey[key]
	if !ok || len(info.subscribers) == 0 {
		a.nonExistLocked(em, msg)
		return
	}

	info.remove(msg.OriginalTxID)
	if byTx != nil {
		delete(byTx, msg.OriginalTxID)
	}
	info.requests = append(info.requests, msg.Clone())

	if len(info.subscribers) > 0 {
		// Other subscribers keep the physical subscription alive; this
		// unsubscribe is acknowledged when the subscription settles.
		return
	}

	delete(byKey, key)
	if msg.OriginalTxID == 0 {
		msg.OriginalTxID = info.message.TxID
	}
	if byTx != nil {
		// Index the physical unsubscribe so the terminating ack can
		// settle the info and fan out per-request acks.
		byTx[msg.TxID] = info
	}
	em.down = append(em.down, msg)
}

// nonExistLocked handles an unsubscribe that matches nothing.
func (a *adapter) nonExistLocked(em *emission, msg *model.Message) {
	if a.opts.NonExistSubscriptionAsError {
		em.up = append(em.up, &model.Message{
			Type:         msg.Type,
			OriginalTxID: msg.TxID,
			Error:        "subscription not found",
		})
		return
	}
	a.logger.Info("unsubscribe for unknown subscription",
		"type", msg.Type,
		"tx", msg.TxID,
		"original_tx", msg.OriginalTxID,
	)
}

// processOutAckLocked settles a downstream acknowledgement against the by-tx
// index. Returns true when the ack was consumed (history-only and
// pass-through ids, or a tracked info that fanned out per-request acks);
// the caller then suppresses the raw ack.
func (a *adapter) processOutAckLocked(em *emission, byTx map[model.TxID]*subscription, msg *model.Message) bool {
	tx := msg.OriginalTxID

	if _, ok := a.historyOnly[tx]; ok {
		delete(a.historyOnly, tx)
		return true
	}
	if _, ok := a.passThrough[tx]; ok {
		delete(a.passThrough, tx)
		return true
	}

	info, ok := byTx[tx]
	if !ok {
		return false
	}

	if acked := info.request(tx); acked != nil {
		info.isSubscribed = acked.IsSubscribe && msg.Ok()
	} else {
		info.isSubscribed = info.message.IsSubscribe && msg.Ok()
	}

	// Every client that issued a request on this key gets its own ack,
	// even though only one physical request went downstream.
	for _, req := range info.requests {
		ack := msg.Clone()
		ack.OriginalTxID = req.TxID
		em.up = append(em.up, ack)
		a.stats.AcksSynthesized++
	}

	if !info.isSubscribed {
		a.dropInfoLocked(byTx, info)
	}
	return true
}

// dropInfoLocked removes every table reference to info: its keyed-map
// entry and all by-tx index entries.
func (a *adapter) dropInfoLocked(byTx map[model.TxID]*subscription, info *subscription) {
	switch k := info.key.(type) {
	case marketDataKey:
		if a.mdByKey[k] == info {
			delete(a.mdByKey, k)
		}
	case scopeKey:
		if a.newsBoardByKey[k] == info {
			delete(a.newsBoardByKey, k)
		}
	case portfolioKey:
		if a.pfByName[k] == info {
			delete(a.pfByName, k)
		}
	case model.TxID:
		if a.orderStatusByTx[k] == info {
			delete(a.orderStatusByTx, k)
		}
		if a.pfLookupByTx[k] == info {
			delete(a.pfLookupByTx, k)
			a.removePfLookupOrder(k)
		}
	}

	for tx, i := range byTx {
		if i == info {
			delete(byTx, tx)
		}
	}
}

func (a *adapter) removePfLookupOrder(tx model.TxID) {
	for i, t := range a.pfLookupOrder {
		if t == tx {
			a.pfLookupOrder = append(a.pfLookupOrder[:i], a.pfLookupOrder[i+1:]...)
			return
		}
	}
}
