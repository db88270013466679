package mux

import (
	"time"

	"github.com/rickgao/submux/internal/model"
)

// resetLocked clears adapter state and forwards the reset. Subscriber
// tables survive when an error-driven reconnect is expected to restore
// them; the replay and lookup machinery always starts over.
func (a *adapter) resetLocked(em *emission, msg *model.Message) {
	if !a.opts.RestoreOnErrorReconnect {
		a.clearTablesLocked()
	}

	a.pendingReplay = nil
	clear(a.passThrough)
	for _, ls := range a.lookups {
		ls.reset()
	}
	a.prevLocalTime = time.Time{}

	em.down = append(em.down, msg)
}

// disconnectLocked captures the live subscriptions, issues one synthetic
// unsubscribe per capture so the venue drops them cleanly, and forwards
// the disconnect itself last.
func (a *adapter) disconnectLocked(em *emission, msg *model.Message) {
	captured := a.snapshotLocked()

	if a.opts.RestoreOnNormalReconnect {
		replay := make([]*model.Message, len(captured))
		for i, m := range captured {
			replay[i] = m.Clone()
		}
		a.pendingReplay = replay
	} else if !a.opts.RestoreOnErrorReconnect {
		// With error-restore armed the tables persist across the
		// disconnect, awaiting the reconnect-finished signal.
		a.clearTablesLocked()
	}

	for _, sub := range captured {
		unsub := sub.Clone()
		unsub.TxID = a.down.NextTxID()
		unsub.OriginalTxID = sub.TxID
		unsub.IsSubscribe = false
		if a.opts.RestoreOnNormalReconnect {
			a.passThrough[unsub.TxID] = struct{}{}
		}
		em.down = append(em.down, unsub)
	}

	em.down = append(em.down, msg)
}

// armReplayLocked decides what a successful Connect restores: a fresh
// snapshot under error-restore, or the captures saved at Disconnect
// under normal-restore.
func (a *adapter) armReplayLocked(em *emission) {
	if a.opts.RestoreOnErrorReconnect {
		em.replay = a.snapshotLocked()
		return
	}
	if a.opts.RestoreOnNormalReconnect {
		em.replay = a.pendingReplay
		a.pendingReplay = nil
	}
}

// snapshotLocked clones the canonical subscribe message of every live
// subscription across all keyed tables into a flat list.
func (a *adapter) snapshotLocked() []*model.Message {
	var out []*model.Message
	for _, info := range a.mdByKey {
		out = append(out, info.message.Clone())
	}
	for _, info := range a.newsBoardByKey {
		out = append(out, info.message.Clone())
	}
	for _, info := range a.pfByName {
		out = append(out, info.message.Clone())
	}
	for _, info := range a.orderStatusByTx {
		out = append(out, info.message.Clone())
	}
	for _, info := range a.pfLookupByTx {
		out = append(out, info.message.Clone())
	}
	return out
}

// clearTablesLocked drops every subscriber table.
func (a *adapter) clearTablesLocked() {
	clear(a.mdByKey)
	clear(a.newsBoardByKey)
	clear(a.pfByName)
	clear(a.mdByTx)
	clear(a.orderStatusByTx)
	clear(a.pfLookupByTx)
	a.pfLookupOrder = nil
	clear(a.historyOnly)
}
