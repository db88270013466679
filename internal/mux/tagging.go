package mux

import "github.com/rickgao/submux/internal/model"

// tagMarketDataLocked stamps a data message with the subscriber ids of
// the physical subscription identified by its original transaction id.
func (a *adapter) tagMarketDataLocked(msg *model.Message) {
	if info, ok := a.mdByTx[msg.OriginalTxID]; ok {
		msg.SubscriptionIDs = info.subscriberIDs()
	}
}

// tagTransactionalLocked stamps portfolio-scoped messages via the live
// portfolio-lookup subscriptions. When the original transaction id
// matches a live entry the message also carries that id directly.
//
// Known inaccuracy: with several live portfolio-lookup subscriptions the
// first entry's subscriber snapshot wins, regardless of which portfolio
// the message belongs to.
func (a *adapter) tagTransactionalLocked(msg *model.Message) {
	if _, ok := a.pfLookupByTx[msg.OriginalTxID]; ok {
		msg.SubscriptionID = msg.OriginalTxID
	}

	for _, tx := range a.pfLookupOrder {
		if info, ok := a.pfLookupByTx[tx]; ok {
			msg.SubscriptionIDs = info.subscriberIDs()
			return
		}
	}
}
