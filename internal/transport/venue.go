package transport

import (
	"sync"
	"sync/atomic"

	"github.com/rickgao/submux/internal/model"
)

// Venue adapts a Client into the adapter's downstream port: it forwards
// envelopes onto the wire, answers capability probes, and owns the
// process-wide transaction id generator. The bound client is swapped on
// reconnect; id generation survives rebinds.
type Venue struct {
	mu     sync.RWMutex
	client Client

	supported              map[model.MessageType]struct{}
	subscriptionBySecurity bool

	txID atomic.Int64
}

// NewVenue creates a venue port with the given capability set. A client
// must be bound with Rebind before messages can be sent.
func NewVenue(cfg VenueConfig) *Venue {
	supported := make(map[model.MessageType]struct{}, len(cfg.SupportedResults))
	for _, t := range cfg.SupportedResults {
		supported[t] = struct{}{}
	}
	return &Venue{
		supported:              supported,
		subscriptionBySecurity: cfg.SubscriptionBySecurity,
	}
}

// Rebind swaps the underlying client after a reconnect.
func (v *Venue) Rebind(client Client) {
	v.mu.Lock()
	v.client = client
	v.mu.Unlock()
}

// SendIn forwards a message to the venue.
func (v *Venue) SendIn(msg *model.Message) error {
	v.mu.RLock()
	client := v.client
	v.mu.RUnlock()

	if client == nil {
		return ErrNotConnected
	}
	return client.Send(msg)
}

// SupportsOut reports whether the venue can produce the given outbound
// message type.
func (v *Venue) SupportsOut(t model.MessageType) bool {
	_, ok := v.supported[t]
	return ok
}

// NextTxID returns the next transaction id. Ids are monotonic and
// positive for the life of the process.
func (v *Venue) NextTxID() model.TxID {
	return model.TxID(v.txID.Add(1))
}

// SubscriptionBySecurity reports whether market-data subscriptions are
// keyed by security id on this venue.
func (v *Venue) SubscriptionBySecurity() bool {
	return v.subscriptionBySecurity
}
