package model

import "time"

// TxID is a client-unique transaction id correlating a subscription or
// lookup request with its downstream acknowledgement. Zero means absent.
type TxID int64

// MessageType identifies a message variant. The set is closed; the
// adapter dispatches with a switch and forwards unknown control types
// unchanged.
type MessageType string

// Control and lifecycle messages.
const (
	TypeReset                MessageType = "reset"
	TypeConnect              MessageType = "connect"
	TypeDisconnect           MessageType = "disconnect"
	TypeReconnectingFinished MessageType = "reconnecting_finished"
)

// Subscription requests (and their echo acknowledgements).
const (
	TypeMarketData      MessageType = "market_data"
	TypePortfolio       MessageType = "portfolio"
	TypeOrderStatus     MessageType = "order_status"
	TypePortfolioLookup MessageType = "portfolio_lookup"
)

// One-shot lookup requests.
const (
	TypeSecurityLookup  MessageType = "security_lookup"
	TypeBoardLookup     MessageType = "board_lookup"
	TypeTimeFrameLookup MessageType = "time_frame_lookup"
)

// Lookup results (terminate the matching lookup).
const (
	TypeSecurityLookupResult  MessageType = "security_lookup_result"
	TypeBoardLookupResult     MessageType = "board_lookup_result"
	TypeTimeFrameLookupResult MessageType = "time_frame_lookup_result"
	TypePortfolioLookupResult MessageType = "portfolio_lookup_result"
)

// Data messages from the venue.
const (
	TypeSecurity        MessageType = "security"
	TypeBoard           MessageType = "board"
	TypeBoardState      MessageType = "board_state"
	TypeNews            MessageType = "news"
	TypeCandleTimeFrame MessageType = "candle_time_frame"
	TypeCandleTick      MessageType = "candle_tick"
	TypeCandleVolume    MessageType = "candle_volume"
	TypeCandleRange     MessageType = "candle_range"
	TypeExecution       MessageType = "execution"
	TypePortfolioChange MessageType = "portfolio_change"
	TypePositionChange  MessageType = "position_change"
)

// IsCandle reports whether t is one of the candle variants.
func (t MessageType) IsCandle() bool {
	switch t {
	case TypeCandleTimeFrame, TypeCandleTick, TypeCandleVolume, TypeCandleRange:
		return true
	}
	return false
}

// ExecutionType distinguishes the execution message streams.
type ExecutionType string

const (
	ExecTick        ExecutionType = "tick"
	ExecOrderLog    ExecutionType = "order_log"
	ExecTransaction ExecutionType = "transaction" // order-and-trade stream
)

// DataType identifies the market-data stream a subscription requests.
type DataType string

const (
	DataLevel1      DataType = "level1"
	DataMarketDepth DataType = "market_depth"
	DataTrades      DataType = "trades"
	DataOrderLog    DataType = "order_log"
	DataCandles     DataType = "candles"
	DataNews        DataType = "news"
	DataBoard       DataType = "board"
)

// SecurityRequired reports whether subscriptions of this data type are
// keyed by security. News and board streams are keyed by scope instead.
func (d DataType) SecurityRequired() bool {
	return d != DataNews && d != DataBoard
}

// SecurityID identifies an instrument on a trading board.
type SecurityID struct {
	Code  string `json:"code,omitempty"`
	Board string `json:"board,omitempty"`
}

// IsZero reports whether the id is empty.
func (s SecurityID) IsZero() bool {
	return s.Code == "" && s.Board == ""
}

// Message is the envelope the adapter routes. Only the fields a given
// Type uses are populated; the rest stay zero.
type Message struct {
	Type MessageType `json:"type"`

	TxID         TxID `json:"tx_id,omitempty"`
	OriginalTxID TxID `json:"original_tx_id,omitempty"`

	IsSubscribe    bool `json:"is_subscribe,omitempty"`
	IsHistory      bool `json:"is_history,omitempty"`
	IsBack         bool `json:"is_back,omitempty"`
	IsNotSupported bool `json:"is_not_supported,omitempty"`

	// Error carries a downstream or synthesized failure. Empty means ok.
	Error string `json:"error,omitempty"`

	// LocalTime is the receive timestamp stamped by the transport; the
	// adapter's timeout wheel advances on deltas between these values.
	LocalTime time.Time `json:"local_time,omitzero"`

	// Subscription tagging applied by the adapter on outbound data.
	SubscriptionID  TxID   `json:"subscription_id,omitempty"`
	SubscriptionIDs []TxID `json:"subscription_ids,omitempty"`

	// Market-data request fields.
	DataType   DataType   `json:"data_type,omitempty"`
	SecurityID SecurityID `json:"security_id,omitzero"`
	Arg        string     `json:"arg,omitempty"`

	// Scope fields for news/board subscriptions and board data.
	NewsID    string `json:"news_id,omitempty"`
	BoardCode string `json:"board_code,omitempty"`

	// Portfolio fields.
	PortfolioName string `json:"portfolio_name,omitempty"`

	// Execution stream discriminator.
	ExecType ExecutionType `json:"exec_type,omitempty"`

	// Variant payload the adapter forwards opaquely (quotes, candle
	// values, news body, position deltas...).
	Payload map[string]any `json:"payload,omitempty"`

	// Adapter is the pipeline stage that re-injected this message on the
	// inbound port. Never serialized.
	Adapter any `json:"-"`
}

// Clone returns a deep copy. Slices and the payload map are copied so
// the original and the clone never alias.
func (m *Message) Clone() *Message {
	c := *m
	if m.SubscriptionIDs != nil {
		c.SubscriptionIDs = make([]TxID, len(m.SubscriptionIDs))
		copy(c.SubscriptionIDs, m.SubscriptionIDs)
	}
	if m.Payload != nil {
		c.Payload = make(map[string]any, len(m.Payload))
		for k, v := range m.Payload {
			c.Payload[k] = v
		}
	}
	return &c
}

// Ok reports whether an acknowledgement is positive.
func (m *Message) Ok() bool {
	return m.Error == "" && !m.IsNotSupported
}

// EqualRequest reports whether two messages describe the same request.
// Used by the lookup queues to drop duplicate floods.
func (m *Message) EqualRequest(o *Message) bool {
	return m.Type == o.Type &&
		m.TxID == o.TxID &&
		m.IsSubscribe == o.IsSubscribe &&
		m.DataType == o.DataType &&
		m.SecurityID == o.SecurityID &&
		m.Arg == o.Arg &&
		m.NewsID == o.NewsID &&
		m.BoardCode == o.BoardCode &&
		m.PortfolioName == o.PortfolioName
}
