package domain

// TradeRequest is a broker's instruction to the exchange to settle one
// trade. It exists only for the duration of a single request/reply
// round-trip; the correlation id lives in the transport envelope, not here.
type TradeRequest struct {
	Symbol   string  `json:"symbol"`
	BrokerID string  `json:"broker_id"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
}

// TradeOutcome is the exchange's plain-text settlement verdict. It is the
// literal wire payload of a trade reply.
type TradeOutcome string

const (
	OutcomeSuccess TradeOutcome = "SUCCESS"
	OutcomeFailed  TradeOutcome = "FAILED"
)

// Succeeded reports whether the outcome is the success literal. Anything
// else on the wire counts as a failure.
func (o TradeOutcome) Succeeded() bool {
	return o == OutcomeSuccess
}
