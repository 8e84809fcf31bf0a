package domain

import "time"

// SignalEvent is a bias transition worth alerting on.
type SignalEvent struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	Mode       Mode      `json:"mode"`
	Bias       Bias      `json:"bias"`
	Note       string    `json:"note,omitempty"`
	Scores     Scores    `json:"scores"`
	Price      float64   `json:"price"`
	Change24h  float64   `json:"change24h"`
	OccurredAt time.Time `json:"occurredAt"`
}
