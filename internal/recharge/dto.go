package recharge

import "github.com/shopspring/decimal"

// Request is the inbound payload for POST /recharge.
type Request struct {
	Mobile      string          `json:"mobile"`
	Operator    string          `json:"operator"`
	Circle      string          `json:"circle"`
	Amount      decimal.Decimal `json:"amount"`
	ServiceType string          `json:"serviceType"`
}

// Response mirrors the fields the portal frontend expects. Success carries
// the business outcome; the HTTP status stays 200 for anything past
// validation.
type Response struct {
	Success     bool   `json:"success"`
	TxID        string `json:"txid"`
	Message     string `json:"message"`
	Status      string `json:"status"`
	Amount      string `json:"amount,omitempty"`
}
