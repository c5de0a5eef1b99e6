package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Ticker is a tradable instrument and its price history.
type Ticker struct {
	ID           string        `json:"id"`
	Symbol       string        `json:"symbol"`
	TradingName  string        `json:"tradingName"`
	Transactions []Transaction `json:"transactions"`
}

// Transaction is one daily observation. Series are ordered oldest first.
type Transaction struct {
	Date          time.Time       `json:"date"`
	AdjustedClose decimal.Decimal `json:"adjustedClose"`
	Volume        int64           `json:"volume"`
}

// Latest returns the most recent transaction.
func (t *Ticker) Latest() (Transaction, bool) {
	if len(t.Transactions) == 0 {
		return Transaction{}, false
	}
	return t.Transactions[len(t.Transactions)-1], true
}
