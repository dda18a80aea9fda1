package domain

import "strings"

// BuySelector is the 4-byte function selector identifying buy calls on the
// target contract. Transactions whose input data starts with this prefix
// were sent by a buyer.
const BuySelector = "0x7deb6025"

// Transaction is a single record from the explorer's transaction-listing API.
type Transaction struct {
	From        string
	Input       string
	BlockNumber uint64
}

// IsBuy reports whether this transaction invoked the buy function.
func (t Transaction) IsBuy() bool {
	return strings.HasPrefix(strings.ToLower(t.Input), BuySelector)
}
