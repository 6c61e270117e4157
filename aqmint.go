// Package aqmint holds the shared vocabulary of the AQ settlement core:
// amounts, fee configuration, mint records and the revert-style error
// taxonomy used by every fund-moving engine in this module.
//
// The engines themselves live in subpackages: collection (token issuance),
// vault (deposit engine), faucet (batch distribution), swap (price
// discovery and execution), permit (spending authorizations) and chain
// (the ledger substrate they all run against).
package aqmint

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// MintRecord captures the economic facts of a single mint. It is written
// exactly once at issuance time and never mutated afterwards.
type MintRecord struct {
	Payer      common.Address `json:"payer"`
	Creator    common.Address `json:"creator"`
	GrossValue *big.Int       `json:"grossValue"`
	FeeAmount  *big.Int       `json:"feeAmount"`
	Timestamp  time.Time      `json:"timestamp"`
}

// IsZeroAddress reports whether addr is the null address.
func IsZeroAddress(addr common.Address) bool {
	return addr == (common.Address{})
}
