// Package permit adapts off-chain-signed EIP-2612 spending authorizations
// into single-use on-ledger allowances, so a caller can approve and pay
// within one transaction.
package permit

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
)

// Request is a signed spending authorization. The nonce is implicit: the
// token's current nonce for Owner is the one the signature must cover,
// and consuming the request advances it, preventing replay.
type Request struct {
	Owner    common.Address `json:"owner"`
	Spender  common.Address `json:"spender"`
	Value    *big.Int       `json:"value"`
	Deadline *big.Int       `json:"deadline"`
	V        byte           `json:"v"`
	R        common.Hash    `json:"r"`
	S        common.Hash    `json:"s"`
}

// Consume validates and consumes the authorization against a token
// ledger. On success the spender holds an allowance of exactly
// req.Value from req.Owner. Failure is terminal for this request; the
// caller must obtain a fresh signature to retry.
func Consume(st *chain.State, token common.Address, req Request, now time.Time) error {
	if aqmint.IsZeroAddress(req.Owner) || aqmint.IsZeroAddress(req.Spender) {
		return aqmint.Revert(aqmint.ErrCodeZeroAddress, "Recipient is zero")
	}
	tok, ok := st.Token(token)
	if !ok {
		return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	return tok.Permit(req.Owner, req.Spender, req.Value, req.Deadline, req.V, req.R, req.S, now)
}
