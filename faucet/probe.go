package faucet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aqmint/aqmint-go/chain"
)

// Capability classifies whether a token can be minted through a faucet.
// Probing is advisory tooling around the distributor, not a contract
// guarantee: callers use it to exclude incompatible tokens from a batch
// instead of letting one token abort the whole call.
type Capability int

const (
	// CapabilitySupported means the token exposes AccessControl and the
	// faucet holds MINTER_ROLE on it.
	CapabilitySupported Capability = iota
	// CapabilityNoAccessControl means the token exposes no role
	// interface (e.g. a wrapped-native token).
	CapabilityNoAccessControl
	// CapabilityMissingRole means the faucet lacks MINTER_ROLE.
	CapabilityMissingRole
	// CapabilityUnknownToken means no token ledger exists at the address.
	CapabilityUnknownToken
)

func (c Capability) String() string {
	switch c {
	case CapabilitySupported:
		return "supported"
	case CapabilityNoAccessControl:
		return "no AccessControl"
	case CapabilityMissingRole:
		return "faucet lacks MINTER_ROLE"
	case CapabilityUnknownToken:
		return "unknown token"
	default:
		return "unknown"
	}
}

// Skip records why a token was excluded from a batch.
type Skip struct {
	Token  common.Address
	Reason Capability
}

// Prober answers typed capability queries against the ledger.
type Prober struct {
	st *chain.State
}

// NewProber creates a Prober over a ledger state.
func NewProber(st *chain.State) *Prober {
	return &Prober{st: st}
}

// Probe classifies a single token for minting through minter.
func (p *Prober) Probe(token, minter common.Address) Capability {
	tok, ok := p.st.Token(token)
	if !ok {
		return CapabilityUnknownToken
	}
	role, ok := tok.MinterRole()
	if !ok {
		return CapabilityNoAccessControl
	}
	if !tok.HasRole(role, minter) {
		return CapabilityMissingRole
	}
	return CapabilitySupported
}

// Filter partitions tokens into the mintable subset and the skipped
// remainder with per-token reasons.
func (p *Prober) Filter(tokens []common.Address, minter common.Address) (subset []common.Address, skipped []Skip) {
	for _, token := range tokens {
		c := p.Probe(token, minter)
		if c == CapabilitySupported {
			subset = append(subset, token)
		} else {
			skipped = append(skipped, Skip{Token: token, Reason: c})
		}
	}
	return subset, skipped
}

// UnitAmounts computes the per-token raw amounts for units whole tokens,
// reading each token's decimals off-ledger so the batch itself can use
// BatchMintWithAmounts without a per-token decimals round-trip.
func (p *Prober) UnitAmounts(tokens []common.Address, units *big.Int) ([]*big.Int, error) {
	amounts := make([]*big.Int, len(tokens))
	for i, token := range tokens {
		tok, ok := p.st.Token(token)
		if !ok {
			return nil, &UnknownTokenError{Token: token}
		}
		scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tok.Decimals())), nil)
		amounts[i] = new(big.Int).Mul(units, scale)
	}
	return amounts, nil
}

// UnknownTokenError reports a probe against an address with no ledger.
type UnknownTokenError struct {
	Token common.Address
}

func (e *UnknownTokenError) Error() string {
	return "unknown token " + e.Token.Hex()
}
