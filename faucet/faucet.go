// Package faucet implements the batch test-token distributor: an
// admin-curated token registry, a minter allowlist and batch mint
// operations across the registered set. The capability prober in
// probe.go is the off-ledger adapter that filters incompatible tokens
// out of a batch before it is submitted.
package faucet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
)

// BatchMintEvent is emitted by the uniform-raw-amount variants.
type BatchMintEvent struct {
	Minter common.Address
	To     common.Address
	Amount *big.Int
	Count  uint64
}

// Name implements chain.Event.
func (BatchMintEvent) Name() string { return "BatchMint" }

// BatchMintUnitsEvent is emitted by the whole-unit variant.
type BatchMintUnitsEvent struct {
	Minter common.Address
	To     common.Address
	Units  *big.Int
	Count  uint64
}

// Name implements chain.Event.
func (BatchMintUnitsEvent) Name() string { return "BatchMintUnits" }

// BatchMintWithAmountsEvent is emitted by the per-token-amount variant.
type BatchMintWithAmountsEvent struct {
	Minter common.Address
	To     common.Address
	Count  uint64
}

// Name implements chain.Event.
func (BatchMintWithAmountsEvent) Name() string { return "BatchMintWithAmounts" }

// TokensSetEvent is the audit event for token registry mutations.
type TokensSetEvent struct {
	Admin  common.Address
	Tokens []common.Address
}

// Name implements chain.Event.
func (TokensSetEvent) Name() string { return "TokensSet" }

// MinterAddedEvent is the audit event for allowlist mutations.
type MinterAddedEvent struct {
	Admin  common.Address
	Minter common.Address
}

// Name implements chain.Event.
func (MinterAddedEvent) Name() string { return "MinterAdded" }

// Distributor grants bounded test amounts across a registered token set.
// The registry and allowlist are explicit admin-owned state, mutated only
// through guarded setters that emit audit events.
type Distributor struct {
	st   *chain.State
	addr common.Address

	admins     map[common.Address]bool
	minters    map[common.Address]bool
	tokens     []common.Address
	registered map[common.Address]bool
}

// New deploys a distributor with an initial token registry and minter
// allowlist. The admin may mutate both afterwards.
func New(st *chain.State, admin common.Address, tokens, minters []common.Address) *Distributor {
	d := &Distributor{
		st:      st,
		addr:    st.AllocAddress(),
		admins:  map[common.Address]bool{admin: true},
		minters: make(map[common.Address]bool),
	}
	d.setTokens(tokens)
	for _, m := range minters {
		d.minters[m] = true
	}
	st.SetCode(d.addr, []byte{0x60, 0x80, 0x60, 0x40})
	return d
}

// Address returns the distributor's contract address; tokens must grant
// it MINTER_ROLE for batch minting to work.
func (d *Distributor) Address() common.Address { return d.addr }

// Tokens returns the registered token set in registration order.
func (d *Distributor) Tokens() []common.Address {
	out := make([]common.Address, len(d.tokens))
	copy(out, d.tokens)
	return out
}

// IsMinter reports allowlist membership.
func (d *Distributor) IsMinter(account common.Address) bool { return d.minters[account] }

func (d *Distributor) setTokens(tokens []common.Address) {
	d.tokens = make([]common.Address, len(tokens))
	copy(d.tokens, tokens)
	d.registered = make(map[common.Address]bool, len(tokens))
	for _, t := range tokens {
		d.registered[t] = true
	}
}

// SetTokens replaces the token registry. Admin only; emits TokensSet.
func (d *Distributor) SetTokens(caller common.Address, tokens []common.Address) error {
	if !d.admins[caller] {
		return aqmint.Revertf(aqmint.ErrCodeUnauthorized, "account %s is missing role DEFAULT_ADMIN_ROLE", caller.Hex())
	}
	return d.st.Transact(func() error {
		d.setTokens(tokens)
		d.st.Emit(TokensSetEvent{Admin: caller, Tokens: d.Tokens()})
		return nil
	})
}

// AddMinter adds an account to the allowlist. Admin only; emits
// MinterAdded.
func (d *Distributor) AddMinter(caller, account common.Address) error {
	if !d.admins[caller] {
		return aqmint.Revertf(aqmint.ErrCodeUnauthorized, "account %s is missing role DEFAULT_ADMIN_ROLE", caller.Hex())
	}
	return d.st.Transact(func() error {
		d.minters[account] = true
		d.st.Emit(MinterAddedEvent{Admin: caller, Minter: account})
		return nil
	})
}

func (d *Distributor) checkBatch(caller, to common.Address) error {
	if !d.minters[caller] {
		return aqmint.Revertf(aqmint.ErrCodeUnauthorized, "account %s is missing role MINTER_ROLE", caller.Hex())
	}
	if aqmint.IsZeroAddress(to) {
		return aqmint.Revert(aqmint.ErrCodeZeroAddress, "Recipient is zero")
	}
	return nil
}

func (d *Distributor) mintOne(token, to common.Address, amount *big.Int) error {
	if !d.registered[token] {
		return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	tok, ok := d.st.Token(token)
	if !ok {
		return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	return tok.Mint(d.addr, to, amount)
}

// BatchMintSame mints the same raw amount of every registered token to
// to. The batch is atomic: one failing token unwinds the whole call.
func (d *Distributor) BatchMintSame(caller, to common.Address, amount *big.Int) error {
	if err := d.checkBatch(caller, to); err != nil {
		return err
	}
	return d.st.Transact(func() error {
		for _, token := range d.tokens {
			if err := d.mintOne(token, to, amount); err != nil {
				return err
			}
		}
		d.st.Emit(BatchMintEvent{Minter: caller, To: to, Amount: new(big.Int).Set(amount), Count: uint64(len(d.tokens))})
		return nil
	})
}

// BatchMintSameUnits mints units whole tokens of every registered token,
// scaling by each token's own decimals: 7 units credits 7e18 on an
// 18-decimal token and 7e6 on a 6-decimal token in the same call.
func (d *Distributor) BatchMintSameUnits(caller, to common.Address, units *big.Int) error {
	if err := d.checkBatch(caller, to); err != nil {
		return err
	}
	return d.st.Transact(func() error {
		for _, token := range d.tokens {
			tok, ok := d.st.Token(token)
			if !ok {
				return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
			}
			scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(tok.Decimals())), nil)
			if err := d.mintOne(token, to, new(big.Int).Mul(units, scale)); err != nil {
				return err
			}
		}
		d.st.Emit(BatchMintUnitsEvent{Minter: caller, To: to, Units: new(big.Int).Set(units), Count: uint64(len(d.tokens))})
		return nil
	})
}

// BatchMintSameSubset mints the same raw amount of each listed token.
// Every token must be registered.
func (d *Distributor) BatchMintSameSubset(caller, to common.Address, amount *big.Int, tokens []common.Address) error {
	if err := d.checkBatch(caller, to); err != nil {
		return err
	}
	return d.st.Transact(func() error {
		for _, token := range tokens {
			if err := d.mintOne(token, to, amount); err != nil {
				return err
			}
		}
		d.st.Emit(BatchMintEvent{Minter: caller, To: to, Amount: new(big.Int).Set(amount), Count: uint64(len(tokens))})
		return nil
	})
}

// BatchMintWithAmounts mints amounts[i] of tokens[i]. The slices must be
// the same length and every token must be registered.
func (d *Distributor) BatchMintWithAmounts(caller, to common.Address, tokens []common.Address, amounts []*big.Int) error {
	if err := d.checkBatch(caller, to); err != nil {
		return err
	}
	if len(tokens) != len(amounts) {
		return aqmint.Revert(aqmint.ErrCodeLengthMismatch, "Length mismatch")
	}
	return d.st.Transact(func() error {
		for i, token := range tokens {
			if err := d.mintOne(token, to, amounts[i]); err != nil {
				return err
			}
		}
		d.st.Emit(BatchMintWithAmountsEvent{Minter: caller, To: to, Count: uint64(len(tokens))})
		return nil
	})
}
