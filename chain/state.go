// Package chain provides the ledger substrate the settlement engines run
// against: native balances, ERC-20 token ledgers with EIP-2612 permit and
// role-based minting, a contract code store, CREATE2 address derivation
// and all-or-nothing transaction scopes.
package chain

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	aqmint "github.com/aqmint/aqmint-go"
)

// Event is an observable fact appended to the state's event log. Events
// emitted inside a failed Transact scope are rolled back with everything
// else.
type Event interface {
	Name() string
}

// State is the in-process ledger. It is not safe for concurrent use by
// itself: writers must serialize through Transact, which also provides
// the atomicity guarantee every engine relies on.
type State struct {
	mu      sync.Mutex
	chainID *big.Int

	native map[common.Address]*big.Int
	tokens map[common.Address]*Token
	code   map[common.Address][]byte
	events []Event

	deployer    common.Address
	deployNonce uint64
}

// NewState creates an empty ledger for the given chain id.
func NewState(chainID uint64) *State {
	return &State{
		chainID:  new(big.Int).SetUint64(chainID),
		native:   make(map[common.Address]*big.Int),
		tokens:   make(map[common.Address]*Token),
		code:     make(map[common.Address][]byte),
		deployer: common.HexToAddress("0x000000000000000000000000000000000000aA00"),
	}
}

// ChainID returns the chain id used in EIP-712 domains.
func (s *State) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}

// Transact runs fn as a single atomic transaction: if fn returns an
// error, every balance, allowance, nonce, role, code entry and emitted
// event is restored to its pre-transaction value and the error is
// returned unchanged. Transactions are serialized; there is no partial
// commit and no nested scope.
func (s *State) Transact(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type stateSnapshot struct {
	native      map[common.Address]*big.Int
	tokens      map[common.Address]*Token
	code        map[common.Address][]byte
	eventCount  int
	deployNonce uint64
}

func (s *State) snapshot() *stateSnapshot {
	snap := &stateSnapshot{
		native:      make(map[common.Address]*big.Int, len(s.native)),
		tokens:      make(map[common.Address]*Token, len(s.tokens)),
		code:        make(map[common.Address][]byte, len(s.code)),
		eventCount:  len(s.events),
		deployNonce: s.deployNonce,
	}
	for addr, bal := range s.native {
		snap.native[addr] = new(big.Int).Set(bal)
	}
	for addr, tok := range s.tokens {
		snap.tokens[addr] = tok.clone()
	}
	for addr, code := range s.code {
		snap.code[addr] = code
	}
	return snap
}

// restore puts surviving token objects back in place rather than
// swapping in the clones, so *Token references held by callers stay
// valid across a rollback. Tokens created inside the failed scope are
// dropped.
func (s *State) restore(snap *stateSnapshot) {
	s.native = snap.native
	for addr := range s.tokens {
		if _, ok := snap.tokens[addr]; !ok {
			delete(s.tokens, addr)
		}
	}
	for addr, saved := range snap.tokens {
		s.tokens[addr].restoreFrom(saved)
	}
	s.code = snap.code
	s.events = s.events[:snap.eventCount]
	s.deployNonce = snap.deployNonce
}

// AllocAddress assigns the next contract address from the genesis
// deployer's nonce sequence.
func (s *State) AllocAddress() common.Address {
	addr := crypto.CreateAddress(s.deployer, s.deployNonce)
	s.deployNonce++
	return addr
}

// Credit adds native currency to an account. Used for genesis funding.
func (s *State) Credit(addr common.Address, amount *big.Int) {
	bal, ok := s.native[addr]
	if !ok {
		bal = new(big.Int)
		s.native[addr] = bal
	}
	bal.Add(bal, amount)
}

// NativeBalance returns a copy of the account's native balance.
func (s *State) NativeBalance(addr common.Address) *big.Int {
	if bal, ok := s.native[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// TransferNative moves native currency between accounts.
func (s *State) TransferNative(from, to common.Address, amount *big.Int) error {
	if amount.Sign() <= 0 {
		return aqmint.Revert(aqmint.ErrCodeZeroValue, "Zero value")
	}
	bal := s.native[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return aqmint.Revert(aqmint.ErrCodeInsufficient, "insufficient native balance")
	}
	bal.Sub(bal, amount)
	s.Credit(to, amount)
	return nil
}

// SetCode records contract code at an address.
func (s *State) SetCode(addr common.Address, code []byte) {
	s.code[addr] = code
}

// Code returns the contract code at an address, nil for an EOA.
func (s *State) Code(addr common.Address) []byte {
	return s.code[addr]
}

// HasCode reports whether an address holds contract code.
func (s *State) HasCode(addr common.Address) bool {
	return len(s.code[addr]) > 0
}

// Emit appends an event to the log.
func (s *State) Emit(ev Event) {
	s.events = append(s.events, ev)
}

// Events returns the event log in emission order.
func (s *State) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// DeriveCreate2 computes the CREATE2 address for initCode deployed by
// deployer under salt:
//
//	keccak(0xff || deployer || salt || keccak(initCode))[12:]
//
// The result depends only on its inputs, never on chain state, so it can
// be computed before anything is deployed.
func DeriveCreate2(deployer common.Address, salt common.Hash, initCode []byte) common.Address {
	return crypto.CreateAddress2(deployer, salt, crypto.Keccak256(initCode))
}
