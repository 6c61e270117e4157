// Package vault implements the deposit engine: each (owner, beneficiary)
// pair maps deterministically to a vault address, the vault is
// materialized lazily on first deposit, and deposited stablecoin is
// forwarded into a yield-bearing lending position on the vault's behalf.
package vault

import (
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/feesplit"
	"github.com/aqmint/aqmint-go/permit"
)

// DepositEvent is emitted once per successful deposit.
type DepositEvent struct {
	Owner       common.Address
	Beneficiary common.Address
	ShareBps    feesplit.BasisPoints
	Value       *big.Int
}

// Name implements chain.Event.
func (DepositEvent) Name() string { return "Deposit" }

// DeployState is the provisioning state of a derived vault address. The
// table of DeployStates is the source of truth for "is it deployed yet";
// the engine never infers deployment from bytecode probes.
type DeployState int

const (
	// StateNotDeployed means the address is only a derivation so far.
	StateNotDeployed DeployState = iota
	// StateDeployed means the vault contract exists and is initialized.
	StateDeployed
)

// State is the recorded position of a single vault.
type State struct {
	Owner         common.Address
	Beneficiary   common.Address
	Deposited     *big.Int
	YieldShareBps feesplit.BasisPoints
}

// LendingPool supplies an asset into a yield position credited to
// onBehalfOf, pulling the funds from from within the caller's
// transaction scope.
type LendingPool interface {
	Supply(st *chain.State, asset common.Address, amount *big.Int, from, onBehalfOf common.Address) error
}

// vaultProxyCode is the fixed beacon-proxy creation code prefix. The full
// init code is this prefix concatenated with the beacon address, so the
// init-code hash is constant and vault identity lives entirely in the
// CREATE2 salt.
var vaultProxyCode = common.FromHex("0x3d602d80600a3d3981f3363d3d373d3d3d363d73")

// Engine derives, provisions and funds vaults.
type Engine struct {
	st     *chain.State
	addr   common.Address
	stable common.Address
	beacon common.Address
	pool   LendingPool

	mu        sync.Mutex
	provision map[common.Address]DeployState
	vaults    map[common.Address]*State
}

// NewEngine creates a deposit engine for one stable token and lending
// pool. The engine's own address is the CREATE2 deployer and the spender
// permits must name.
func NewEngine(st *chain.State, stable, beacon common.Address, pool LendingPool) *Engine {
	return &Engine{
		st:        st,
		addr:      st.AllocAddress(),
		stable:    stable,
		beacon:    beacon,
		pool:      pool,
		provision: make(map[common.Address]DeployState),
		vaults:    make(map[common.Address]*State),
	}
}

// Address returns the engine's contract address.
func (e *Engine) Address() common.Address { return e.addr }

// Salt hashes the (owner, beneficiary) identity pair into the CREATE2
// salt for their vault.
func Salt(owner, beneficiary common.Address) common.Hash {
	return crypto.Keccak256Hash(owner.Bytes(), beneficiary.Bytes())
}

func (e *Engine) initCode() []byte {
	code := make([]byte, 0, len(vaultProxyCode)+common.AddressLength)
	code = append(code, vaultProxyCode...)
	code = append(code, e.beacon.Bytes()...)
	return code
}

// VaultAddress computes the address the vault for (owner, beneficiary)
// has, or would have if deployed now. It depends only on its inputs and
// the engine identity, so it can be shown to users before any deposit.
func (e *Engine) VaultAddress(owner, beneficiary common.Address) common.Address {
	return chain.DeriveCreate2(e.addr, Salt(owner, beneficiary), e.initCode())
}

// DeployedState returns the provisioning state of a derived address.
func (e *Engine) DeployedState(addr common.Address) DeployState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.provision[addr]
}

// Vault returns a copy of the recorded vault position.
func (e *Engine) Vault(addr common.Address) (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vaults[addr]
	if !ok {
		return State{}, false
	}
	return State{
		Owner:         v.Owner,
		Beneficiary:   v.Beneficiary,
		Deposited:     new(big.Int).Set(v.Deposited),
		YieldShareBps: v.YieldShareBps,
	}, true
}

// ensureDeployed materializes the vault for (owner, beneficiary) exactly
// once. Racing callers observe StateDeployed and proceed; re-provisioning
// an existing vault is a benign no-op, never an error.
func (e *Engine) ensureDeployed(addr, owner, beneficiary common.Address) *State {
	if e.provision[addr] == StateDeployed {
		return e.vaults[addr]
	}
	e.st.SetCode(addr, e.initCode())
	v := &State{
		Owner:       owner,
		Beneficiary: beneficiary,
		Deposited:   new(big.Int),
	}
	e.vaults[addr] = v
	e.provision[addr] = StateDeployed
	return v
}

// Deposit consumes the permit, provisions the vault if absent, pulls the
// stablecoin and supplies it to the lending pool on the vault's behalf,
// then records the deposit. Deposited accumulates monotonically across
// calls; the yield share is last-write-wins. The whole flow is one
// transaction: any failure unwinds funds and events together.
func (e *Engine) Deposit(
	owner, beneficiary common.Address,
	shareBps feesplit.BasisPoints,
	req permit.Request,
	now time.Time,
) (common.Address, error) {
	if aqmint.IsZeroAddress(owner) {
		return common.Address{}, aqmint.Revert(aqmint.ErrCodeZeroAddress, "Owner is zero")
	}
	if aqmint.IsZeroAddress(beneficiary) {
		return common.Address{}, aqmint.Revert(aqmint.ErrCodeZeroAddress, "Beneficiary is zero")
	}
	if req.Value == nil || req.Value.Sign() <= 0 {
		return common.Address{}, aqmint.Revert(aqmint.ErrCodeZeroValue, "Zero value")
	}
	if req.Spender != e.addr {
		return common.Address{}, aqmint.Revert(aqmint.ErrCodeInvalidSignature, "permit spender is not the engine")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	vaultAddr := e.VaultAddress(owner, beneficiary)
	err := e.st.Transact(func() error {
		if err := permit.Consume(e.st, e.stable, req, now); err != nil {
			return err
		}
		stableTok, ok := e.st.Token(e.stable)
		if !ok {
			return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
		}
		if err := stableTok.TransferFrom(e.addr, owner, e.addr, req.Value); err != nil {
			return err
		}
		if err := e.pool.Supply(e.st, e.stable, req.Value, e.addr, vaultAddr); err != nil {
			return err
		}
		if stableTok.BalanceOf(e.addr).Sign() != 0 {
			return aqmint.Revert(aqmint.ErrCodeSettlement, "residual stable balance after supply")
		}

		v := e.ensureDeployed(vaultAddr, owner, beneficiary)
		v.Deposited.Add(v.Deposited, req.Value)
		v.YieldShareBps = shareBps
		e.st.Emit(DepositEvent{
			Owner:       owner,
			Beneficiary: beneficiary,
			ShareBps:    shareBps,
			Value:       new(big.Int).Set(req.Value),
		})
		return nil
	})
	if err != nil {
		return common.Address{}, err
	}
	return vaultAddr, nil
}
