// Package devnet assembles a complete in-process sandbox: ledger state,
// test tokens, faucet, collection and vault engine wired against local
// market and lending fakes. The CLI and HTTP server both run against a
// Sandbox; it plays the role the numbered deploy scripts play against a
// real devnet.
package devnet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/collection"
	"github.com/aqmint/aqmint-go/faucet"
	"github.com/aqmint/aqmint-go/feesplit"
	"github.com/aqmint/aqmint-go/internal/manifest"
	"github.com/aqmint/aqmint-go/swap"
	"github.com/aqmint/aqmint-go/vault"
)

// Fixed sandbox accounts.
var (
	Admin        = common.HexToAddress("0x00000000000000000000000000000000000a0001")
	Creator      = common.HexToAddress("0x00000000000000000000000000000000000a0002")
	FeeRecipient = common.HexToAddress("0x00000000000000000000000000000000000a0003")
	Beacon       = common.HexToAddress("0x00000000000000000000000000000000000a0004")
)

// FeeTier is the pool fee tier every sandbox route uses.
const FeeTier uint32 = 3000

// Sandbox is a fully wired in-process deployment.
type Sandbox struct {
	State  *chain.State
	Stable *chain.Token
	WETH   *chain.Token

	Faucet     *faucet.Distributor
	Collection *collection.Collection
	Vault      *vault.Engine

	Factory *factory
	Quoter  *quoter
	Router  *router
	Pool    *lendingPool
}

// New assembles a sandbox on the given chain id: a 6-decimal stable and
// an 18-decimal wrapped-native token, a faucet holding MINTER_ROLE on
// both, a configured collection, a vault engine over a local lending
// pool, and a constant-rate market quoting 1 stable unit per 1000 input
// units.
func New(chainID uint64) (*Sandbox, error) {
	st := chain.NewState(chainID)

	stable := st.CreateToken("Tether USD", "USDT", 6, Admin)
	weth := st.CreateToken("Wrapped Ether", "WETH", 18, Admin)

	fct := faucet.New(st, Admin, []common.Address{stable.Address(), weth.Address()}, []common.Address{Admin})
	if err := stable.GrantRole(Admin, chain.RoleMinter, fct.Address()); err != nil {
		return nil, fmt.Errorf("grant faucet minter on %s: %w", stable.Symbol(), err)
	}
	if err := weth.GrantRole(Admin, chain.RoleMinter, fct.Address()); err != nil {
		return nil, fmt.Errorf("grant faucet minter on %s: %w", weth.Symbol(), err)
	}

	rtr := newRouter(st, stable)
	if err := stable.GrantRole(Admin, chain.RoleMinter, rtr.addr); err != nil {
		return nil, fmt.Errorf("grant router minter: %w", err)
	}
	fac := newFactory(st)
	fac.register(common.Address{}, stable.Address(), FeeTier)
	fac.register(weth.Address(), stable.Address(), FeeTier)
	qtr := &quoter{}

	col := collection.New(st)
	if err := col.Configure(Admin, collection.Config{
		Name:         "Aquarium",
		Symbol:       "AQM",
		Creator:      Creator,
		FeeRecipient: FeeRecipient,
		FeeBps:       feesplit.MustBasisPoints(1000),
	}); err != nil {
		return nil, fmt.Errorf("configure collection: %w", err)
	}

	pool := newLendingPool(st, stable)
	eng := vault.NewEngine(st, stable.Address(), Beacon, pool)

	return &Sandbox{
		State:      st,
		Stable:     stable,
		WETH:       weth,
		Faucet:     fct,
		Collection: col,
		Vault:      eng,
		Factory:    fac,
		Quoter:     qtr,
		Router:     rtr,
		Pool:       pool,
	}, nil
}

// Route returns the market route every sandbox mint settles through.
func (s *Sandbox) Route() collection.Route {
	return collection.Route{
		Factory: s.Factory,
		Quoter:  s.Quoter,
		Router:  s.Router,
		FeeTier: FeeTier,
		Stable:  s.Stable.Address(),
	}
}

// Manifest records the sandbox's addresses.
func (s *Sandbox) Manifest(chainID uint64) *manifest.Manifest {
	m := manifest.New(chainID)
	m.SetContract(manifest.KeyStable, s.Stable.Address())
	m.SetContract(manifest.KeyFaucet, s.Faucet.Address())
	m.SetContract(manifest.KeyCollection, s.Collection.Address())
	m.SetContract(manifest.KeyVaultEngine, s.Vault.Address())
	m.SetContract(manifest.KeyBeacon, Beacon)
	m.SetContract(manifest.KeyLendingPool, s.Pool.addr)
	m.AddToken(s.Stable.Symbol(), s.Stable.Address(), s.Stable.Decimals())
	m.AddToken(s.WETH.Symbol(), s.WETH.Address(), s.WETH.Decimals())
	return m
}

// factory registers pools per (tokenIn, tokenOut, fee) triple.
type factory struct {
	pools map[string]common.Address
	st    *chain.State
}

func newFactory(st *chain.State) *factory {
	return &factory{pools: make(map[string]common.Address), st: st}
}

func poolKey(tokenIn, tokenOut common.Address, feeTier uint32) string {
	return fmt.Sprintf("%s/%s/%d", tokenIn.Hex(), tokenOut.Hex(), feeTier)
}

func (f *factory) register(tokenIn, tokenOut common.Address, feeTier uint32) {
	f.pools[poolKey(tokenIn, tokenOut, feeTier)] = f.st.AllocAddress()
}

// GetPool implements swap.Factory.
func (f *factory) GetPool(tokenIn, tokenOut common.Address, feeTier uint32) common.Address {
	return f.pools[poolKey(tokenIn, tokenOut, feeTier)]
}

// rate is the sandbox market's fixed price: 1 stable raw unit per 1000
// raw input units, floor division.
const rate = 1000

// quoter quotes the sandbox's constant rate.
type quoter struct{}

// QuoteExactInputSingle implements swap.Quoter.
func (quoter) QuoteExactInputSingle(path swap.PoolPath, amountIn *big.Int) (*big.Int, error) {
	return new(big.Int).Div(amountIn, big.NewInt(rate)), nil
}

// router executes at the quoted rate, minting the stable output. Holding
// MINTER_ROLE on the stable stands in for pool liquidity.
type router struct {
	addr   common.Address
	stable *chain.Token
}

func newRouter(st *chain.State, stable *chain.Token) *router {
	return &router{addr: st.AllocAddress(), stable: stable}
}

// ExactInputSingle implements swap.Router.
func (r *router) ExactInputSingle(st *chain.State, path swap.PoolPath, amountIn, minOut *big.Int, payer, recipient common.Address) (*big.Int, error) {
	if path.TokenIn == (common.Address{}) {
		if err := st.TransferNative(payer, r.addr, amountIn); err != nil {
			return nil, err
		}
	} else {
		tok, ok := st.Token(path.TokenIn)
		if !ok {
			return nil, fmt.Errorf("unknown input token %s", path.TokenIn.Hex())
		}
		if err := tok.Transfer(payer, r.addr, amountIn); err != nil {
			return nil, err
		}
	}
	out := new(big.Int).Div(amountIn, big.NewInt(rate))
	if err := r.stable.Mint(r.addr, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// lendingPool supplies the stable into a yield position, minting an
// aToken 1:1 to the position holder.
type lendingPool struct {
	addr   common.Address
	aToken *chain.Token
}

func newLendingPool(st *chain.State, stable *chain.Token) *lendingPool {
	addr := st.AllocAddress()
	aToken := st.CreateToken("Aave "+stable.Name(), "a"+stable.Symbol(), stable.Decimals(), addr)
	if err := aToken.GrantRole(addr, chain.RoleMinter, addr); err != nil {
		// The pool administers its own aToken; this cannot fail.
		panic(err)
	}
	return &lendingPool{addr: addr, aToken: aToken}
}

// Supply implements vault.LendingPool.
func (p *lendingPool) Supply(st *chain.State, asset common.Address, amount *big.Int, from, onBehalfOf common.Address) error {
	tok, ok := st.Token(asset)
	if !ok {
		return fmt.Errorf("unknown asset %s", asset.Hex())
	}
	if err := tok.Transfer(from, p.addr, amount); err != nil {
		return err
	}
	return p.aToken.Mint(p.addr, onBehalfOf, amount)
}

// ATokenBalance reports the yield position of an address.
func (p *lendingPool) ATokenBalance(addr common.Address) *big.Int {
	return p.aToken.BalanceOf(addr)
}
