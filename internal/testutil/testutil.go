// Package testutil provides the market and lending fakes shared by the
// engine test suites, plus signing helpers for building valid permit
// requests.
package testutil

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/eip712"
	"github.com/aqmint/aqmint-go/permit"
	"github.com/aqmint/aqmint-go/swap"
)

// FakeFactory registers pools per (tokenIn, tokenOut, fee) triple.
type FakeFactory struct {
	pools map[string]common.Address
}

// NewFakeFactory creates an empty pool registry.
func NewFakeFactory() *FakeFactory {
	return &FakeFactory{pools: make(map[string]common.Address)}
}

func poolKey(tokenIn, tokenOut common.Address, feeTier uint32) string {
	return fmt.Sprintf("%s/%s/%d", tokenIn.Hex(), tokenOut.Hex(), feeTier)
}

// SetPool registers a pool address for a path.
func (f *FakeFactory) SetPool(tokenIn, tokenOut common.Address, feeTier uint32, pool common.Address) {
	f.pools[poolKey(tokenIn, tokenOut, feeTier)] = pool
}

// GetPool implements swap.Factory.
func (f *FakeFactory) GetPool(tokenIn, tokenOut common.Address, feeTier uint32) common.Address {
	return f.pools[poolKey(tokenIn, tokenOut, feeTier)]
}

// FakeQuoter returns a configured quote for every path.
type FakeQuoter struct {
	Quote *big.Int
	Err   error
}

// QuoteExactInputSingle implements swap.Quoter.
func (q *FakeQuoter) QuoteExactInputSingle(path swap.PoolPath, amountIn *big.Int) (*big.Int, error) {
	if q.Err != nil {
		return nil, q.Err
	}
	return new(big.Int).Set(q.Quote), nil
}

// FakeRouter swaps any input for a fixed stable output, drawing the
// output from its own prefunded stable balance.
type FakeRouter struct {
	Addr           common.Address
	FixedAmountOut *big.Int
}

// NewFakeRouter allocates the router's contract address.
func NewFakeRouter(st *chain.State) *FakeRouter {
	return &FakeRouter{Addr: st.AllocAddress()}
}

// ExactInputSingle implements swap.Router: it takes amountIn of the input
// asset from payer and pays FixedAmountOut of the stable to recipient.
func (r *FakeRouter) ExactInputSingle(st *chain.State, path swap.PoolPath, amountIn, minOut *big.Int, payer, recipient common.Address) (*big.Int, error) {
	if aqmint.IsZeroAddress(path.TokenIn) {
		if err := st.TransferNative(payer, r.Addr, amountIn); err != nil {
			return nil, err
		}
	} else {
		tokenIn, ok := st.Token(path.TokenIn)
		if !ok {
			return nil, aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
		}
		if err := tokenIn.Transfer(payer, r.Addr, amountIn); err != nil {
			return nil, err
		}
	}

	stable, ok := st.Token(path.TokenOut)
	if !ok {
		return nil, aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	out := new(big.Int).Set(r.FixedAmountOut)
	if err := stable.Transfer(r.Addr, recipient, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FakeLendingPool mirrors an Aave-style pool: supplying an asset moves it
// into the pool and mints the matching aToken 1:1 to onBehalfOf.
type FakeLendingPool struct {
	Addr    common.Address
	ATokens map[common.Address]common.Address
}

// NewFakeLendingPool creates a pool with an aToken ledger for asset. The
// pool holds MINTER_ROLE on its own aToken.
func NewFakeLendingPool(st *chain.State, asset common.Address, aName, aSymbol string, decimals uint8) *FakeLendingPool {
	p := &FakeLendingPool{
		Addr:    st.AllocAddress(),
		ATokens: make(map[common.Address]common.Address),
	}
	aToken := st.CreateToken(aName, aSymbol, decimals, p.Addr)
	if err := aToken.GrantRole(p.Addr, chain.RoleMinter, p.Addr); err != nil {
		panic(err)
	}
	p.ATokens[asset] = aToken.Address()
	return p
}

// Supply implements vault.LendingPool.
func (p *FakeLendingPool) Supply(st *chain.State, asset common.Address, amount *big.Int, from, onBehalfOf common.Address) error {
	tok, ok := st.Token(asset)
	if !ok {
		return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	if err := tok.Transfer(from, p.Addr, amount); err != nil {
		return err
	}
	aTokenAddr, ok := p.ATokens[asset]
	if !ok {
		return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}
	aToken, _ := st.Token(aTokenAddr)
	return aToken.Mint(p.Addr, onBehalfOf, amount)
}

// Signer couples a private key with its address for test accounts.
type Signer struct {
	Key  *ecdsa.PrivateKey
	Addr common.Address
}

// NewSigner generates a fresh test account.
func NewSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return &Signer{Key: key, Addr: crypto.PubkeyToAddress(key.PublicKey)}
}

// SignPermit builds a valid permit request over the token's current nonce
// for the signer.
func SignPermit(t *testing.T, st *chain.State, token *chain.Token, signer *Signer, spender common.Address, value, deadline *big.Int) permit.Request {
	t.Helper()
	digest, err := eip712.PermitDigest(
		token.Name(), st.ChainID(), token.Address(),
		signer.Addr, spender, value, token.Nonces(signer.Addr), deadline,
	)
	if err != nil {
		t.Fatalf("permit digest: %v", err)
	}
	v, r, s, err := eip712.SignDigest(digest, signer.Key)
	if err != nil {
		t.Fatalf("sign digest: %v", err)
	}
	return permit.Request{
		Owner:    signer.Addr,
		Spender:  spender,
		Value:    value,
		Deadline: deadline,
		V:        v,
		R:        r,
		S:        s,
	}
}
