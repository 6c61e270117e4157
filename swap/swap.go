// Package swap converts incoming payments into the stable reference
// currency. The Gateway answers "would this swap clear our minimum?"
// through a quoter; the Executor performs the swap through a router.
// Quote and execution are decoupled steps: a quote is advisory, so the
// Executor re-validates actual proceeds against the same gate.
package swap

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
)

// MinimumQuote is the flat minimum-acceptable output in raw stable-token
// units, applied regardless of the stable token's decimals. With a
// 6-decimal stable this is 0.5 tokens; callers should document the
// implied real-world minimum for other decimal counts.
var MinimumQuote = big.NewInt(500_000)

// PoolPath identifies a swap route: input token (the zero address for the
// native currency), output stable token and fee tier.
type PoolPath struct {
	TokenIn  common.Address
	TokenOut common.Address
	FeeTier  uint32
}

// Factory resolves pool addresses for a path. A zero address means no
// pool exists for the pair and fee tier.
type Factory interface {
	GetPool(tokenIn, tokenOut common.Address, feeTier uint32) common.Address
}

// Quoter estimates swap output. Quotes are advisory, not a guaranteed
// execution price.
type Quoter interface {
	QuoteExactInputSingle(path PoolPath, amountIn *big.Int) (*big.Int, error)
}

// Router executes swaps against the ledger: it takes amountIn of the
// input asset from payer and delivers the stable output to recipient,
// all within the caller's transaction scope.
type Router interface {
	ExactInputSingle(st *chain.State, path PoolPath, amountIn, minOut *big.Int, payer, recipient common.Address) (*big.Int, error)
}

// Gateway enforces the go/no-go policy in front of a swap. The pool
// existence check runs strictly before the quote so callers can
// distinguish "no market" from "market too thin".
type Gateway struct {
	factory Factory
	quoter  Quoter
}

// NewGateway creates a Gateway over a factory and quoter.
func NewGateway(factory Factory, quoter Quoter) *Gateway {
	return &Gateway{factory: factory, quoter: quoter}
}

// Quote returns the expected stable output for amountIn along path, or a
// terminal revert if no pool exists or the quote is below MinimumQuote.
func (g *Gateway) Quote(path PoolPath, amountIn *big.Int) (*big.Int, error) {
	pool := g.factory.GetPool(path.TokenIn, path.TokenOut, path.FeeTier)
	if aqmint.IsZeroAddress(pool) {
		return nil, aqmint.Revert(aqmint.ErrCodeNoPool, "No pool for the token")
	}

	amountOut, err := g.quoter.QuoteExactInputSingle(path, amountIn)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(MinimumQuote) < 0 {
		return nil, aqmint.Revert(aqmint.ErrCodeQuoteTooLow, "Quoted amount is less than 5e5")
	}
	return amountOut, nil
}

// Executor runs the execution leg through a router.
type Executor struct {
	router Router
}

// NewExecutor creates an Executor over a router.
func NewExecutor(router Router) *Executor {
	return &Executor{router: router}
}

// Swap executes the swap and re-checks the actual proceeds against
// MinimumQuote, since the quoted and executed amounts may differ.
func (e *Executor) Swap(st *chain.State, path PoolPath, amountIn *big.Int, payer, recipient common.Address) (*big.Int, error) {
	out, err := e.router.ExactInputSingle(st, path, amountIn, MinimumQuote, payer, recipient)
	if err != nil {
		return nil, err
	}
	if out.Cmp(MinimumQuote) < 0 {
		return nil, aqmint.Revert(aqmint.ErrCodeQuoteTooLow, "Quoted amount is less than 5e5")
	}
	return out, nil
}
