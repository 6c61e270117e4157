// Package collection implements the mint/token issuance ledger: it
// accepts a payment in native currency or an ERC-20 (via permit),
// converts it to the stable reference currency through the swap gateway,
// splits the proceeds between platform and creator and issues a uniquely
// numbered token recording the transaction's economic facts.
package collection

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/feesplit"
	"github.com/aqmint/aqmint-go/permit"
	"github.com/aqmint/aqmint-go/swap"
)

// MintEvent is emitted once per successful mint.
type MintEvent struct {
	Minter     common.Address
	Recipient  common.Address
	GrossValue *big.Int
	TokenCount uint64
}

// Name implements chain.Event.
func (MintEvent) Name() string { return "Mint" }

// Config fixes a collection's identity and fee policy at configure time.
type Config struct {
	Name         string
	Symbol       string
	Creator      common.Address
	FeeRecipient common.Address
	FeeBps       feesplit.BasisPoints
}

// Route names the market collaborators a mint settles through.
type Route struct {
	Factory swap.Factory
	Quoter  swap.Quoter
	Router  swap.Router
	FeeTier uint32
	Stable  common.Address
}

// Collection is the issuance ledger. Token ids are strictly increasing
// and never reused; id 0 is reserved for the configure-time mint, so the
// first real mint is id 1.
type Collection struct {
	st   *chain.State
	addr common.Address

	cfg        Config
	configured bool

	nextID  uint64
	owners  map[uint64]common.Address
	records map[uint64]aqmint.MintRecord
}

// New creates an unconfigured collection at its own contract address.
func New(st *chain.State) *Collection {
	return &Collection{
		st:      st,
		addr:    st.AllocAddress(),
		owners:  make(map[uint64]common.Address),
		records: make(map[uint64]aqmint.MintRecord),
	}
}

// Address returns the collection's contract address, the spender named in
// ERC-20 permit requests.
func (c *Collection) Address() common.Address { return c.addr }

// Configure fixes the collection's fee policy and mints the reserved
// token id 0 to the admin. It may be called once.
func (c *Collection) Configure(admin common.Address, cfg Config) error {
	if c.configured {
		return aqmint.Revert(aqmint.ErrCodeConfiguration, "already configured")
	}
	if aqmint.IsZeroAddress(admin) || aqmint.IsZeroAddress(cfg.Creator) || aqmint.IsZeroAddress(cfg.FeeRecipient) {
		return aqmint.Revert(aqmint.ErrCodeZeroAddress, "Recipient is zero")
	}
	if cfg.FeeBps.Uint16() > feesplit.Denominator {
		return aqmint.Revert(aqmint.ErrCodeConfiguration, "fee fraction out of range")
	}
	c.cfg = cfg
	c.configured = true
	c.owners[0] = admin
	c.nextID = 1
	return nil
}

// OwnerOf returns the owner of a token id.
func (c *Collection) OwnerOf(id uint64) (common.Address, bool) {
	owner, ok := c.owners[id]
	return owner, ok
}

// Record returns the write-once mint record of a token id. The reserved
// id 0 has no record.
func (c *Collection) Record(id uint64) (aqmint.MintRecord, bool) {
	rec, ok := c.records[id]
	return rec, ok
}

// TotalMinted returns the number of tokens issued, including id 0.
func (c *Collection) TotalMinted() uint64 { return c.nextID }

// MintWithNative settles a native-currency payment: quote gate, swap of
// the full value to the stable token, fee split, issuance. The whole
// pipeline runs in one transaction scope; any failure unwinds everything.
func (c *Collection) MintWithNative(payer common.Address, value *big.Int, route Route, now time.Time) (uint64, error) {
	var tokenID uint64
	err := c.st.Transact(func() error {
		if err := c.checkMintable(payer, value); err != nil {
			return err
		}
		path := swap.PoolPath{TokenIn: common.Address{}, TokenOut: route.Stable, FeeTier: route.FeeTier}
		if _, err := swap.NewGateway(route.Factory, route.Quoter).Quote(path, value); err != nil {
			return err
		}
		if err := c.st.TransferNative(payer, c.addr, value); err != nil {
			return err
		}
		gross, err := swap.NewExecutor(route.Router).Swap(c.st, path, value, c.addr, c.addr)
		if err != nil {
			return err
		}
		id, err := c.settle(payer, gross, route.Stable, now)
		if err != nil {
			return err
		}
		tokenID = id
		return nil
	})
	return tokenID, err
}

// MintWithERC20 settles an ERC-20 payment authorized by an EIP-2612
// permit naming the collection as spender.
func (c *Collection) MintWithERC20(payer, tokenIn common.Address, req permit.Request, route Route, now time.Time) (uint64, error) {
	var tokenID uint64
	err := c.st.Transact(func() error {
		if err := c.checkMintable(payer, req.Value); err != nil {
			return err
		}
		path := swap.PoolPath{TokenIn: tokenIn, TokenOut: route.Stable, FeeTier: route.FeeTier}
		if _, err := swap.NewGateway(route.Factory, route.Quoter).Quote(path, req.Value); err != nil {
			return err
		}
		if req.Spender != c.addr {
			return aqmint.Revert(aqmint.ErrCodeInvalidSignature, "permit spender is not the collection")
		}
		if err := permit.Consume(c.st, tokenIn, req, now); err != nil {
			return err
		}
		tok, ok := c.st.Token(tokenIn)
		if !ok {
			return aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
		}
		if err := tok.TransferFrom(c.addr, payer, c.addr, req.Value); err != nil {
			return err
		}
		gross, err := swap.NewExecutor(route.Router).Swap(c.st, path, req.Value, c.addr, c.addr)
		if err != nil {
			return err
		}
		id, err := c.settle(payer, gross, route.Stable, now)
		if err != nil {
			return err
		}
		tokenID = id
		return nil
	})
	return tokenID, err
}

func (c *Collection) checkMintable(payer common.Address, value *big.Int) error {
	if !c.configured {
		return aqmint.Revert(aqmint.ErrCodeConfiguration, "not configured")
	}
	if aqmint.IsZeroAddress(payer) {
		return aqmint.Revert(aqmint.ErrCodeZeroAddress, "Recipient is zero")
	}
	if value == nil || value.Sign() <= 0 {
		return aqmint.Revert(aqmint.ErrCodeZeroValue, "Zero value")
	}
	return nil
}

// settle distributes the stable proceeds and issues the token. Local
// ledger mutations happen only after every fallible step, so a revert in
// the transaction scope cannot leave a half-issued token behind.
func (c *Collection) settle(payer common.Address, gross *big.Int, stable common.Address, now time.Time) (uint64, error) {
	stableTok, ok := c.st.Token(stable)
	if !ok {
		return 0, aqmint.Revert(aqmint.ErrCodeTokenUnknown, "Token not registered")
	}

	platformShare, creatorShare := feesplit.Split(gross, c.cfg.FeeBps)
	if err := stableTok.Transfer(c.addr, c.cfg.FeeRecipient, platformShare); err != nil {
		return 0, err
	}
	if err := stableTok.Transfer(c.addr, c.cfg.Creator, creatorShare); err != nil {
		return 0, err
	}
	if stableTok.BalanceOf(c.addr).Sign() != 0 {
		return 0, aqmint.Revert(aqmint.ErrCodeSettlement, "residual stable balance after distribution")
	}

	id := c.nextID
	c.nextID++
	c.owners[id] = payer
	c.records[id] = aqmint.MintRecord{
		Payer:      payer,
		Creator:    c.cfg.Creator,
		GrossValue: new(big.Int).Set(gross),
		FeeAmount:  platformShare,
		Timestamp:  now,
	}
	c.st.Emit(MintEvent{
		Minter:     payer,
		Recipient:  payer,
		GrossValue: new(big.Int).Set(gross),
		TokenCount: c.nextID,
	})
	return id, nil
}
