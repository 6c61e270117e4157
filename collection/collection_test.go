package collection_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/chain"
	"github.com/aqmint/aqmint-go/collection"
	"github.com/aqmint/aqmint-go/feesplit"
	"github.com/aqmint/aqmint-go/internal/testutil"
)

var (
	admin        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	creator      = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	feeRecipient = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	poolAddr     = common.HexToAddress("0x00000000000000000000000000000000000000f1")

	now = time.Unix(1_700_000_000, 0)
)

type fixture struct {
	st     *chain.State
	col    *collection.Collection
	stable *chain.Token
	route  collection.Route
	router *testutil.FakeRouter
	quoter *testutil.FakeQuoter
}

// newFixture wires a configured collection against a market where every
// swap settles for `gross` stable units.
func newFixture(t *testing.T, tokenIn common.Address, gross *big.Int) *fixture {
	t.Helper()
	st := chain.NewState(31337)

	router := testutil.NewFakeRouter(st)
	router.FixedAmountOut = gross
	stable := st.CreateToken("Tether USD", "USDT", 6, admin,
		chain.WithInitialSupply(big.NewInt(1_000_000_000), router.Addr))

	factory := testutil.NewFakeFactory()
	factory.SetPool(tokenIn, stable.Address(), 3000, poolAddr)
	quoter := &testutil.FakeQuoter{Quote: gross}

	col := collection.New(st)
	require.NoError(t, col.Configure(admin, collection.Config{
		Name:         "Aquarium",
		Symbol:       "AQM",
		Creator:      creator,
		FeeRecipient: feeRecipient,
		FeeBps:       feesplit.MustBasisPoints(1000),
	}))

	return &fixture{
		st:     st,
		col:    col,
		stable: stable,
		router: router,
		quoter: quoter,
		route: collection.Route{
			Factory: factory,
			Quoter:  quoter,
			Router:  router,
			FeeTier: 3000,
			Stable:  stable.Address(),
		},
	}
}

func TestConfigureReservesTokenZero(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(1_200_000))

	owner, ok := f.col.OwnerOf(0)
	require.True(t, ok)
	assert.Equal(t, admin, owner)
	_, ok = f.col.Record(0)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), f.col.TotalMinted())

	err := f.col.Configure(admin, collection.Config{
		Creator: creator, FeeRecipient: feeRecipient, FeeBps: feesplit.MustBasisPoints(1000),
	})
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeConfiguration, revert.Code)
}

func TestMintWithNativeSettlesAndIssues(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(1_200_000))
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(5_000))

	id, err := f.col.MintWithNative(payer, big.NewInt(5_000), f.route, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// 1_200_000 gross at 1000 bps splits 120_000 / 1_080_000.
	assert.Equal(t, big.NewInt(120_000), f.stable.BalanceOf(feeRecipient))
	assert.Equal(t, big.NewInt(1_080_000), f.stable.BalanceOf(creator))
	assert.Equal(t, big.NewInt(0), f.stable.BalanceOf(f.col.Address()))
	assert.Equal(t, big.NewInt(0), f.st.NativeBalance(payer))

	owner, ok := f.col.OwnerOf(1)
	require.True(t, ok)
	assert.Equal(t, payer, owner)

	rec, ok := f.col.Record(1)
	require.True(t, ok)
	assert.Equal(t, payer, rec.Payer)
	assert.Equal(t, creator, rec.Creator)
	assert.Equal(t, big.NewInt(1_200_000), rec.GrossValue)
	assert.Equal(t, big.NewInt(120_000), rec.FeeAmount)
	assert.Equal(t, now, rec.Timestamp)

	events := f.st.Events()
	require.Len(t, events, 1)
	mint, ok := events[0].(collection.MintEvent)
	require.True(t, ok)
	assert.Equal(t, payer, mint.Minter)
	assert.Equal(t, payer, mint.Recipient)
	assert.Equal(t, big.NewInt(1_200_000), mint.GrossValue)
	assert.Equal(t, uint64(2), mint.TokenCount)
}

func TestMintWithERC20ConsumesPermit(t *testing.T) {
	st := chain.NewState(31337)
	payer := testutil.NewSigner(t)

	router := testutil.NewFakeRouter(st)
	router.FixedAmountOut = big.NewInt(5_000_000)
	stable := st.CreateToken("Tether USD", "USDT", 6, admin,
		chain.WithInitialSupply(big.NewInt(1_000_000_000), router.Addr))
	weth := st.CreateToken("Wrapped Ether", "WETH", 18, admin,
		chain.WithInitialSupply(big.NewInt(1_000_000), payer.Addr))

	factory := testutil.NewFakeFactory()
	factory.SetPool(weth.Address(), stable.Address(), 3000, poolAddr)

	col := collection.New(st)
	require.NoError(t, col.Configure(admin, collection.Config{
		Name: "Aquarium", Symbol: "AQM",
		Creator: creator, FeeRecipient: feeRecipient,
		FeeBps: feesplit.MustBasisPoints(1000),
	}))
	route := collection.Route{
		Factory: factory,
		Quoter:  &testutil.FakeQuoter{Quote: big.NewInt(5_000_000)},
		Router:  router,
		FeeTier: 3000,
		Stable:  stable.Address(),
	}

	value := big.NewInt(700_000)
	deadline := big.NewInt(now.Unix() + 3600)
	req := testutil.SignPermit(t, st, weth, payer, col.Address(), value, deadline)

	id, err := col.MintWithERC20(payer.Addr, weth.Address(), req, route, now)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	// 5_000_000 gross at 1000 bps splits 500_000 / 4_500_000.
	assert.Equal(t, big.NewInt(500_000), stable.BalanceOf(feeRecipient))
	assert.Equal(t, big.NewInt(4_500_000), stable.BalanceOf(creator))
	assert.Equal(t, big.NewInt(0), stable.BalanceOf(col.Address()))
	assert.Equal(t, big.NewInt(300_000), weth.BalanceOf(payer.Addr))
	assert.Equal(t, big.NewInt(0), weth.Allowance(payer.Addr, col.Address()))

	// Same signature again: nonce consumed.
	_, err = col.MintWithERC20(payer.Addr, weth.Address(), req, route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeInvalidSignature, revert.Code)
}

func TestMintWithERC20RejectsForeignSpender(t *testing.T) {
	st := chain.NewState(31337)
	payer := testutil.NewSigner(t)

	router := testutil.NewFakeRouter(st)
	router.FixedAmountOut = big.NewInt(5_000_000)
	stable := st.CreateToken("Tether USD", "USDT", 6, admin,
		chain.WithInitialSupply(big.NewInt(1_000_000_000), router.Addr))
	weth := st.CreateToken("Wrapped Ether", "WETH", 18, admin,
		chain.WithInitialSupply(big.NewInt(1_000_000), payer.Addr))

	factory := testutil.NewFakeFactory()
	factory.SetPool(weth.Address(), stable.Address(), 3000, poolAddr)

	col := collection.New(st)
	require.NoError(t, col.Configure(admin, collection.Config{
		Creator: creator, FeeRecipient: feeRecipient, FeeBps: feesplit.MustBasisPoints(1000),
	}))
	route := collection.Route{
		Factory: factory, Quoter: &testutil.FakeQuoter{Quote: big.NewInt(5_000_000)},
		Router: router, FeeTier: 3000, Stable: stable.Address(),
	}

	// Permit names a different spender than the collection.
	other := common.HexToAddress("0x00000000000000000000000000000000000000c9")
	req := testutil.SignPermit(t, st, weth, payer, other, big.NewInt(700_000), big.NewInt(now.Unix()+3600))

	_, err := col.MintWithERC20(payer.Addr, weth.Address(), req, route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeInvalidSignature, revert.Code)
	assert.Equal(t, big.NewInt(0), weth.Nonces(payer.Addr))
}

func TestMintRejectsNoPool(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(1_200_000))
	f.route.Factory = testutil.NewFakeFactory() // no pools registered
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(5_000))

	_, err := f.col.MintWithNative(payer, big.NewInt(5_000), f.route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeNoPool, revert.Code)
	assert.Equal(t, "No pool for the token", revert.Reason)

	// Nothing moved, nothing issued.
	assert.Equal(t, big.NewInt(5_000), f.st.NativeBalance(payer))
	assert.Equal(t, uint64(1), f.col.TotalMinted())
	assert.Empty(t, f.st.Events())
}

func TestMintRejectsLowQuote(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(100_000))
	f.quoter.Quote = big.NewInt(100_000)
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(5_000))

	_, err := f.col.MintWithNative(payer, big.NewInt(5_000), f.route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeQuoteTooLow, revert.Code)
	assert.Equal(t, "Quoted amount is less than 5e5", revert.Reason)
	assert.Equal(t, big.NewInt(5_000), f.st.NativeBalance(payer))
}

func TestMintRejectsZeroInputs(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(1_200_000))

	_, err := f.col.MintWithNative(common.Address{}, big.NewInt(1), f.route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeZeroAddress, revert.Code)

	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	_, err = f.col.MintWithNative(payer, big.NewInt(0), f.route, now)
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeZeroValue, revert.Code)
	assert.Equal(t, "Zero value", revert.Reason)
}

func TestMintRollsBackOnThinExecution(t *testing.T) {
	// Quote clears the gate but the executed swap comes in under the
	// minimum: the whole transaction unwinds.
	f := newFixture(t, common.Address{}, big.NewInt(400_000))
	f.quoter.Quote = big.NewInt(1_200_000)
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(5_000))

	_, err := f.col.MintWithNative(payer, big.NewInt(5_000), f.route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeQuoteTooLow, revert.Code)

	assert.Equal(t, big.NewInt(5_000), f.st.NativeBalance(payer))
	assert.Equal(t, big.NewInt(0), f.stable.BalanceOf(feeRecipient))
	assert.Equal(t, uint64(1), f.col.TotalMinted())
	_, ok := f.col.OwnerOf(1)
	assert.False(t, ok)
}

func TestTokenIDsAreSequential(t *testing.T) {
	f := newFixture(t, common.Address{}, big.NewInt(1_200_000))
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(10_000))

	for want := uint64(1); want <= 3; want++ {
		id, err := f.col.MintWithNative(payer, big.NewInt(1_000), f.route, now)
		require.NoError(t, err)
		assert.Equal(t, want, id)
	}
	assert.Equal(t, uint64(4), f.col.TotalMinted())
}

func TestMintChecksPoolBeforeQuote(t *testing.T) {
	// With no pool AND a thin quote the pool error wins.
	f := newFixture(t, common.Address{}, big.NewInt(100))
	f.route.Factory = testutil.NewFakeFactory()
	f.quoter.Quote = big.NewInt(100)
	payer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	f.st.Credit(payer, big.NewInt(5_000))

	_, err := f.col.MintWithNative(payer, big.NewInt(5_000), f.route, now)
	var revert *aqmint.RevertError
	require.ErrorAs(t, err, &revert)
	assert.Equal(t, aqmint.ErrCodeNoPool, revert.Code)
}
