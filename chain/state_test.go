package chain

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
)

func TestTransferNative(t *testing.T) {
	st := NewState(31337)
	st.Credit(alice, big.NewInt(1000))

	require.NoError(t, st.TransferNative(alice, bob, big.NewInt(400)))
	assert.Equal(t, big.NewInt(600), st.NativeBalance(alice))
	assert.Equal(t, big.NewInt(400), st.NativeBalance(bob))

	err := st.TransferNative(alice, bob, big.NewInt(601))
	require.Error(t, err)
}

func TestTransactRollsBackEverything(t *testing.T) {
	st := NewState(31337)
	st.Credit(alice, big.NewInt(1000))
	tok := st.CreateToken("Tether USD", "USDT", 6, alice, WithInitialSupply(big.NewInt(500), alice))

	boom := errors.New("boom")
	var stray common.Address
	err := st.Transact(func() error {
		require.NoError(t, st.TransferNative(alice, bob, big.NewInt(999)))
		require.NoError(t, tok.Transfer(alice, bob, big.NewInt(500)))
		tok.Approve(alice, bob, big.NewInt(123))
		st.SetCode(bob, []byte{0x01})
		st.Emit(eventNamed{})
		stray = st.CreateToken("Stray", "STR", 18, alice).Address()
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, ok := st.Token(stray)
	assert.False(t, ok)

	assert.Equal(t, big.NewInt(1000), st.NativeBalance(alice))
	assert.Equal(t, big.NewInt(0), st.NativeBalance(bob))
	assert.Equal(t, big.NewInt(500), tokenOf(t, st, tok.Address()).BalanceOf(alice))
	assert.Equal(t, big.NewInt(0), tokenOf(t, st, tok.Address()).Allowance(alice, bob))
	// References held across the rollback observe the restored state too.
	assert.Equal(t, big.NewInt(500), tok.BalanceOf(alice))
	assert.False(t, st.HasCode(bob))
	assert.Empty(t, st.Events())
}

func TestTransactCommits(t *testing.T) {
	st := NewState(31337)
	st.Credit(alice, big.NewInt(1000))

	require.NoError(t, st.Transact(func() error {
		st.Emit(eventNamed{})
		return st.TransferNative(alice, bob, big.NewInt(250))
	}))

	assert.Equal(t, big.NewInt(750), st.NativeBalance(alice))
	require.Len(t, st.Events(), 1)
	assert.Equal(t, "test", st.Events()[0].Name())
}

type eventNamed struct{}

func (eventNamed) Name() string { return "test" }

func tokenOf(t *testing.T, st *State, addr common.Address) *Token {
	t.Helper()
	tok, ok := st.Token(addr)
	require.True(t, ok)
	return tok
}

func TestDeriveCreate2IsDeterministic(t *testing.T) {
	deployer := common.HexToAddress("0x00000000000000000000000000000000000000f1")
	salt := common.HexToHash("0x01")
	initCode := []byte{0xde, 0xad, 0xbe, 0xef}

	a1 := DeriveCreate2(deployer, salt, initCode)
	a2 := DeriveCreate2(deployer, salt, initCode)
	assert.Equal(t, a1, a2)

	// Any input change moves the address.
	assert.NotEqual(t, a1, DeriveCreate2(deployer, common.HexToHash("0x02"), initCode))
	assert.NotEqual(t, a1, DeriveCreate2(deployer, salt, []byte{0xde, 0xad}))
	assert.NotEqual(t, a1, DeriveCreate2(bob, salt, initCode))
}

func TestAllocAddressAdvances(t *testing.T) {
	st := NewState(31337)
	a1 := st.AllocAddress()
	a2 := st.AllocAddress()
	assert.NotEqual(t, a1, a2)
}
