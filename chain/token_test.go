package chain

import (
	"crypto/ecdsa"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqmint/aqmint-go/eip712"
)

func TestMintRequiresMinterRole(t *testing.T) {
	st := NewState(31337)
	tok := st.CreateToken("Wrapped Ether", "WETH", 18, alice)

	err := tok.Mint(bob, bob, big.NewInt(100))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing role MINTER_ROLE")

	require.NoError(t, tok.GrantRole(alice, RoleMinter, bob))
	require.NoError(t, tok.Mint(bob, bob, big.NewInt(100)))
	assert.Equal(t, big.NewInt(100), tok.BalanceOf(bob))
	assert.Equal(t, big.NewInt(100), tok.TotalSupply())
}

func TestMintRejectsNonPositiveAmount(t *testing.T) {
	st := NewState(31337)
	tok := st.CreateToken("Wrapped Ether", "WETH", 18, alice)
	require.NoError(t, tok.GrantRole(alice, RoleMinter, alice))

	for _, amount := range []*big.Int{big.NewInt(0), big.NewInt(-5_000)} {
		err := tok.Mint(alice, bob, amount)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Zero value")
	}
	assert.Equal(t, big.NewInt(0), tok.BalanceOf(bob))
	assert.Equal(t, big.NewInt(0), tok.TotalSupply())
}

func TestGrantRoleRequiresAdmin(t *testing.T) {
	st := NewState(31337)
	tok := st.CreateToken("Wrapped Ether", "WETH", 18, alice)

	err := tok.GrantRole(bob, RoleMinter, bob)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing role DEFAULT_ADMIN_ROLE")
}

func TestWithoutAccessControl(t *testing.T) {
	st := NewState(31337)
	tok := st.CreateToken("Kaia", "KAIA", 18, alice, WithoutAccessControl())

	assert.False(t, tok.SupportsAccessControl())
	_, ok := tok.MinterRole()
	assert.False(t, ok)
	require.Error(t, tok.Mint(alice, bob, big.NewInt(1)))
	require.Error(t, tok.GrantRole(alice, RoleMinter, bob))
}

func TestTransferFromDrawsDownAllowance(t *testing.T) {
	st := NewState(31337)
	tok := st.CreateToken("Tether USD", "USDT", 6, alice, WithInitialSupply(big.NewInt(1000), alice))

	spender := common.HexToAddress("0x00000000000000000000000000000000000000c3")
	tok.Approve(alice, spender, big.NewInt(600))

	require.NoError(t, tok.TransferFrom(spender, alice, bob, big.NewInt(400)))
	assert.Equal(t, big.NewInt(200), tok.Allowance(alice, spender))
	assert.Equal(t, big.NewInt(400), tok.BalanceOf(bob))

	err := tok.TransferFrom(spender, alice, bob, big.NewInt(300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient allowance")
}

func signPermit(t *testing.T, st *State, tok *Token, key *ecdsaKey, spender common.Address, value, deadline *big.Int) (byte, common.Hash, common.Hash) {
	t.Helper()
	digest, err := eip712.PermitDigest(tok.Name(), st.ChainID(), tok.Address(), key.addr, spender, value, tok.Nonces(key.addr), deadline)
	require.NoError(t, err)
	v, r, s, err := eip712.SignDigest(digest, key.key)
	require.NoError(t, err)
	return v, r, s
}

type ecdsaKey struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

func newKey(t *testing.T) *ecdsaKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return &ecdsaKey{key: key, addr: crypto.PubkeyToAddress(key.PublicKey)}
}

func TestPermitGrantsExactAllowanceOnce(t *testing.T) {
	st := NewState(31337)
	owner := newKey(t)
	tok := st.CreateToken("TokenIn", "TIN", 18, alice, WithInitialSupply(big.NewInt(1_000_000), owner.addr))

	spender := common.HexToAddress("0x00000000000000000000000000000000000000d4")
	value := big.NewInt(2_000)
	now := time.Unix(1_700_000_000, 0)
	deadline := big.NewInt(now.Unix() + 3600)

	v, r, s := signPermit(t, st, tok, owner, spender, value, deadline)
	require.NoError(t, tok.Permit(owner.addr, spender, value, deadline, v, r, s, now))
	assert.Equal(t, value, tok.Allowance(owner.addr, spender))
	assert.Equal(t, big.NewInt(1), tok.Nonces(owner.addr))

	// The nonce advanced, so replaying the same signature must fail.
	err := tok.Permit(owner.addr, spender, value, deadline, v, r, s, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestPermitExpired(t *testing.T) {
	st := NewState(31337)
	owner := newKey(t)
	tok := st.CreateToken("TokenIn", "TIN", 18, alice)

	now := time.Unix(1_700_000_000, 0)
	deadline := big.NewInt(now.Unix() - 1)
	v, r, s := signPermit(t, st, tok, owner, alice, big.NewInt(1), deadline)

	err := tok.Permit(owner.addr, alice, big.NewInt(1), deadline, v, r, s, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired deadline")
}

func TestPermitWrongSigner(t *testing.T) {
	st := NewState(31337)
	owner := newKey(t)
	mallory := newKey(t)
	tok := st.CreateToken("TokenIn", "TIN", 18, alice)

	now := time.Unix(1_700_000_000, 0)
	deadline := big.NewInt(now.Unix() + 3600)
	v, r, s := signPermit(t, st, tok, mallory, alice, big.NewInt(1), deadline)

	err := tok.Permit(owner.addr, alice, big.NewInt(1), deadline, v, r, s, now)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid signature")
}
