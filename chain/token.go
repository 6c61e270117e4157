package chain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/eip712"
)

// Well-known roles. RoleDefaultAdmin is the zero hash by the
// AccessControl convention.
var (
	RoleDefaultAdmin = common.Hash{}
	RoleMinter       = crypto.Keccak256Hash([]byte("MINTER_ROLE"))
)

// Token is an ERC-20 style ledger with EIP-2612 permit support and
// optional AccessControl role-based minting. Wrapped-native style tokens
// are created without AccessControl; capability probing distinguishes
// them from mintable tokens.
type Token struct {
	chainID *big.Int
	addr    common.Address

	name          string
	symbol        string
	decimals      uint8
	accessControl bool

	totalSupply  *big.Int
	balances     map[common.Address]*big.Int
	allowances   map[common.Address]map[common.Address]*big.Int
	permitNonces map[common.Address]*big.Int
	roles        map[common.Hash]map[common.Address]bool
}

// TokenOption configures token creation.
type TokenOption func(*Token)

// WithInitialSupply mints amount to holder at creation time.
func WithInitialSupply(amount *big.Int, holder common.Address) TokenOption {
	return func(t *Token) {
		t.totalSupply.Add(t.totalSupply, amount)
		t.credit(holder, amount)
	}
}

// WithoutAccessControl creates a token that exposes no role interface,
// like a wrapped-native token. Such tokens cannot be minted through the
// faucet and are skipped by capability probing.
func WithoutAccessControl() TokenOption {
	return func(t *Token) {
		t.accessControl = false
		t.roles = nil
	}
}

// CreateToken deploys a new token ledger at the next contract address.
// The admin receives DEFAULT_ADMIN_ROLE and may grant MINTER_ROLE.
func (s *State) CreateToken(name, symbol string, decimals uint8, admin common.Address, opts ...TokenOption) *Token {
	return s.CreateTokenAt(s.AllocAddress(), name, symbol, decimals, admin, opts...)
}

// CreateTokenAt deploys a token ledger at a known address. Used when
// rehydrating a ledger from a deployment manifest.
func (s *State) CreateTokenAt(addr common.Address, name, symbol string, decimals uint8, admin common.Address, opts ...TokenOption) *Token {
	t := &Token{
		chainID:       s.chainID,
		addr:          addr,
		name:          name,
		symbol:        symbol,
		decimals:      decimals,
		accessControl: true,
		totalSupply:   new(big.Int),
		balances:      make(map[common.Address]*big.Int),
		allowances:    make(map[common.Address]map[common.Address]*big.Int),
		permitNonces:  make(map[common.Address]*big.Int),
		roles:         make(map[common.Hash]map[common.Address]bool),
	}
	t.grant(RoleDefaultAdmin, admin)
	for _, opt := range opts {
		opt(t)
	}
	s.tokens[addr] = t
	s.SetCode(addr, []byte{0x60, 0x80, 0x60, 0x40})
	return t
}

// Token looks up a deployed token ledger.
func (s *State) Token(addr common.Address) (*Token, bool) {
	t, ok := s.tokens[addr]
	return t, ok
}

func (t *Token) clone() *Token {
	c := &Token{
		chainID:       t.chainID,
		addr:          t.addr,
		name:          t.name,
		symbol:        t.symbol,
		decimals:      t.decimals,
		accessControl: t.accessControl,
		totalSupply:   new(big.Int).Set(t.totalSupply),
		balances:      make(map[common.Address]*big.Int, len(t.balances)),
		allowances:    make(map[common.Address]map[common.Address]*big.Int, len(t.allowances)),
		permitNonces:  make(map[common.Address]*big.Int, len(t.permitNonces)),
	}
	for addr, bal := range t.balances {
		c.balances[addr] = new(big.Int).Set(bal)
	}
	for owner, spenders := range t.allowances {
		inner := make(map[common.Address]*big.Int, len(spenders))
		for spender, amount := range spenders {
			inner[spender] = new(big.Int).Set(amount)
		}
		c.allowances[owner] = inner
	}
	for owner, nonce := range t.permitNonces {
		c.permitNonces[owner] = new(big.Int).Set(nonce)
	}
	if t.roles != nil {
		c.roles = make(map[common.Hash]map[common.Address]bool, len(t.roles))
		for role, members := range t.roles {
			inner := make(map[common.Address]bool, len(members))
			for member, ok := range members {
				inner[member] = ok
			}
			c.roles[role] = inner
		}
	}
	return c
}

// restoreFrom adopts a clone's ledger data, in place. The clone's maps
// are already deep copies, so ownership transfers wholesale.
func (t *Token) restoreFrom(c *Token) {
	t.totalSupply = c.totalSupply
	t.balances = c.balances
	t.allowances = c.allowances
	t.permitNonces = c.permitNonces
	t.roles = c.roles
}

// Address returns the token's contract address.
func (t *Token) Address() common.Address { return t.addr }

// Name returns the token name used in the permit domain.
func (t *Token) Name() string { return t.name }

// Symbol returns the token symbol.
func (t *Token) Symbol() string { return t.symbol }

// Decimals returns the token's decimal count.
func (t *Token) Decimals() uint8 { return t.decimals }

// TotalSupply returns a copy of the total supply.
func (t *Token) TotalSupply() *big.Int { return new(big.Int).Set(t.totalSupply) }

// BalanceOf returns a copy of the account balance.
func (t *Token) BalanceOf(addr common.Address) *big.Int {
	if bal, ok := t.balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

// Allowance returns a copy of the spender's remaining allowance.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	if inner, ok := t.allowances[owner]; ok {
		if amount, ok := inner[spender]; ok {
			return new(big.Int).Set(amount)
		}
	}
	return new(big.Int)
}

// Nonces returns the owner's current permit nonce.
func (t *Token) Nonces(owner common.Address) *big.Int {
	if nonce, ok := t.permitNonces[owner]; ok {
		return new(big.Int).Set(nonce)
	}
	return new(big.Int)
}

// SupportsAccessControl reports whether the token exposes the role
// interface at all.
func (t *Token) SupportsAccessControl() bool { return t.accessControl }

// MinterRole returns the minter role identifier. ok is false for tokens
// without AccessControl, mirroring a missing MINTER_ROLE() selector.
func (t *Token) MinterRole() (common.Hash, bool) {
	if !t.accessControl {
		return common.Hash{}, false
	}
	return RoleMinter, true
}

// HasRole reports role membership. Always false without AccessControl.
func (t *Token) HasRole(role common.Hash, account common.Address) bool {
	if !t.accessControl {
		return false
	}
	members, ok := t.roles[role]
	return ok && members[account]
}

func (t *Token) grant(role common.Hash, account common.Address) {
	if t.roles == nil {
		return
	}
	members, ok := t.roles[role]
	if !ok {
		members = make(map[common.Address]bool)
		t.roles[role] = members
	}
	members[account] = true
}

// GrantRole grants a role. Only DEFAULT_ADMIN_ROLE holders may grant.
func (t *Token) GrantRole(caller common.Address, role common.Hash, account common.Address) error {
	if !t.accessControl {
		return aqmint.Revert(aqmint.ErrCodeUnauthorized, "token does not support AccessControl")
	}
	if !t.HasRole(RoleDefaultAdmin, caller) {
		return aqmint.Revertf(aqmint.ErrCodeUnauthorized, "account %s is missing role DEFAULT_ADMIN_ROLE", caller.Hex())
	}
	t.grant(role, account)
	return nil
}

func (t *Token) credit(addr common.Address, amount *big.Int) {
	bal, ok := t.balances[addr]
	if !ok {
		bal = new(big.Int)
		t.balances[addr] = bal
	}
	bal.Add(bal, amount)
}

// Mint creates amount new units for to. The caller must hold MINTER_ROLE.
func (t *Token) Mint(caller, to common.Address, amount *big.Int) error {
	if !t.accessControl {
		return aqmint.Revert(aqmint.ErrCodeUnauthorized, "token does not support role-based minting")
	}
	if !t.HasRole(RoleMinter, caller) {
		return aqmint.Revertf(aqmint.ErrCodeUnauthorized, "account %s is missing role MINTER_ROLE", caller.Hex())
	}
	if aqmint.IsZeroAddress(to) {
		return aqmint.Revert(aqmint.ErrCodeZeroAddress, "Recipient is zero")
	}
	if amount == nil || amount.Sign() <= 0 {
		return aqmint.Revert(aqmint.ErrCodeZeroValue, "Zero value")
	}
	t.totalSupply.Add(t.totalSupply, amount)
	t.credit(to, amount)
	return nil
}

// Transfer moves amount from from to to.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return aqmint.Revert(aqmint.ErrCodeZeroValue, "negative amount")
	}
	bal := t.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return aqmint.Revert(aqmint.ErrCodeInsufficient, "transfer amount exceeds balance")
	}
	bal.Sub(bal, amount)
	t.credit(to, amount)
	return nil
}

// Approve sets the spender's allowance to exactly amount.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) {
	inner, ok := t.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*big.Int)
		t.allowances[owner] = inner
	}
	inner[spender] = new(big.Int).Set(amount)
}

// TransferFrom draws down the spender's allowance and moves the funds.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	allowance := t.Allowance(from, spender)
	if allowance.Cmp(amount) < 0 {
		return aqmint.Revert(aqmint.ErrCodeInsufficient, "insufficient allowance")
	}
	if err := t.Transfer(from, to, amount); err != nil {
		return err
	}
	t.Approve(from, spender, allowance.Sub(allowance, amount))
	return nil
}

// Permit consumes an EIP-2612 spending authorization: it validates the
// deadline, recovers the signer over the token's current nonce for owner
// and, on success, advances the nonce and sets the spender's allowance to
// exactly value. A given (owner, nonce) pair validates at most once.
func (t *Token) Permit(
	owner, spender common.Address,
	value, deadline *big.Int,
	v byte, r, s common.Hash,
	now time.Time,
) error {
	if deadline.Cmp(big.NewInt(now.Unix())) < 0 {
		return aqmint.Revert(aqmint.ErrCodePermitExpired, "ERC20Permit: expired deadline")
	}

	nonce := t.Nonces(owner)
	digest, err := eip712.PermitDigest(t.name, t.chainID, t.addr, owner, spender, value, nonce, deadline)
	if err != nil {
		return aqmint.Revert(aqmint.ErrCodeInvalidSignature, "ERC20Permit: invalid signature")
	}

	signer, err := eip712.RecoverSigner(digest, v, r, s)
	if err != nil || signer != owner {
		return aqmint.Revert(aqmint.ErrCodeInvalidSignature, "ERC20Permit: invalid signature")
	}

	t.permitNonces[owner] = nonce.Add(nonce, big.NewInt(1))
	t.Approve(owner, spender, value)
	return nil
}
