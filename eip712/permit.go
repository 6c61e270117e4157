package eip712

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// PermitTypes returns the EIP-2612 Permit type definitions.
func PermitTypes() map[string][]Field {
	return map[string][]Field{
		"EIP712Domain": {
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		},
		"Permit": {
			{Name: "owner", Type: "address"},
			{Name: "spender", Type: "address"},
			{Name: "value", Type: "uint256"},
			{Name: "nonce", Type: "uint256"},
			{Name: "deadline", Type: "uint256"},
		},
	}
}

// PermitDigest computes the EIP-2612 permit digest for a token. The domain
// version is fixed at "1", matching the ERC20Permit convention.
func PermitDigest(
	tokenName string,
	chainID *big.Int,
	token common.Address,
	owner, spender common.Address,
	value, nonce, deadline *big.Int,
) ([]byte, error) {
	domain := Domain{
		Name:              tokenName,
		Version:           "1",
		ChainID:           chainID,
		VerifyingContract: token,
	}

	message := map[string]interface{}{
		"owner":    owner.Hex(),
		"spender":  spender.Hex(),
		"value":    value,
		"nonce":    nonce,
		"deadline": deadline,
	}

	return HashTypedData(domain, PermitTypes(), "Permit", message)
}
