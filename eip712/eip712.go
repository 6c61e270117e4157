// Package eip712 implements EIP-712 typed-data hashing, ECDSA signing and
// signer recovery for the spending authorizations consumed by the AQ
// settlement core.
package eip712

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// Domain is the EIP-712 domain separator.
type Domain struct {
	Name              string
	Version           string
	ChainID           *big.Int
	VerifyingContract common.Address
}

// Field is a single field of an EIP-712 struct type.
type Field struct {
	Name string
	Type string
}

// HashTypedData computes the EIP-712 digest
// keccak256("\x19\x01" || domainSeparator || structHash) for the given
// primary type and message.
func HashTypedData(
	domain Domain,
	types map[string][]Field,
	primaryType string,
	message map[string]interface{},
) ([]byte, error) {
	typedData := apitypes.TypedData{
		Types:       make(apitypes.Types),
		PrimaryType: primaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           (*math.HexOrDecimal256)(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: message,
	}

	for typeName, fields := range types {
		typedFields := make([]apitypes.Type, len(fields))
		for i, field := range fields {
			typedFields[i] = apitypes.Type{Name: field.Name, Type: field.Type}
		}
		typedData.Types[typeName] = typedFields
	}

	if _, exists := typedData.Types["EIP712Domain"]; !exists {
		typedData.Types["EIP712Domain"] = []apitypes.Type{
			{Name: "name", Type: "string"},
			{Name: "version", Type: "string"},
			{Name: "chainId", Type: "uint256"},
			{Name: "verifyingContract", Type: "address"},
		}
	}

	structHash, err := typedData.HashStruct(typedData.PrimaryType, typedData.Message)
	if err != nil {
		return nil, fmt.Errorf("failed to hash struct: %w", err)
	}

	domainSeparator, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return nil, fmt.Errorf("failed to hash domain: %w", err)
	}

	rawData := []byte{0x19, 0x01}
	rawData = append(rawData, domainSeparator...)
	rawData = append(rawData, structHash...)
	return crypto.Keccak256(rawData), nil
}

// SignDigest signs a 32-byte digest and returns Ethereum-style (v, r, s)
// components with v in {27, 28}.
func SignDigest(digest []byte, key *ecdsa.PrivateKey) (v byte, r, s common.Hash, err error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return 0, common.Hash{}, common.Hash{}, fmt.Errorf("failed to sign: %w", err)
	}
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	return sig[64] + 27, r, s, nil
}

// RecoverSigner recovers the address that produced (v, r, s) over digest.
// Both raw (0/1) and Ethereum (27/28) recovery ids are accepted.
func RecoverSigner(digest []byte, v byte, r, s common.Hash) (common.Address, error) {
	if v >= 27 {
		v -= 27
	}
	sig := make([]byte, 65)
	copy(sig[0:32], r[:])
	copy(sig[32:64], s[:])
	sig[64] = v

	pubKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pubKey), nil
}
