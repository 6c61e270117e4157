// Package manifest reads and writes the deployment-address manifest the
// ops commands share: each deploy step records the addresses it created
// so later steps and the server can find them. Documents are validated
// against a JSON schema before use, so a truncated or hand-mangled
// manifest fails loudly instead of yielding zero addresses.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/xeipuuv/gojsonschema"
)

const schemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["chainId", "contracts"],
  "properties": {
    "chainId": {"type": "integer", "minimum": 1},
    "contracts": {
      "type": "object",
      "additionalProperties": {
        "type": "string",
        "pattern": "^0x[0-9a-fA-F]{40}$"
      }
    },
    "tokens": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["symbol", "address", "decimals"],
        "properties": {
          "symbol": {"type": "string", "minLength": 1},
          "address": {"type": "string", "pattern": "^0x[0-9a-fA-F]{40}$"},
          "decimals": {"type": "integer", "minimum": 0, "maximum": 255}
        }
      }
    }
  }
}`

// Well-known contract keys.
const (
	KeyStable      = "stable"
	KeyFaucet      = "faucet"
	KeyCollection  = "collection"
	KeyVaultEngine = "vaultEngine"
	KeyBeacon      = "beacon"
	KeyLendingPool = "lendingPool"
)

// TokenEntry records one deployed test token.
type TokenEntry struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
}

// Manifest is the on-disk deployment record.
type Manifest struct {
	ChainID   uint64            `json:"chainId"`
	Contracts map[string]string `json:"contracts"`
	Tokens    []TokenEntry      `json:"tokens,omitempty"`
}

// New creates an empty manifest for a chain.
func New(chainID uint64) *Manifest {
	return &Manifest{ChainID: chainID, Contracts: make(map[string]string)}
}

// SetContract records a contract address under a well-known key.
func (m *Manifest) SetContract(key string, addr common.Address) {
	if m.Contracts == nil {
		m.Contracts = make(map[string]string)
	}
	m.Contracts[key] = addr.Hex()
}

// Contract looks up a contract address by key.
func (m *Manifest) Contract(key string) (common.Address, bool) {
	hex, ok := m.Contracts[key]
	if !ok {
		return common.Address{}, false
	}
	return common.HexToAddress(hex), true
}

// AddToken appends a token entry.
func (m *Manifest) AddToken(symbol string, addr common.Address, decimals uint8) {
	m.Tokens = append(m.Tokens, TokenEntry{Symbol: symbol, Address: addr.Hex(), Decimals: decimals})
}

// TokenAddresses returns the token addresses in manifest order.
func (m *Manifest) TokenAddresses() []common.Address {
	out := make([]common.Address, len(m.Tokens))
	for i, t := range m.Tokens {
		out[i] = common.HexToAddress(t.Address)
	}
	return out
}

// Validate checks raw JSON against the manifest schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schemaJSON),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("invalid manifest: %s", errs[0].String())
		}
		return fmt.Errorf("invalid manifest")
	}
	return nil
}

// Parse validates and decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Save writes the manifest to path, pretty-printed for hand inspection.
func (m *Manifest) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := Validate(data); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}
