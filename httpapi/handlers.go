package httpapi

import (
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	aqmint "github.com/aqmint/aqmint-go"
	"github.com/aqmint/aqmint-go/feesplit"
	"github.com/aqmint/aqmint-go/permit"
	"github.com/aqmint/aqmint-go/vault"
)

type permitDTO struct {
	Owner    string `json:"owner" binding:"required"`
	Spender  string `json:"spender" binding:"required"`
	Value    string `json:"value" binding:"required"`
	Deadline int64  `json:"deadline" binding:"required"`
	V        uint8  `json:"v"`
	R        string `json:"r" binding:"required"`
	S        string `json:"s" binding:"required"`
}

func (p *permitDTO) toRequest() (permit.Request, error) {
	owner, err := parseAddress(p.Owner)
	if err != nil {
		return permit.Request{}, err
	}
	spender, err := parseAddress(p.Spender)
	if err != nil {
		return permit.Request{}, err
	}
	value, err := parseAmount(p.Value)
	if err != nil {
		return permit.Request{}, err
	}
	return permit.Request{
		Owner:    owner,
		Spender:  spender,
		Value:    value,
		Deadline: big.NewInt(p.Deadline),
		V:        p.V,
		R:        common.HexToHash(p.R),
		S:        common.HexToHash(p.S),
	}, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address: " + s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.New("invalid amount: " + s)
	}
	return v, nil
}

// writeError maps engine errors to HTTP responses: a RevertError is the
// caller's problem (422 with the code/reason pair), anything else is
// ours (500).
func (s *Server) writeError(c *gin.Context, err error) {
	var revert *aqmint.RevertError
	if errors.As(err, &revert) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"code": revert.Code, "reason": revert.Reason})
		return
	}
	s.Logger.Error("internal error",
		slog.String("request_id", c.GetString(requestIDKey)),
		slog.Any("error", err),
	)
	c.JSON(http.StatusInternalServerError, gin.H{"code": "internal", "reason": "internal error"})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "bad_request", "reason": err.Error()})
}

// GET /v1/vaults/address?owner=&beneficiary=
func (s *Server) vaultAddressHandler(c *gin.Context) {
	owner, err := parseAddress(c.Query("owner"))
	if err != nil {
		badRequest(c, err)
		return
	}
	beneficiary, err := parseAddress(c.Query("beneficiary"))
	if err != nil {
		badRequest(c, err)
		return
	}
	addr := s.Vault.VaultAddress(owner, beneficiary)
	c.JSON(http.StatusOK, gin.H{
		"address":  addr.Hex(),
		"deployed": s.Vault.DeployedState(addr) == vault.StateDeployed,
	})
}

type depositRequest struct {
	Owner       string    `json:"owner" binding:"required"`
	Beneficiary string    `json:"beneficiary" binding:"required"`
	ShareBps    uint16    `json:"share_bps"`
	Permit      permitDTO `json:"permit" binding:"required"`
}

// POST /v1/vaults/deposits
func (s *Server) depositHandler(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	owner, err := parseAddress(req.Owner)
	if err != nil {
		badRequest(c, err)
		return
	}
	beneficiary, err := parseAddress(req.Beneficiary)
	if err != nil {
		badRequest(c, err)
		return
	}
	share, err := feesplit.NewBasisPoints(req.ShareBps)
	if err != nil {
		badRequest(c, err)
		return
	}
	preq, err := req.Permit.toRequest()
	if err != nil {
		badRequest(c, err)
		return
	}

	addr, err := s.Vault.Deposit(owner, beneficiary, share, preq, time.Now())
	s.Metrics.countDeposit(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vault": addr.Hex()})
}

type mintNativeRequest struct {
	Payer string `json:"payer" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// POST /v1/mints/native
func (s *Server) mintNativeHandler(c *gin.Context) {
	var req mintNativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		badRequest(c, err)
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		badRequest(c, err)
		return
	}

	id, err := s.Collection.MintWithNative(payer, value, s.Route, time.Now())
	s.Metrics.countMint("native", err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token_id": id})
}

type mintERC20Request struct {
	Payer  string    `json:"payer" binding:"required"`
	Token  string    `json:"token" binding:"required"`
	Permit permitDTO `json:"permit" binding:"required"`
}

// POST /v1/mints/erc20
func (s *Server) mintERC20Handler(c *gin.Context) {
	var req mintERC20Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	payer, err := parseAddress(req.Payer)
	if err != nil {
		badRequest(c, err)
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		badRequest(c, err)
		return
	}
	preq, err := req.Permit.toRequest()
	if err != nil {
		badRequest(c, err)
		return
	}

	id, err := s.Collection.MintWithERC20(payer, token, preq, s.Route, time.Now())
	s.Metrics.countMint("erc20", err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token_id": id})
}

type faucetBatchMintRequest struct {
	To     string   `json:"to" binding:"required"`
	Amount string   `json:"amount"`
	Units  string   `json:"units"`
	Tokens []string `json:"tokens"`
}

// POST /v1/faucet/batch-mints
//
// Exactly one of amount (raw, per token) or units (whole tokens, scaled
// by each token's decimals) must be set. An optional token subset limits
// the batch; units mode covers the full registry only.
func (s *Server) faucetBatchMintHandler(c *gin.Context) {
	var req faucetBatchMintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	to, err := parseAddress(req.To)
	if err != nil {
		badRequest(c, err)
		return
	}
	if (req.Amount == "") == (req.Units == "") {
		badRequest(c, errors.New("exactly one of amount or units must be set"))
		return
	}

	if req.Units != "" {
		if len(req.Tokens) > 0 {
			badRequest(c, errors.New("units mode does not accept a token subset"))
			return
		}
		units, err := parseAmount(req.Units)
		if err != nil {
			badRequest(c, err)
			return
		}
		err = s.Faucet.BatchMintSameUnits(s.Operator, to, units)
		s.Metrics.countFaucet(err)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"minted": len(s.Faucet.Tokens())})
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		badRequest(c, err)
		return
	}
	if len(req.Tokens) > 0 {
		subset := make([]common.Address, 0, len(req.Tokens))
		for _, raw := range req.Tokens {
			addr, err := parseAddress(raw)
			if err != nil {
				badRequest(c, err)
				return
			}
			subset = append(subset, addr)
		}
		err = s.Faucet.BatchMintSameSubset(s.Operator, to, amount, subset)
		s.Metrics.countFaucet(err)
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"minted": len(subset)})
		return
	}

	err = s.Faucet.BatchMintSame(s.Operator, to, amount)
	s.Metrics.countFaucet(err)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"minted": len(s.Faucet.Tokens())})
}

// GET /v1/tokens/:id
func (s *Server) tokenHandler(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, errors.New("invalid token id"))
		return
	}
	owner, ok := s.Collection.OwnerOf(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "reason": "unknown token id"})
		return
	}
	resp := gin.H{"token_id": id, "owner": owner.Hex()}
	if rec, ok := s.Collection.Record(id); ok {
		resp["record"] = gin.H{
			"payer":       rec.Payer.Hex(),
			"creator":     rec.Creator.Hex(),
			"gross_value": rec.GrossValue.String(),
			"fee_amount":  rec.FeeAmount.String(),
			"timestamp":   rec.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}
