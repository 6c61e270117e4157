package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/aqmint/aqmint-go/faucet"
	"github.com/aqmint/aqmint-go/httpapi"
	"github.com/aqmint/aqmint-go/internal/config"
	"github.com/aqmint/aqmint-go/internal/devnet"
	"github.com/aqmint/aqmint-go/internal/manifest"
)

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// runServer builds a fresh sandbox deployment, writes its manifest and
// serves the HTTP API over it.
func runServer(ctx context.Context) error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)
	gin.SetMode(cfg.GetGinMode())

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}
	if err := sb.Manifest(cfg.ChainID).Save(cfg.ManifestPath); err != nil {
		return err
	}
	logger.Info("sandbox deployed",
		slog.Uint64("chain_id", cfg.ChainID),
		slog.String("manifest", cfg.ManifestPath),
	)

	srv := &httpapi.Server{
		State:      sb.State,
		Collection: sb.Collection,
		Vault:      sb.Vault,
		Faucet:     sb.Faucet,
		Route:      sb.Route(),
		Operator:   devnet.Admin,
		Logger:     logger,
	}
	if cfg.MetricsEnabled {
		srv.Metrics = httpapi.NewMetrics(cfg.MetricsNamespace)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return srv.ListenAndServe(ctx, cfg.ServerHost, cfg.ServerPort)
}

// runDeployTokens records the sandbox token set in the manifest.
func runDeployTokens() error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}
	m := manifest.New(cfg.ChainID)
	m.SetContract(manifest.KeyStable, sb.Stable.Address())
	m.AddToken(sb.Stable.Symbol(), sb.Stable.Address(), sb.Stable.Decimals())
	m.AddToken(sb.WETH.Symbol(), sb.WETH.Address(), sb.WETH.Decimals())
	if err := m.Save(cfg.ManifestPath); err != nil {
		return err
	}
	for _, t := range m.Tokens {
		logger.Info("token deployed",
			slog.String("symbol", t.Symbol),
			slog.String("address", t.Address),
			slog.Int("decimals", int(t.Decimals)),
		)
	}
	return nil
}

// runDeployFaucet records the full contract set in the manifest.
func runDeployFaucet() error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}
	m := sb.Manifest(cfg.ChainID)
	if err := m.Save(cfg.ManifestPath); err != nil {
		return err
	}
	for key, addr := range m.Contracts {
		logger.Info("contract deployed", slog.String("name", key), slog.String("address", addr))
	}
	return nil
}

// runGrantFaucetMinters probes every registered token for faucet
// mintability, reports per-token skips, and extends the distributor's
// minter allowlist.
func runGrantFaucetMinters(minters []string) error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}

	prober := faucet.NewProber(sb.State)
	supported, skipped := prober.Filter(sb.Faucet.Tokens(), sb.Faucet.Address())
	for _, token := range supported {
		logger.Info("token mintable", slog.String("token", token.Hex()))
	}
	for _, skip := range skipped {
		logger.Warn("token skipped",
			slog.String("token", skip.Token.Hex()),
			slog.String("reason", skip.Reason.String()),
		)
	}

	for _, raw := range minters {
		addr, err := parseAddress(raw)
		if err != nil {
			return err
		}
		if err := sb.Faucet.AddMinter(devnet.Admin, addr); err != nil {
			return fmt.Errorf("add minter %s: %w", addr.Hex(), err)
		}
		logger.Info("minter added", slog.String("address", addr.Hex()))
	}
	return nil
}

// runFaucetBatchMint mints test tokens to a recipient. Units mode scales
// by each token's decimals and takes precedence over raw amount mode;
// flags override the FAUCET_* environment.
func runFaucetBatchMint(to, amount, units string) error {
	cfg := config.Load()
	logger := newLogger(cfg.LogLevel)

	if to == "" {
		to = cfg.FaucetTo
	}
	if amount == "" {
		amount = cfg.FaucetAmount
	}
	if units == "" {
		units = cfg.FaucetUnits
	}
	recipient, err := parseAddress(to)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if amount == "" && units == "" {
		return errors.New("one of --amount/FAUCET_AMOUNT or --units/FAUCET_UNITS must be set")
	}

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}

	// Probe first so one incompatible token cannot abort the batch.
	prober := faucet.NewProber(sb.State)
	subset, skipped := prober.Filter(sb.Faucet.Tokens(), sb.Faucet.Address())
	for _, skip := range skipped {
		logger.Warn("token skipped",
			slog.String("token", skip.Token.Hex()),
			slog.String("reason", skip.Reason.String()),
		)
	}

	if units != "" {
		n, ok := new(big.Int).SetString(units, 10)
		if !ok {
			return fmt.Errorf("invalid units %q", units)
		}
		amounts, err := prober.UnitAmounts(subset, n)
		if err != nil {
			return err
		}
		if err := sb.Faucet.BatchMintWithAmounts(devnet.Admin, recipient, subset, amounts); err != nil {
			return err
		}
	} else {
		n, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return fmt.Errorf("invalid amount %q", amount)
		}
		if err := sb.Faucet.BatchMintSameSubset(devnet.Admin, recipient, n, subset); err != nil {
			return err
		}
	}

	for _, addr := range subset {
		tok, ok := sb.State.Token(addr)
		if !ok {
			continue
		}
		logger.Info("minted",
			slog.String("token", tok.Symbol()),
			slog.String("to", recipient.Hex()),
			slog.String("balance", tok.BalanceOf(recipient).String()),
		)
	}
	return nil
}

// runVaultAddress derives and prints the vault address for a pair.
func runVaultAddress(owner, beneficiary string) error {
	cfg := config.Load()

	ownerAddr, err := parseAddress(owner)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	beneficiaryAddr, err := parseAddress(beneficiary)
	if err != nil {
		return fmt.Errorf("beneficiary: %w", err)
	}

	sb, err := devnet.New(cfg.ChainID)
	if err != nil {
		return fmt.Errorf("assemble sandbox: %w", err)
	}
	fmt.Println(sb.Vault.VaultAddress(ownerAddr, beneficiaryAddr).Hex())
	return nil
}
