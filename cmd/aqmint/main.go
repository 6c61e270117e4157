// Package main provides the aqmint CLI: the ops surface over the
// in-process sandbox deployment (server, deploys, faucet operations and
// vault address derivation).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:    "aqmint",
		Usage:   "AQ minting and vault settlement sandbox",
		Version: "1.0.0",
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server over a fresh sandbox deployment",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runServer(ctx)
				},
			},
			{
				Name:  "deploy-tokens",
				Usage: "Deploy the test token set and record it in the manifest",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runDeployTokens()
				},
			},
			{
				Name:  "deploy-faucet",
				Usage: "Deploy the faucet and core contracts and record them in the manifest",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runDeployFaucet()
				},
			},
			{
				Name:  "grant-faucet-minters",
				Usage: "Probe token capabilities and extend the faucet minter allowlist",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "minter",
						Aliases: []string{"m"},
						Usage:   "Address to add to the faucet minter allowlist (repeatable)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runGrantFaucetMinters(cmd.StringSlice("minter"))
				},
			},
			{
				Name:  "faucet-batch-mint",
				Usage: "Batch mint test tokens (recipient and amount/units from flags or FAUCET_* env)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: "Recipient address (default: FAUCET_TO)",
					},
					&cli.StringFlag{
						Name:  "amount",
						Usage: "Raw amount per token (default: FAUCET_AMOUNT)",
					},
					&cli.StringFlag{
						Name:  "units",
						Usage: "Whole units per token, scaled by decimals (default: FAUCET_UNITS; takes precedence over amount)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runFaucetBatchMint(cmd.String("to"), cmd.String("amount"), cmd.String("units"))
				},
			},
			{
				Name:  "vault-address",
				Usage: "Derive the vault address for an (owner, beneficiary) pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "owner",
						Required: true,
						Usage:    "Vault owner address",
					},
					&cli.StringFlag{
						Name:     "beneficiary",
						Required: true,
						Usage:    "Vault beneficiary address",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runVaultAddress(cmd.String("owner"), cmd.String("beneficiary"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
