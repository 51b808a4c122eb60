// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"
)

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	var (
		closeLog    = func() {}
		dumpMetrics = func() {}
	)

	app := cli.App{
		Version:   fullVersion(),
		Name:      "Ledger",
		Usage:     "Account ledger with heaviest chain selection",
		Copyright: "2018 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			dataDirFlag,
			genesisFlag,
			cacheFlag,
			verbosityFlag,
			jsonLogsFlag,
			logFileFlag,
			enableMetricsFlag,
			syncWriteFlag,
		},
		Before: func(ctx *cli.Context) error {
			closeLog = initLogger(ctx)
			dumpMetrics = initMetrics(ctx, os.Stderr)
			return nil
		},
		After: func(ctx *cli.Context) error {
			dumpMetrics()
			closeLog()
			return nil
		},
		Commands: []cli.Command{
			{
				Name:   "head",
				Usage:  "print the head block",
				Action: headAction,
			},
			{
				Name:      "account",
				Usage:     "print an account in the head state",
				ArgsUsage: "<address>",
				Flags:     []cli.Flag{proofFlag},
				Action:    accountAction,
			},
			{
				Name:      "import",
				Usage:     "import blocks from an rlp encoded file",
				ArgsUsage: "<file>",
				Flags:     []cli.Flag{chunkFlag},
				Action:    importAction,
			},
			{
				Name:      "export",
				Usage:     "export the canonical chain to an rlp encoded file",
				ArgsUsage: "<file>",
				Action:    exportAction,
			},
			{
				Name:   "verify",
				Usage:  "verify the head state and recover it if incomplete",
				Action: verifyAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}
