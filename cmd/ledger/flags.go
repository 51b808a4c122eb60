// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for block-chain databases",
	}
	genesisFlag = cli.StringFlag{
		Name:  "genesis",
		Usage: "path to a custom genesis YAML file, the devnet genesis is used if omitted",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 1024,
		Usage: "megabytes of ram allocated to trie nodes cache",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	logFileFlag = cli.StringFlag{
		Name:  "log-file",
		Usage: "write logs to a rotated file instead of stderr",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "collect metrics and dump them on exit",
	}
	syncWriteFlag = cli.BoolFlag{
		Name:  "sync-write",
		Usage: "fsync every database write",
	}
	proofFlag = cli.BoolFlag{
		Name:  "proof",
		Usage: "print the merkle proof of the account against the head state root",
	}
	chunkFlag = cli.IntFlag{
		Name:  "chunk",
		Value: 256,
		Usage: "count of blocks imported under one lock",
	}
)
