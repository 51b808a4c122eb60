// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/elastic/gosigar"
	"github.com/ethereum/go-ethereum/common/fdlimit"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/consensus"
	"github.com/vechain/ledger/genesis"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/metrics"
	"github.com/vechain/ledger/muxdb"
	"github.com/vechain/ledger/node"
	"github.com/vechain/ledger/state"
)

// initLogger installs the root logger and returns a func releasing the log file, if any.
func initLogger(ctx *cli.Context) func() {
	level := log.FromVerbosity(ctx.GlobalInt(verbosityFlag.Name))

	if file := ctx.GlobalString(logFileFlag.Name); file != "" {
		w := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    100, // MB
			MaxBackups: 10,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetDefault(w, level, ctx.GlobalBool(jsonLogsFlag.Name), false)
		return func() { w.Close() }
	}

	useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	log.SetDefault(os.Stderr, level, ctx.GlobalBool(jsonLogsFlag.Name), useColor)
	return func() {}
}

// initMetrics switches to prometheus metrics and returns a func dumping them.
func initMetrics(ctx *cli.Context, w io.Writer) func() {
	if !ctx.GlobalBool(enableMetricsFlag.Name) {
		return func() {}
	}
	metrics.InitializePrometheusMetrics()
	return func() {
		if err := metrics.Dump(w); err != nil {
			log.Warn("failed to dump metrics", "err", err)
		}
	}
}

func selectGenesis(ctx *cli.Context) (*genesis.Genesis, error) {
	file := ctx.GlobalString(genesisFlag.Name)
	if file == "" {
		return genesis.NewDevnet(), nil
	}
	custom, err := genesis.LoadCustomGenesis(file)
	if err != nil {
		return nil, fmt.Errorf("load genesis file [%v]: %w", file, err)
	}
	return genesis.NewCustomNet(custom)
}

func makeInstanceDir(ctx *cli.Context, gene *genesis.Genesis) (string, error) {
	dataDir := ctx.GlobalString(dataDirFlag.Name)
	if dataDir == "" {
		return "", fmt.Errorf("unable to infer default data dir, use -%s to specify", dataDirFlag.Name)
	}
	instanceDir := filepath.Join(dataDir, fmt.Sprintf("instance-%x", gene.ID().Bytes()[24:]))
	if err := os.MkdirAll(instanceDir, 0700); err != nil {
		return "", fmt.Errorf("create instance dir [%v]: %w", instanceDir, err)
	}
	return instanceDir, nil
}

func openMainDB(ctx *cli.Context, dir string) (*muxdb.MuxDB, error) {
	cacheMB := normalizeCacheSize(ctx.GlobalInt(cacheFlag.Name))
	log.Debug("cache size(MB)", "size", cacheMB)

	fdCache := suggestFDCache()
	log.Debug("fd cache", "n", fdCache)

	path := filepath.Join(dir, "main.db")
	db, err := muxdb.Open(path, &muxdb.Options{
		TrieNodeCacheSizeMB:    cacheMB,
		OpenFilesCacheCapacity: fdCache,
		ReadCacheMB:            256,
		WriteBufferMB:          128,
		SyncWrite:              ctx.GlobalBool(syncWriteFlag.Name),
	})
	if err != nil {
		return nil, fmt.Errorf("open main database [%v]: %w", path, err)
	}
	return db, nil
}

func normalizeCacheSize(sizeMB int) int {
	if sizeMB < 128 {
		sizeMB = 128
	}

	var mem gosigar.Mem
	if err := mem.Get(); err != nil {
		log.Warn("failed to get total mem:", "err", err)
	} else {
		// limit to 1/2 os physical ram
		limitMB := int(mem.Total / 1024 / 1024 / 2)
		if sizeMB > limitMB {
			sizeMB = limitMB
			log.Warn("cache size(MB) limited", "limit", limitMB)
		}
	}
	return sizeMB
}

func suggestFDCache() int {
	limit, err := fdlimit.Current()
	if err != nil {
		log.Warn("failed to get fd limit:", "err", err)
		return 500
	}
	if limit <= 1024 {
		log.Warn("low fd limit, increase it if possible", "limit", limit)
	}

	n := limit / 2
	if n > 5120 {
		return 5120
	}
	return n
}

// ledger bundles the opened database and the node built on it.
type ledger struct {
	db   *muxdb.MuxDB
	repo *chain.Repository
	node *node.Node
}

func (l *ledger) Close() {
	l.node.Close()
	if err := l.db.Close(); err != nil {
		log.Warn("failed to close database", "err", err)
	}
}

func newLedger(db *muxdb.MuxDB, gene *genesis.Genesis, params consensus.Params) (*ledger, error) {
	genesisBlock, err := gene.Build(db)
	if err != nil {
		return nil, fmt.Errorf("build genesis: %w", err)
	}
	repo, err := chain.NewRepository(db, genesisBlock, chain.WithWeight(params.Weight))
	if err != nil {
		return nil, fmt.Errorf("initialize block chain: %w", err)
	}
	stater := state.NewStater(db)
	return &ledger{
		db:   db,
		repo: repo,
		node: node.New(repo, stater, consensus.New(repo, stater, params)),
	}, nil
}

func openLedger(ctx *cli.Context) (*ledger, error) {
	gene, err := selectGenesis(ctx)
	if err != nil {
		return nil, err
	}
	instanceDir, err := makeInstanceDir(ctx, gene)
	if err != nil {
		return nil, err
	}
	db, err := openMainDB(ctx, instanceDir)
	if err != nil {
		return nil, err
	}
	l, err := newLedger(db, gene, consensus.DefaultParams())
	if err != nil {
		db.Close()
		return nil, err
	}
	log.Info("ledger opened", "genesis", gene.Name(), "dir", instanceDir, "head", l.node.CurrentHead().Number)
	return l, nil
}
