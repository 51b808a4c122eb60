// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/mclock"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/chain"
	"github.com/vechain/ledger/co"
	"github.com/vechain/ledger/log"
	"github.com/vechain/ledger/node"
	"github.com/vechain/ledger/thor"
)

func headAction(ctx *cli.Context) error {
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	head := l.node.CurrentHead()
	summary, err := l.repo.GetBlockSummary(head.ID)
	if err != nil {
		return err
	}
	fmt.Printf("id:           %v\n", head.ID)
	fmt.Printf("number:       %d\n", head.Number)
	fmt.Printf("state root:   %v\n", head.StateRoot)
	fmt.Printf("timestamp:    %d\n", summary.Header.Timestamp())
	fmt.Printf("total weight: %d\n", summary.TotalWeight)
	fmt.Printf("txs:          %d\n", len(summary.Txs))
	return nil
}

func accountAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: account <address>")
	}
	addr, err := thor.ParseAddress(ctx.Args().First())
	if err != nil {
		return errors.Wrap(err, "parse address")
	}

	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	acc, err := l.node.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc == nil {
		fmt.Printf("account %v not found at head %v\n", addr, l.node.CurrentHead().ID)
	} else {
		spew.Dump(acc)
	}

	if ctx.Bool(proofFlag.Name) {
		root, proof, err := l.node.Prove(addr)
		if err != nil {
			return err
		}
		fmt.Printf("root: %v\n", root)
		for i, n := range proof {
			fmt.Printf("node[%d]: %v\n", i, hexutil.Encode(n))
		}
	}
	return nil
}

func verifyAction(ctx *cli.Context) error {
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	startTime := mclock.Now()
	if err := l.node.Recover(); err != nil {
		return err
	}
	head := l.node.CurrentHead()
	log.Info("state verified", "number", head.Number, "id", head.ID, "elapsed", common.PrettyDuration(mclock.Now()-startTime))
	return nil
}

func exportAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: export <file>")
	}
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	f, err := os.Create(ctx.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	best := l.repo.BestBlockSummary().Header.Number()
	bar := pb.New64(int64(best)).SetMaxWidth(90).Start()
	defer bar.Finish()

	n, err := exportChain(handleExitSignal(), l.repo, f, func() { bar.Increment() })
	if err != nil {
		return err
	}
	log.Info("blocks exported", "count", n)
	return nil
}

func importAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("usage: import <file>")
	}
	l, err := openLedger(ctx)
	if err != nil {
		return err
	}
	defer l.Close()

	f, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	var goes co.Goes
	defer goes.Wait()

	headChanged := make(chan *node.HeadChanged, 16)
	sub := l.node.SubscribeHeadChanged(headChanged)
	defer sub.Unsubscribe()
	goes.Go(func() { logReorgs(headChanged, sub.Err()) })

	bar := pb.New64(info.Size()).SetUnits(pb.U_BYTES).SetMaxWidth(90).Start()
	defer bar.Finish()

	n, err := importChain(handleExitSignal(), l.node, f, ctx.Int(chunkFlag.Name), func(read int64) { bar.Set64(read) })
	if err != nil {
		return err
	}
	head := l.node.CurrentHead()
	log.Info("blocks imported", "count", n, "head", head.Number, "id", head.ID)
	return nil
}

// logReorgs reports head changes that reverted blocks until done is closed.
func logReorgs(headChanged <-chan *node.HeadChanged, done <-chan error) {
	for {
		select {
		case ev := <-headChanged:
			if len(ev.Reverted) > 0 {
				log.Info("chain reorganized", "number", ev.Number, "id", ev.ID, "reverted", len(ev.Reverted), "applied", len(ev.Applied))
			}
		case <-done:
			return
		}
	}
}

// exportChain writes the canonical blocks after genesis to w as an rlp stream.
func exportChain(ctx context.Context, repo *chain.Repository, w io.Writer, onBlock func()) (int, error) {
	var (
		bw    = bufio.NewWriter(w)
		best  = repo.NewBestChain()
		count = 0
	)
	headNum := block.Number(best.HeadID())
	for num := uint32(1); num <= headNum; num++ {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}
		id, err := best.GetBlockID(num)
		if err != nil {
			return count, err
		}
		blk, err := repo.GetBlock(id)
		if err != nil {
			return count, err
		}
		if err := rlp.Encode(bw, blk); err != nil {
			return count, err
		}
		count++
		if onBlock != nil {
			onBlock()
		}
	}
	return count, bw.Flush()
}

type countingReader struct {
	r    io.Reader
	read int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	return n, err
}

// importChain reads an rlp stream of blocks from r and adds them to the node
// in chunks. onRead receives the count of bytes consumed so far.
func importChain(ctx context.Context, n *node.Node, r io.Reader, chunk int, onRead func(int64)) (int, error) {
	if chunk <= 0 {
		chunk = 1
	}
	var (
		cr     = &countingReader{r: r}
		stream = rlp.NewStream(cr, 0)
		blks   = make([]*block.Block, 0, chunk)
		count  = 0
	)
	flush := func() error {
		if err := n.AddBlocks(blks); err != nil {
			return err
		}
		count += len(blks)
		blks = blks[:0]
		if onRead != nil {
			onRead(cr.read)
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		var blk block.Block
		if err := stream.Decode(&blk); err != nil {
			if err == io.EOF {
				break
			}
			return count, errors.Wrapf(err, "decode block #%d", count+len(blks))
		}
		blks = append(blks, &blk)
		if len(blks) == chunk {
			if err := flush(); err != nil {
				return count, err
			}
		}
	}
	if err := flush(); err != nil {
		return count, err
	}
	return count, nil
}
