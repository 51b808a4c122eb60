// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/mclock"

	"github.com/vechain/ledger/block"
	"github.com/vechain/ledger/thor"
)

type blockStats struct {
	exec, commit                         mclock.AbsTime
	txs                                  int
	processed, queued, ignored, reverted int
}

func (s *blockStats) UpdateProcessed(n int, txs int, exec, commit mclock.AbsTime) {
	s.processed += n
	s.txs += txs
	s.exec += exec
	s.commit += commit
}

func (s *blockStats) UpdateIgnored(n int) {
	s.ignored += n
}

func (s *blockStats) UpdateQueued(n int) {
	s.queued += n
}

func (s *blockStats) UpdateReverted(n int) {
	s.reverted += n
}

func (s *blockStats) LogContext(last *block.Header) []any {
	ctx := []any{
		"count", s.processed,
		"txs", s.txs,
		"et", fmt.Sprintf("%v|%v", common.PrettyDuration(s.exec), common.PrettyDuration(s.commit)),
		"id", shortID(last.ID()),
	}
	if s.queued > 0 {
		ctx = append(ctx, "queued", s.queued)
	}
	if s.ignored > 0 {
		ctx = append(ctx, "ignored", s.ignored)
	}
	if s.reverted > 0 {
		ctx = append(ctx, "reverted", s.reverted)
	}
	return ctx
}

func shortID(id thor.Bytes32) string {
	return fmt.Sprintf("[#%v…%x]", block.Number(id), id[28:])
}
