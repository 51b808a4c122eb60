// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package consensus

import "github.com/vechain/ledger/metrics"

var (
	metricBlockValidationCount = metrics.LazyLoadCounterVec("block_validation_count", []string{"result"})
	metricTxExecutedCount      = metrics.LazyLoadCounter("tx_executed_count")
)
