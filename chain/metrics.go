// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package chain

import "github.com/vechain/ledger/metrics"

var (
	metricCacheHitMiss      = metrics.LazyLoadGaugeVec("repo_cache_hit_miss_count", []string{"type", "event"})
	metricBlockRepoCounter  = metrics.LazyLoadCounterVec("block_repository_count", []string{"type", "target"})
	metricBestBlockGauge    = metrics.LazyLoadGauge("best_block_number")
	metricTotalWeightGauge  = metrics.LazyLoadGauge("best_block_total_weight")
	metricInvalidBlockCount = metrics.LazyLoadCounter("invalid_block_count")
)
