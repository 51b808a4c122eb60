// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"github.com/vechain/ledger/metrics"
)

var metricCacheHitMiss = metrics.LazyLoadGaugeVec("trie_node_cache_hit_miss_count", []string{"event"})
