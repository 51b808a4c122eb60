// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package node

import (
	"time"

	"github.com/vechain/ledger/metrics"
)

var (
	metricBlockReceivedCount    = metrics.LazyLoadCounterVec("block_received_count", []string{"status"})
	metricBlockReceivedDuration = metrics.LazyLoadHistogramVec(
		"block_received_duration_ms", []string{"status"}, metrics.Bucket10s,
	)

	metricChainForkCount = metrics.LazyLoadCounter("chain_fork_count")
	metricChainForkSize  = metrics.LazyLoadGauge("chain_fork_size")
	metricReorgCount     = metrics.LazyLoadCounterVec("chain_reorg_count", []string{"status"})
	metricOrphanGauge    = metrics.LazyLoadGauge("orphan_block_count")
)

func evalBlockReceivedMetrics(f func() error) error {
	startTime := time.Now()

	if err := f(); err != nil {
		status := map[string]string{
			"status": "failed",
		}
		metricBlockReceivedCount().AddWithLabel(1, status)
		metricBlockReceivedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
		return err
	}

	status := map[string]string{
		"status": "received",
	}
	metricBlockReceivedCount().AddWithLabel(1, status)
	metricBlockReceivedDuration().ObserveWithLabels(time.Since(startTime).Milliseconds(), status)
	return nil
}
