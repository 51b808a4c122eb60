// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package packer

import "github.com/vechain/ledger/metrics"

var (
	metricTxAdoptCounter = metrics.LazyLoadCounterVec("packer_tx_adopt_count", []string{"result"})
	metricPackedTxsGauge = metrics.LazyLoadGauge("packer_packed_tx_count")
)
