// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	var cs Stats
	assert.Equal(t, float64(0), cs.HitRate())

	cs.Hit()
	cs.Miss()
	changed, hit, miss := cs.Stats()
	assert.True(t, changed)
	assert.Equal(t, int64(1), hit)
	assert.Equal(t, int64(1), miss)

	changed, _, _ = cs.Stats()
	assert.False(t, changed)

	cs.Hit()
	assert.Equal(t, int64(3), cs.Hit())
	changed, hit, miss = cs.Stats()
	assert.True(t, changed)
	assert.Equal(t, int64(3), hit)
	assert.Equal(t, int64(1), miss)
	assert.Equal(t, 0.75, cs.HitRate())
}
