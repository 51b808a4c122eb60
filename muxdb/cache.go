// Copyright (c) 2022 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package muxdb

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/qianbin/directcache"

	"github.com/vechain/ledger/cache"
	"github.com/vechain/ledger/kv"
)

// nodeCache caches encoded trie nodes by their content hash.
// Keys are content hashes, so an entry can never go stale.
type nodeCache struct {
	blobs       *directcache.Cache
	stats       cache.Stats
	lastLogTime atomic.Int64
}

func newNodeCache(sizeMB int) *nodeCache {
	if sizeMB <= 0 {
		return nil
	}
	c := &nodeCache{
		blobs: directcache.New(sizeMB * 1024 * 1024),
	}
	c.lastLogTime.Store(time.Now().UnixNano())
	return c
}

func (c *nodeCache) add(key, blob []byte) {
	_ = c.blobs.Set(key, blob)
}

func (c *nodeCache) get(key []byte) (blob []byte) {
	if c.blobs.AdvGet(key, func(val []byte) {
		blob = slices.Clone(val)
	}, false) && len(blob) > 0 {
		c.stats.Hit()
		return
	}
	c.stats.Miss()
	c.log()
	return nil
}

func (c *nodeCache) log() {
	now := time.Now().UnixNano()
	last := c.lastLogTime.Swap(now)

	if now-last > int64(time.Second*20) {
		changed, hit, miss := c.stats.Stats()
		if changed {
			logger.Debug("node cache stats", "hit", hit, "miss", miss)
		}
		metricCacheHitMiss().SetWithLabel(hit, map[string]string{"event": "hit"})
		metricCacheHitMiss().SetWithLabel(miss, map[string]string{"event": "miss"})
	} else {
		c.lastLogTime.CompareAndSwap(now, last)
	}
}

// cachedGetter reads trie nodes through the cache.
func (c *nodeCache) newGetter(src kv.Getter) kv.Getter {
	if c == nil {
		return src
	}
	return &struct {
		kv.GetFunc
		kv.HasFunc
		kv.IsNotFoundFunc
	}{
		func(key []byte) ([]byte, error) {
			if blob := c.get(key); blob != nil {
				return blob, nil
			}
			blob, err := src.Get(key)
			if err != nil {
				return nil, err
			}
			c.add(key, blob)
			return blob, nil
		},
		src.Has,
		src.IsNotFound,
	}
}

// newPutter fills the cache with nodes being committed.
func (c *nodeCache) newPutter(dst kv.Putter) kv.Putter {
	if c == nil {
		return dst
	}
	return &struct {
		kv.PutFunc
		kv.DeleteFunc
	}{
		func(key, val []byte) error {
			if err := dst.Put(key, val); err != nil {
				return err
			}
			c.add(key, val)
			return nil
		},
		dst.Delete,
	}
}
