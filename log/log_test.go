// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithContextFollowsDefault(t *testing.T) {
	logger := WithContext("pkg", "test")

	var buf bytes.Buffer
	SetDefault(&buf, slog.LevelInfo, true, false)

	logger.Info("hello", "n", 1)
	logger.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.Nil(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "test", rec["pkg"])
	assert.Equal(t, float64(1), rec["n"])
}

func TestTerminalFormat(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(&buf, FromVerbosity(5), false, false)

	Trace("deep", "k", "v")
	WithContext("pkg", "x").Warn("careful")

	out := buf.String()
	assert.Contains(t, out, "deep")
	assert.Contains(t, out, "k=v")
	assert.Contains(t, out, "careful")
	assert.Contains(t, out, "pkg=x")
}

func TestSetDefaultLevel(t *testing.T) {
	for _, json := range []bool{true, false} {
		var buf bytes.Buffer
		SetDefault(&buf, slog.LevelWarn, json, false)

		Info("quiet")
		Warn("loud")

		out := buf.String()
		assert.NotContains(t, out, "quiet", "json=%v", json)
		assert.Contains(t, out, "loud", "json=%v", json)
	}
}
