package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/landmass"
)

func TestEncodeDecode(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"encode", "-x", "-3", "-z", "7"}, &out))
	assert.Equal(t, "2147450869\n", out.String())

	out.Reset()
	require.NoError(t, run([]string{"decode", "2147450869", "0"}, &out))
	assert.Equal(t, "2147450869\t-3\t7\n0\t-32760\t-32760\n", out.String())

	assert.ErrorIs(t, run([]string{"encode", "-x", "40000"}, &out), hexgrid.ErrOutOfRange)
	assert.Error(t, run([]string{"decode", "-1"}, &out))
	assert.ErrorIs(t, run(nil, &out), errUsage)
	assert.ErrorIs(t, run([]string{"explode"}, &out), errUsage)
}

func TestSummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: isle
  name: Остров
  positions: [{x: 0, z: 0}, {x: 1, z: 0}, {x: 2, z: 0}]
`), 0o644))

	var out bytes.Buffer
	require.NoError(t, run([]string{"summary", path}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "ID"))
	assert.Contains(t, out.String(), "isle")

	out.Reset()
	require.NoError(t, run([]string{"summary", "-json", path}, &out))
	var summaries []landmass.Summary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, 3, summaries[0].TileCount)
	assert.Equal(t, uint8(4), summaries[0].MaxLevel, "центр купола")

	assert.ErrorIs(t, run([]string{"summary"}, &out), errUsage)
}
