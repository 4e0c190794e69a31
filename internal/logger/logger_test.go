package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesLogDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	Init(dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, dir, GetLogDir())
}

func TestSetLevel_FiltersBelowMinimum(t *testing.T) {
	SetLevel("error")
	defer SetLevel("info")

	assert.Equal(t, Error, minLevel)

	SetLevel("nonsense")
	assert.Equal(t, Info, minLevel, "unknown levels fall back to info")
}

func TestLevelPriority_Ordering(t *testing.T) {
	assert.Less(t, levelPriority(Debug), levelPriority(Info))
	assert.Less(t, levelPriority(Info), levelPriority(Warn))
	assert.Less(t, levelPriority(Warn), levelPriority(Error))
}
