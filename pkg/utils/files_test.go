package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPathInfo(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	full, dir, err := GetPathInfo("sub/../prog.c")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "prog.c"), full)
	assert.Equal(t, wd, dir)
}

func TestDefaultOutputPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"prog.c", "prog.z80"},
		{"dir/prog.calc", "dir/prog.z80"},
		{"prog", "prog.z80"},
		{"prog.z80", "prog.z80.z80"},
		{"v1.2/prog", "v1.2/prog.z80"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultOutputPath(tt.in, ".z80"), tt.in)
	}
}
