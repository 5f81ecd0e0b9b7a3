package compiler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAll(t *testing.T) {
	var sources []Source
	for i := range 20 {
		sources = append(sources, Source{
			Name: fmt.Sprintf("ok%d.c", i),
			Text: fmt.Sprintf("void main() { _DispHL(%d * 2); }", i),
		})
	}
	sources = append(sources, Source{Name: "bad.c", Text: "void main() { _DispHL(1 / 0); }"})

	results := CompileAll(context.Background(), nil, sources, 4)
	require.Len(t, results, len(sources))

	for i, r := range results[:20] {
		assert.Equal(t, sources[i].Name, r.Name)
		require.NoError(t, r.Err, r.Name)
		assertContains(t, r.Output.String(), fmt.Sprintf("    ld hl, %d\n", i*2))
	}

	bad := results[20]
	assert.Nil(t, bad.Output)
	ce, ok := AsCompileError(bad.Err)
	require.True(t, ok)
	assert.Equal(t, PhaseEval, ce.Phase())
}

func TestCompileAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := CompileAll(ctx, nil, []Source{{Name: "a.c", Text: fixture}, {Name: "b.c", Text: fixture}}, 1)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
		assert.Nil(t, r.Output)
	}
}

func TestCompileAllDefaultJobs(t *testing.T) {
	results := CompileAll(context.Background(), nil, []Source{{Name: "f.c", Text: fixture}}, 0)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, fixtureAsm, results[0].Output.String())
}
