package compiler

import (
	"context"
	"runtime"

	"calcc/pkg/target"

	"golang.org/x/sync/errgroup"
)

// Source is one named program of a batch.
type Source struct {
	Name string
	Text string
}

// Result pairs a Source with its outcome. Exactly one of Output and Err is
// set.
type Result struct {
	Name   string
	Output *Output
	Err    error
}

// CompileAll compiles every source in parallel, at most jobs at a time
// (GOMAXPROCS when jobs < 1). Compilations share nothing, so one failure
// does not affect the others. Results are in input order. Sources not yet
// started when ctx is done get ctx's error.
func CompileAll(ctx context.Context, profile *target.Profile, sources []Source, jobs int) []Result {
	if jobs < 1 {
		jobs = runtime.GOMAXPROCS(0)
	}
	c := New(profile)
	results := make([]Result, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, src := range sources {
		results[i].Name = src.Name
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Output, results[i].Err = c.Compile(src.Text)
			return nil
		})
	}
	g.Wait() // workers never return an error
	return results
}
