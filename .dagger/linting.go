package main

import (
	"context"
	"fmt"

	"dagger/overlap/internal/dagger"
)

const golangciLintVersion = "v2.8.0"

// lintOpts returns the common GolangcilintOpts used by both CheckLint and FixLint.
// It layers golangci-lint on top of goContainer() so the sqlite dev headers,
// CGO, and Go caches are already in place.
func (o *Overlap) lintOpts() dagger.GolangcilintOpts {
	base := o.goContainer("").
		WithExec([]string{
			"go",
			"install",
			fmt.Sprintf("github.com/golangci/golangci-lint/v2/cmd/golangci-lint@%s", golangciLintVersion),
		})

	return dagger.GolangcilintOpts{
		BaseCtr: base,
		Config:  o.Source.File(".golangci.yml"),
	}
}

// CheckLint runs golangci-lint against the overlap source code without applying fixes.
func (o *Overlap) CheckLint(ctx context.Context) (string, error) {
	return dag.Golangcilint(o.Source, o.lintOpts()).Check(ctx)
}

// FixLint runs golangci-lint against the overlap source code with --fix, applying
// automatic fixes where possible, and returns the modified source directory.
func (o *Overlap) FixLint(ctx context.Context) *dagger.Directory {
	return dag.Golangcilint(o.Source, o.lintOpts()).Lint()
}
