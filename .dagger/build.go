package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dagger/overlap/internal/dagger"
)

// Build and return directory of linux binaries
func (o *Overlap) Build(
	ctx context.Context,

	// Linker flags for go build
	// +optional
	// +default="-s -w"
	ldflags string,
) *dagger.Directory {
	// cgo rules out cross compilation, so each arch builds on its own platform
	goarches := []string{"amd64", "arm64"}

	outputs := dag.Directory()

	for _, goarch := range goarches {
		path := fmt.Sprintf("linux/%s/", goarch)

		build := o.goContainer(dagger.Platform("linux/"+goarch)).
			WithExec([]string{"go", "build", "-ldflags", ldflags, "-o", path, "./cli/overlap"})

		outputs = outputs.WithDirectory(path, build.Directory(path))
	}

	return outputs
}

// BuildRelease compiles versioned release binaries with embedded version info
func (o *Overlap) BuildRelease(
	ctx context.Context,

	// Version string of build
	version string,

	// Git commit SHA of build
	commit string,
) *dagger.Directory {
	buildtime := time.Now()

	ldflags := []string{
		"-s",
		"-w",
		fmt.Sprintf("-X 'github.com/papercomputeco/overlap/pkg/utils.Version=%s'", version),
		fmt.Sprintf("-X 'github.com/papercomputeco/overlap/pkg/utils.Sha=%s'", commit),
		fmt.Sprintf("-X 'github.com/papercomputeco/overlap/pkg/utils.Buildtime=%s'", buildtime),
	}

	return o.Build(ctx, strings.Join(ldflags, " "))
}
