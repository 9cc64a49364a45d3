package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"chosenoffset.com/void/internal/dialogue/compiler"
	"chosenoffset.com/void/internal/dialogue/scanner"
	"chosenoffset.com/void/internal/platform/logger"
)

func main() {
	src := flag.String("src", "dialogue-src", "directory of <lang>/<name>.xml scripts")
	out := flag.String("out", "dialogue", "directory compiled chapters are written to")
	force := flag.Bool("force", false, "recompile scripts whose artifacts are up to date")
	jobs := flag.Int("j", runtime.NumCPU(), "scripts compiled in parallel")
	logMode := flag.String("log-mode", "dev", "logger mode (dev or prod)")
	logLevel := flag.String("log-level", "info", "logger level")
	flag.Parse()

	log, err := logger.New(*logMode, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	n, err := compileAll(context.Background(), log, *src, *out, *force, *jobs)
	if err != nil {
		log.Error("compilation failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
	log.Info("done", "compiled", n)
}

// compileAll compiles every stale script under src. The first failure
// cancels the remaining work and is returned.
func compileAll(ctx context.Context, log *logger.Logger, src, out string, force bool, jobs int) (int, error) {
	scripts, err := scanner.ScanSourceDirectory(src)
	if err != nil {
		return 0, err
	}
	log.Info("scanned dialogue sources", "dir", src, "scripts", len(scripts))

	c := compiler.New(log)
	var compiled atomic.Int32

	g, ctx := errgroup.WithContext(ctx)
	if jobs < 1 {
		jobs = 1
	}
	g.SetLimit(jobs)

	for _, script := range scripts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			if !force {
				stale, err := scanner.NeedsCompile(script, out)
				if err != nil {
					return err
				}
				if !stale {
					log.Debug("up to date", "script", script.Path)
					return nil
				}
			}

			if _, err := c.CompileFile(script.Path, script.ArtifactPath(out)); err != nil {
				return err
			}
			compiled.Add(1)
			return nil
		})
	}

	err = g.Wait()
	return int(compiled.Load()), err
}
