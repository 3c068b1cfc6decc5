// Command sdprelax writes the SDPA relaxation of a YAML problem file.
//
//	sdprelax -f problem.yaml -o problem.dat-s
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/fumin/sdprelax"
	"github.com/fumin/sdprelax/problem"
)

var (
	problemPath = flag.String("f", "problem.yaml", "problem file")
	outPath     = flag.String("o", "problem.dat-s", "output SDPA file")
	workers     = flag.Int("workers", runtime.GOMAXPROCS(0), "number of goroutines building matrices")
	diskDir     = flag.String("disk", "", "if set, accumulate entries in a sqlite database under this directory")
	maxBasis    = flag.Int("max-basis", 0, "maximum basis size, 0 for no limit")
	verbose     = flag.Bool("v", false, "log progress")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger := zap.NewNop()
	if *verbose {
		var err error
		logger, err = zap.NewDevelopment()
		if err != nil {
			return errors.Wrap(err, "")
		}
		defer logger.Sync()
	}

	p, err := problem.LoadFile(*problemPath)
	if err != nil {
		return errors.Wrap(err, "")
	}

	start := time.Now()
	opt := sdprelax.NewOptions().EliminateEqualities(p.EliminateEqualities).Workers(*workers).MaxBasisSize(*maxBasis).Logger(logger)
	if *diskDir != "" {
		opt = opt.Disk(*diskDir)
	}
	r, err := sdprelax.New(p.Algebra, p.Vars, opt)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer r.Close()
	if err := r.GetRelaxation(ctx, p.Objective, p.Inequalities, p.Equalities, p.Substitutions, p.Order); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("relaxation %d variables %v blocks %.2f s", r.NumVariables(), r.Problem().Blocks, time.Since(start).Seconds())

	if err := r.WriteSDPA(*outPath); err != nil {
		return errors.Wrap(err, "")
	}
	log.Printf("wrote %s %.2f s", *outPath, time.Since(start).Seconds())
	return nil
}
