// Command run writes SDPA relaxations of fermionic lattice Hamiltonians for a range of lattice sizes.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/fumin/sdprelax"
	"github.com/fumin/sdprelax/hamiltonian"
)

const (
	fnameSDPA       = "hamiltonian.dat-s"
	fnameDone       = "done.txt"
	fnameStatistics = "statistics.txt"
)

var (
	runDir = flag.String("d", filepath.Join("runs", "hamiltonian"), "run directory")
	maxL   = flag.Int("l", 3, "maximum lattice length")
	order  = flag.Int("order", 2, "relaxation order")
	gamma  = flag.Float64("gamma", 1, "pairing strength")
	lambda = flag.Float64("lambda", 2, "chemical potential")
)

type Statistics struct {
	Length       int
	Order        int
	NumVariables int
	Blocks       []int
	Seconds      float64
}

func relax(dir string, length int) error {
	start := time.Now()
	m, err := hamiltonian.Fermionic(hamiltonian.Lattice{Length: length, Gamma: *gamma, Lambda: *lambda})
	if err != nil {
		return errors.Wrap(err, "")
	}
	r, err := sdprelax.New(m.Algebra, m.Vars)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer r.Close()
	if err := r.GetRelaxation(context.Background(), m.Hamiltonian, nil, m.Equalities, m.Substitutions, *order); err != nil {
		return errors.Wrap(err, "")
	}
	if err := r.WriteSDPA(filepath.Join(dir, fnameSDPA)); err != nil {
		return errors.Wrap(err, "")
	}

	stats := Statistics{Length: length, Order: *order, NumVariables: r.NumVariables(), Blocks: r.Problem().Blocks, Seconds: time.Since(start).Seconds()}
	b, err := json.Marshal(stats)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := os.WriteFile(filepath.Join(dir, fnameStatistics), b, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func solve(dir string, length int) error {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	if err := relax(dir, length); err != nil {
		return errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func gather(dir string) ([]Statistics, error) {
	stats := make([]Statistics, 0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	for _, ent := range entries {
		// Parse for lattice size.
		lstr, _, ok := strings.Cut(ent.Name(), "x")
		if !ok {
			continue
		}
		if _, err := strconv.Atoi(lstr); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", ent))
		}

		b, err := os.ReadFile(filepath.Join(dir, ent.Name(), fnameStatistics))
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", ent))
		}
		var s Statistics
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("%#v", ent))
		}
		stats = append(stats, s)
	}
	slices.SortFunc(stats, func(a, b Statistics) int { return a.Length - b.Length })
	return stats, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds | log.Llongfile | log.LstdFlags)

	if err := mainWithErr(); err != nil {
		log.Fatalf("%+v", err)
	}
}

func mainWithErr() error {
	if err := os.MkdirAll(*runDir, os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}

	for length := 2; length <= *maxL; length++ {
		dir := filepath.Join(*runDir, fmt.Sprintf("%dx%d", length, length))
		if err := solve(dir, length); err != nil {
			return errors.Wrap(err, fmt.Sprintf("%d", length))
		}
		log.Printf("%d", length)
	}

	// Gather results and print them.
	stats, err := gather(*runDir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	fmt.Printf("length,order,variables,blocks,seconds\n")
	for _, s := range stats {
		fmt.Printf("%d,%d,%d,%v,%.2f\n", s.Length, s.Order, s.NumVariables, s.Blocks, s.Seconds)
	}
	return nil
}
