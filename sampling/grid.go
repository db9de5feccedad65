package sampling

import (
	"fmt"
	"sort"
	"time"

	"github.com/patrikhermansson/mff/conf"
	"github.com/patrikhermansson/mff/core"
	"github.com/rs/zerolog/log"
)

// histogram maps flat bin numbers to counts.
type histogram map[int]float64

// coverage is the stored histogram of structural distances seen so far: pair
// distances for two-body, distance triplets for three-body. Counts only grow.
type coverage struct {
	nbins     int
	rcut      float64
	threeBody bool
	stored    histogram
}

func newCoverage(nbins int, rcut float64, threeBody bool) *coverage {
	return &coverage{nbins: nbins, rcut: rcut, threeBody: threeBody, stored: make(histogram)}
}

// bin returns the bin of x over [0, rcut]; x == rcut falls in the last bin.
func (c *coverage) bin(x float64) (int, bool) {
	if !(x >= 0 && x <= c.rcut) {
		return 0, false
	}
	b := int(x / c.rcut * float64(c.nbins))
	if b >= c.nbins {
		b = c.nbins - 1
	}
	return b, true
}

// histogram bins one configuration's distances.
func (c *coverage) histogram(x conf.Configuration) histogram {
	h := make(histogram)
	if !c.threeBody {
		for j := 0; j < x.Len(); j++ {
			if b, ok := c.bin(x.Distance(j)); ok {
				h[b]++
			}
		}
		return h
	}

	// atom 0 is the central atom at the origin
	atoms := make([]core.Vec3, x.Len()+1)
	for j := 0; j < x.Len(); j++ {
		atoms[j+1] = x.Position(j)
	}
	d := core.PairwiseDistances(atoms, core.Euclidean)
	valid := func(v float64) bool { return v > 0 && v <= c.rcut }
	add := func(a, b, e float64) {
		i, _ := c.bin(a)
		j, _ := c.bin(b)
		k, _ := c.bin(e)
		h[(i*c.nbins+j)*c.nbins+k]++
	}
	for k := 1; k < len(atoms); k++ {
		if !valid(d[k][0]) {
			continue
		}
		for l := 1; l < len(atoms); l++ {
			if !valid(d[0][l]) || !valid(d[k][l]) {
				continue
			}
			add(d[0][k], d[0][l], d[k][l])
			add(d[0][l], d[k][l], d[0][k])
			add(d[k][l], d[0][k], d[0][l])
		}
	}
	return h
}

// offer accepts h when it exceeds the stored count in at least one bin, and
// then accumulates it into the stored histogram.
func (c *coverage) offer(h histogram) bool {
	novel := false
	for b, n := range h {
		if n > c.stored[b] {
			novel = true
			break
		}
	}
	if !novel {
		return false
	}
	for b, n := range h {
		c.stored[b] += n
	}
	return true
}

// Grid visits the pool in random order and keeps every configuration whose
// distance histogram exceeds the stored coverage histogram in some bin. The
// "2b" method bins pair distances and fits a two-body model; "3b" bins
// distance triplets and fits the combined two- plus three-body model.
func (s *Sampler) Grid(method string, nbins int, metric Metric) (Result, error) {
	start := time.Now()
	if err := validateMethod(method, gridMethods); err != nil {
		return Result{}, err
	}
	if nbins < 1 {
		return Result{}, fmt.Errorf("nbins must be at least 1, got %d: %w", nbins, core.ErrInvalidParameter)
	}
	cov := newCoverage(nbins, s.settings.RCut, method == "3b")
	bar := s.newProgress(s.train.Len(), "grid")
	var index []int
	for _, j := range s.rng.Perm(s.train.Len()) {
		if cov.offer(cov.histogram(s.train.Confs[j])) {
			index = append(index, j)
		}
		bar.add(1)
	}
	bar.finish()
	sort.Ints(index)
	if len(index) == 0 {
		return Result{}, fmt.Errorf("no configuration has distances inside the cutoff: %w", core.ErrInsufficientData)
	}
	log.Debug().Msgf("Grid %s accepted %d of %d configurations", method, len(index), s.train.Len())

	m, err := s.model(method)
	if err != nil {
		return Result{}, err
	}
	if err := s.fit(m, index, metric); err != nil {
		return Result{}, err
	}
	e, err := s.evaluate(m, metric)
	if err != nil {
		return Result{}, err
	}
	return result(e, index, start), nil
}
