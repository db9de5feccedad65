package conf

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/patrikhermansson/mff/core"
)

// TrainTestSplit partitions a dataset into a training pool and a held-out test set.
// TrainIndex and TestIndex refer to positions in the dataset that was split and never overlap.
type TrainTestSplit struct {
	Train      Dataset
	Test       Dataset
	TrainIndex []int
	TestIndex  []int
}

// Split draws ntest indices uniformly without replacement as the test set and keeps
// the rest, in their original order, as the training pool.
func Split(d Dataset, ntest int, rng *rand.Rand) (TrainTestSplit, error) {
	if ntest < 1 {
		return TrainTestSplit{}, fmt.Errorf("ntest must be at least 1, got %d: %w", ntest, core.ErrInvalidParameter)
	}
	if ntest >= d.Len() {
		return TrainTestSplit{}, fmt.Errorf("%d configurations cannot hold %d test points and a training pool: %w",
			d.Len(), ntest, core.ErrInsufficientData)
	}
	perm := rng.Perm(d.Len())
	test := append([]int(nil), perm[:ntest]...)
	inTest := make(map[int]bool, ntest)
	for _, i := range test {
		inTest[i] = true
	}
	train := make([]int, 0, d.Len()-ntest)
	for i := 0; i < d.Len(); i++ {
		if !inTest[i] {
			train = append(train, i)
		}
	}
	sort.Ints(test)
	return TrainTestSplit{
		Train:      d.Subset(train),
		Test:       d.Subset(test),
		TrainIndex: train,
		TestIndex:  test,
	}, nil
}
