package metadata

import "math"

// Aggregator folds records into Stats in a single pass.
// Ties on the largest size go to the later record, ties on the smallest to the earlier one.
type Aggregator struct {
	maxSize  float64
	minSize  float64
	largest  string
	smallest string
	hasMax   bool
	hasMin   bool
	count    int
	types    []string
	counts   map[string]int
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		maxSize: 0,
		minSize: math.Inf(1),
		counts:  make(map[string]int),
	}
}

// Add folds one record.
func (a *Aggregator) Add(r Record) {
	a.count++

	if r.SizeBytes >= a.maxSize {
		a.maxSize = r.SizeBytes
		a.largest = r.ObjectKey
		a.hasMax = true
	}
	if r.SizeBytes < a.minSize {
		a.minSize = r.SizeBytes
		a.smallest = r.ObjectKey
		a.hasMin = true
	}

	if _, ok := a.counts[r.ContentType]; ok {
		a.counts[r.ContentType]++
	} else {
		a.counts[r.ContentType] = 1
		a.types = append(a.types, r.ContentType)
	}
}

// Count is the number of records folded so far.
func (a *Aggregator) Count() int {
	return a.count
}

// Result returns the statistics, or ErrNoRecords when no extremum was ever set.
func (a *Aggregator) Result() (Stats, error) {
	if !a.hasMax || !a.hasMin {
		return Stats{}, ErrNoRecords
	}

	types := make([]string, len(a.types))
	copy(types, a.types)
	counts := make(map[string]int, len(a.counts))
	for k, v := range a.counts {
		counts[k] = v
	}

	return Stats{
		Largest:      a.largest,
		Smallest:     a.smallest,
		ContentTypes: types,
		TypeCounts:   counts,
	}, nil
}
