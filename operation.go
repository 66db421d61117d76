package drift

import "math/rand"

// Row is an opaque dataset element. Rows are treated as immutable values
// throughout the engine: operations never modify a Row in place, they produce
// new Rows.
type Row = interface{}

// KeyValue is the structural shape required by key/value operations
// (GroupByKey, ReduceByKey, SortByKey, Join, CountByKey, CollectAsMap,
// Lookup). Keys must be Go-comparable; SortByKey keys must additionally be
// mutually ordered (a single kind of integer, unsigned, float, string or
// bool).
type KeyValue struct {
	Key   Row
	Value Row
}

// Tuple holds one matched pair of values produced by Join, carried as the
// Value of the joined KeyValue row.
type Tuple struct {
	Left  Row
	Right Row
}

// PartitionContext carries per-partition state into a PartitionMapOperation:
// the partition's index and a random generator seeded independently per
// partition so that reruns with the same seed are repeatable.
type PartitionContext struct {
	index int
	rand  *rand.Rand
}

// PartitionIndex returns the 0-based index of the partition being processed.
func (p *PartitionContext) PartitionIndex() int {
	return p.index
}

// Rand returns this partition's private random generator. It is never shared
// across partitions.
func (p *PartitionContext) Rand() *rand.Rand {
	return p.rand
}

// MapOperation - A generic function for transforming one Row into another
type MapOperation func(row Row) (Row, error)

// FilterOperation - A generic function for determining whether or not a Row should be retained
type FilterOperation func(row Row) (bool, error)

// FlatMapOperation - A generic function for turning one Row into zero or more Rows
type FlatMapOperation func(row Row) ([]Row, error)

// PartitionMapOperation - A generic function applied to an entire partition's
// rows at once, permitting per-partition setup state (such as a seeded random
// generator obtained from the PartitionContext)
type PartitionMapOperation func(pctx *PartitionContext, rows []Row) ([]Row, error)

// ReductionOperation - A generic function for combining two Rows into one.
// Callers of Reduce and ReduceByKey must supply an associative and
// commutative operation; the engine does not verify this.
type ReductionOperation func(left Row, right Row) (Row, error)

// Comparator - A generic ordering function, reporting whether left sorts
// strictly before right
type Comparator func(left Row, right Row) bool
