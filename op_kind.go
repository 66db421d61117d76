package drift

// OpKind describes the operator attached to a Dataset, used internally to
// control scheduling and shuffle behaviour
type OpKind string

const (
	// SourceOp indicates that this Dataset draws partitions directly from a DataSource
	SourceOp OpKind = "source"
	// MapOp indicates that this Dataset transforms each parent row into one row
	MapOp OpKind = "map"
	// FlatMapOp indicates that this Dataset transforms each parent row into zero or more rows
	FlatMapOp OpKind = "flatmap"
	// FilterOp indicates that this Dataset retains parent rows matching a predicate
	FilterOp OpKind = "filter"
	// MapPartitionsOp indicates that this Dataset transforms whole parent partitions at once
	MapPartitionsOp OpKind = "map_partitions"
	// UnionOp indicates that this Dataset concatenates the partitions of two parents
	UnionOp OpKind = "union"
	// SampleOp indicates that this Dataset randomly samples parent rows
	SampleOp OpKind = "sample"
	// GroupByKeyOp indicates a shuffle collecting all values sharing a key
	GroupByKeyOp OpKind = "group_by_key"
	// ReduceByKeyOp indicates a shuffle folding all values sharing a key
	ReduceByKeyOp OpKind = "reduce_by_key"
	// SortByKeyOp indicates a range-partitioning shuffle ordering rows by key
	SortByKeyOp OpKind = "sort_by_key"
	// JoinOp indicates a co-partitioning shuffle matching keys across two parents
	JoinOp OpKind = "join"
	// DistinctOp indicates a shuffle discarding duplicate rows
	DistinctOp OpKind = "distinct"
	// IntersectionOp indicates a shuffle retaining rows present in both parents
	IntersectionOp OpKind = "intersection"
	// SubtractOp indicates a shuffle removing left rows present in the right parent
	SubtractOp OpKind = "subtract"
)

// isShuffle returns true iff this operator redistributes rows across partitions
func (k OpKind) isShuffle() bool {
	switch k {
	case GroupByKeyOp, ReduceByKeyOp, SortByKeyOp, JoinOp, DistinctOp, IntersectionOp, SubtractOp:
		return true
	}
	return false
}

// isKeyPartitioned returns true iff this operator leaves its output
// hash-partitioned by key, permitting single-partition Lookup
func (k OpKind) isKeyPartitioned() bool {
	switch k {
	case GroupByKeyOp, ReduceByKeyOp, JoinOp:
		return true
	}
	return false
}
