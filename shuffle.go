package drift

import (
	"sort"

	"golang.org/x/sync/errgroup"
)

// The shuffle engine: given the fully materialized partitions of a shuffle
// operator's parent(s), redistribute rows into this Dataset's target
// partition count and apply the per-operator merge. A shuffle is the single
// synchronization point of a run; shuffle output partition contents are
// deterministic for deterministic inputs.

// shuffle dispatches one shuffle operator. Panics raised while hashing or
// comparing rows (an uncomparable key used as a map key, for example) are
// surfaced as driver-side UserFunctionErrors, failing the action atomically.
func (e *executor) shuffle(d *Dataset) (parts []*partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			parts, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	in, merr := e.materialize(d.parent)
	if merr != nil {
		return nil, merr
	}
	n := d.numPartitions
	if n < 1 {
		n = 1
	}
	switch d.kind {
	case GroupByKeyOp:
		return groupByKey(in, n)
	case ReduceByKeyOp:
		return e.reduceByKey(d, in, n)
	case SortByKeyOp:
		return sortByKey(in, n, d.ascending)
	case DistinctOp:
		return distinctRows(in, n), nil
	case JoinOp, IntersectionOp, SubtractOp:
		other, merr := e.materialize(d.other)
		if merr != nil {
			return nil, merr
		}
		switch d.kind {
		case JoinOp:
			return joinByKey(in, other, n)
		case IntersectionOp:
			return intersectRows(in, other, n), nil
		default:
			return subtractRows(in, other, n), nil
		}
	}
	return nil, errTypeShape(string(d.kind))
}

// keyGroup accumulates the values sharing one key, in arrival order
type keyGroup struct {
	key    Row
	values []Row
}

// bucketGroups hash-partitions key/value rows by key into n buckets of
// insertion-ordered key groups
func bucketGroups(op string, in []*partition, n int) ([][]*keyGroup, error) {
	groups := make([][]*keyGroup, n)
	pos := make([]map[Row]int, n)
	for i := range pos {
		pos[i] = make(map[Row]int)
	}
	for _, part := range in {
		for _, row := range part.rows {
			kv, err := asKeyValue(op, row)
			if err != nil {
				return nil, err
			}
			b := bucketFor(hashRow(kv.Key), n)
			idx, ok := pos[b][kv.Key]
			if !ok {
				idx = len(groups[b])
				pos[b][kv.Key] = idx
				groups[b] = append(groups[b], &keyGroup{key: kv.Key})
			}
			groups[b][idx].values = append(groups[b][idx].values, kv.Value)
		}
	}
	return groups, nil
}

// groupByKey collects all values sharing a key into one (key, []Row) row.
// Within a key, original partition-then-row order is preserved.
func groupByKey(in []*partition, n int) ([]*partition, error) {
	groups, err := bucketGroups("GroupByKey", in, n)
	if err != nil {
		return nil, err
	}
	parts := make([]*partition, n)
	for b := range groups {
		rows := make([]Row, len(groups[b]))
		for i, g := range groups[b] {
			rows[i] = KeyValue{Key: g.key, Value: g.values}
		}
		parts[b] = createPartition(b, rows)
	}
	return parts, nil
}

// reduceByKey folds all values sharing a key into one. A map-side combine
// runs inside each source partition first, so only one partial row per
// distinct key per source partition crosses the shuffle; a final combine then
// folds partials sharing a key across partitions.
func (e *executor) reduceByKey(d *Dataset, in []*partition, n int) ([]*partition, error) {
	combined := make([]*partition, len(in))
	g, ctx := errgroup.WithContext(e.ctx)
	g.SetLimit(e.parallelism)
	for i, part := range in {
		i, part := i, part
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next, err := localCombine(part, d.reduceFn)
			if err != nil {
				return err
			}
			combined[i] = next
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	groups, err := bucketGroups("ReduceByKey", combined, n)
	if err != nil {
		return nil, err
	}
	parts := make([]*partition, n)
	for b := range groups {
		rows := make([]Row, len(groups[b]))
		for i, grp := range groups[b] {
			acc := grp.values[0]
			for _, v := range grp.values[1:] {
				merged, err := d.reduceFn(acc, v)
				if err != nil {
					return nil, userError(-1, -1, err)
				}
				acc = merged
			}
			rows[i] = KeyValue{Key: grp.key, Value: acc}
		}
		parts[b] = createPartition(b, rows)
	}
	return parts, nil
}

// localCombine folds same-key rows left-to-right within one partition
func localCombine(part *partition, fn ReductionOperation) (next *partition, err error) {
	defer func() {
		if r := recover(); r != nil {
			next, err = nil, userError(part.index, -1, recovered(r))
		}
	}()
	pos := make(map[Row]int)
	var order []KeyValue
	for i, row := range part.rows {
		kv, kerr := asKeyValue("ReduceByKey", row)
		if kerr != nil {
			return nil, kerr
		}
		idx, ok := pos[kv.Key]
		if !ok {
			pos[kv.Key] = len(order)
			order = append(order, kv)
			continue
		}
		merged, ferr := fn(order[idx].Value, kv.Value)
		if ferr != nil {
			return nil, userError(part.index, i, ferr)
		}
		order[idx].Value = merged
	}
	rows := make([]Row, len(order))
	for i, kv := range order {
		rows[i] = kv
	}
	return createPartition(part.index, rows), nil
}

// sortByKey range-partitions key/value rows by key and sorts within each
// partition: the globally key-sorted row sequence is sliced into n contiguous
// chunks, which is range partitioning with quantile boundaries. Equal keys
// keep their partition-then-row arrival order.
func sortByKey(in []*partition, n int, ascending bool) ([]*partition, error) {
	var pairs []KeyValue
	for _, part := range in {
		for _, row := range part.rows {
			kv, err := asKeyValue("SortByKey", row)
			if err != nil {
				return nil, err
			}
			pairs = append(pairs, kv)
		}
	}
	// validate key ordering up-front so the sort comparator cannot fail
	for _, kv := range pairs {
		if _, err := compareKeys("SortByKey", pairs[0].Key, kv.Key); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		c, _ := compareKeys("SortByKey", pairs[i].Key, pairs[j].Key)
		if ascending {
			return c < 0
		}
		return c > 0
	})
	parts := make([]*partition, n)
	m := len(pairs)
	for b := 0; b < n; b++ {
		lo, hi := b*m/n, (b+1)*m/n
		rows := make([]Row, hi-lo)
		for i := lo; i < hi; i++ {
			rows[i-lo] = pairs[i]
		}
		parts[b] = createPartition(b, rows)
	}
	return parts, nil
}

// joinByKey co-partitions both inputs by key hash and hash-joins within each
// partition, emitting one (key, Tuple{left, right}) row per matching pair.
// Inner join only: keys absent on either side emit nothing.
func joinByKey(left, right []*partition, n int) ([]*partition, error) {
	rightGroups, err := bucketGroups("Join", right, n)
	if err != nil {
		return nil, err
	}
	rightPos := make([]map[Row]int, n)
	for b := range rightGroups {
		rightPos[b] = make(map[Row]int, len(rightGroups[b]))
		for i, g := range rightGroups[b] {
			rightPos[b][g.key] = i
		}
	}
	buckets := make([][]Row, n)
	for _, part := range left {
		for _, row := range part.rows {
			kv, err := asKeyValue("Join", row)
			if err != nil {
				return nil, err
			}
			b := bucketFor(hashRow(kv.Key), n)
			idx, ok := rightPos[b][kv.Key]
			if !ok {
				continue
			}
			for _, rv := range rightGroups[b][idx].values {
				buckets[b] = append(buckets[b], KeyValue{Key: kv.Key, Value: Tuple{Left: kv.Value, Right: rv}})
			}
		}
	}
	return bucketsToPartitions(buckets), nil
}

// distinctRows shuffles by whole-row hash and keeps the first occurrence of
// each distinct hash within each target partition
func distinctRows(in []*partition, n int) []*partition {
	buckets := make([][]Row, n)
	seen := make([]map[uint64]bool, n)
	for i := range seen {
		seen[i] = make(map[uint64]bool)
	}
	for _, part := range in {
		for _, row := range part.rows {
			h := hashRow(row)
			b := bucketFor(h, n)
			if seen[b][h] {
				continue
			}
			seen[b][h] = true
			buckets[b] = append(buckets[b], row)
		}
	}
	return bucketsToPartitions(buckets)
}

// intersectRows emits each row appearing in both inputs exactly once
func intersectRows(left, right []*partition, n int) []*partition {
	inRight := rowHashSet(right, n)
	buckets := make([][]Row, n)
	emitted := make([]map[uint64]bool, n)
	for i := range emitted {
		emitted[i] = make(map[uint64]bool)
	}
	for _, part := range left {
		for _, row := range part.rows {
			h := hashRow(row)
			b := bucketFor(h, n)
			if !inRight[b][h] || emitted[b][h] {
				continue
			}
			emitted[b][h] = true
			buckets[b] = append(buckets[b], row)
		}
	}
	return bucketsToPartitions(buckets)
}

// subtractRows emits each left row whose hash is absent from the right input,
// preserving left-side duplicates
func subtractRows(left, right []*partition, n int) []*partition {
	inRight := rowHashSet(right, n)
	buckets := make([][]Row, n)
	for _, part := range left {
		for _, row := range part.rows {
			h := hashRow(row)
			b := bucketFor(h, n)
			if inRight[b][h] {
				continue
			}
			buckets[b] = append(buckets[b], row)
		}
	}
	return bucketsToPartitions(buckets)
}

// rowHashSet buckets the whole-row hashes of every input row
func rowHashSet(in []*partition, n int) []map[uint64]bool {
	set := make([]map[uint64]bool, n)
	for i := range set {
		set[i] = make(map[uint64]bool)
	}
	for _, part := range in {
		for _, row := range part.rows {
			h := hashRow(row)
			set[bucketFor(h, n)][h] = true
		}
	}
	return set
}

// bucketsToPartitions wraps per-bucket row slices as indexed partitions
func bucketsToPartitions(buckets [][]Row) []*partition {
	parts := make([]*partition, len(buckets))
	for b, rows := range buckets {
		if rows == nil {
			rows = []Row{}
		}
		parts[b] = createPartition(b, rows)
	}
	return parts
}
