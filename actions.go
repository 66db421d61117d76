package drift

import (
	"bufio"
	"container/heap"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/drift/errors"
)

// Actions drive an executor over the Dataset's plan and aggregate partition
// results at the driver. Every action recomputes from scratch; only Cache()
// pins results across actions.

// Collect materializes every partition in index order and concatenates their
// rows
func (d *Dataset) Collect(ctx context.Context) ([]Row, error) {
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, p := range parts {
		total += len(p.rows)
	}
	rows := make([]Row, 0, total)
	for _, p := range parts {
		rows = append(rows, p.rows...)
	}
	return rows, nil
}

// Count returns the number of rows in this Dataset, summing per-partition
// counts without concatenating rows
func (d *Dataset) Count(ctx context.Context) (int64, error) {
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, p := range parts {
		total += int64(len(p.rows))
	}
	return total, nil
}

// First returns the first row of the Dataset, materializing partitions in
// index order and stopping at the first non-empty one. Fails with
// EmptyDatasetError if no partition yields a row.
func (d *Dataset) First(ctx context.Context) (Row, error) {
	rows, err := d.Take(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.EmptyDatasetError{}
	}
	return rows[0], nil
}

// Take returns up to n rows, materializing partitions in index order and
// issuing no further partition tasks once enough rows are collected
func (d *Dataset) Take(ctx context.Context, n int) ([]Row, error) {
	if n <= 0 {
		return []Row{}, nil
	}
	e := createExecutor(ctx, d)
	return e.collectLimit(d, n)
}

// Reduce folds all rows to a single value using fn, which must be
// associative and commutative. Each partition is folded left-to-right with
// its first row as seed; the per-partition partials are then folded at the
// driver in partition-index order. Fails with EmptyDatasetError on zero rows.
func (d *Dataset) Reduce(ctx context.Context, fn ReductionOperation) (Row, error) {
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return nil, err
	}
	partials := make([]*Row, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = userError(part.index, -1, recovered(r))
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			if len(part.rows) == 0 {
				return nil
			}
			acc := part.rows[0]
			for off, row := range part.rows[1:] {
				merged, ferr := fn(acc, row)
				if ferr != nil {
					return userError(part.index, off+1, ferr)
				}
				acc = merged
			}
			partials[i] = &acc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var acc *Row
	for _, partial := range partials {
		if partial == nil {
			continue
		}
		if acc == nil {
			acc = partial
			continue
		}
		merged, err := fn(*acc, *partial)
		if err != nil {
			return nil, userError(-1, -1, err)
		}
		acc = &merged
	}
	if acc == nil {
		return nil, errors.EmptyDatasetError{}
	}
	return *acc, nil
}

// TakeOrdered returns the n smallest rows by the given ordering: each
// partition keeps a bounded heap of size n, and the driver merges the
// per-partition selections. Not a full global sort.
func (d *Dataset) TakeOrdered(ctx context.Context, n int, less Comparator) ([]Row, error) {
	if n <= 0 {
		return []Row{}, nil
	}
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return nil, err
	}
	selections := make([][]Row, len(parts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i, part := range parts {
		i, part := i, part
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = userError(part.index, -1, recovered(r))
				}
			}()
			if err := gctx.Err(); err != nil {
				return err
			}
			h := &boundedHeap{less: less, limit: n}
			for _, row := range part.rows {
				h.offer(row)
			}
			selections[i] = h.sorted()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged, err := mergeSelections(selections, less)
	if err != nil {
		return nil, err
	}
	if len(merged) > n {
		merged = merged[:n]
	}
	return merged, nil
}

// Top returns the n largest rows by the given ordering; equivalent to
// TakeOrdered with the ordering reversed
func (d *Dataset) Top(ctx context.Context, n int, less Comparator) ([]Row, error) {
	return d.TakeOrdered(ctx, n, func(left, right Row) bool {
		return less(right, left)
	})
}

// mergeSelections sorts the concatenated per-partition selections at the
// driver
func mergeSelections(selections [][]Row, less Comparator) (merged []Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			merged, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	for _, sel := range selections {
		merged = append(merged, sel...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return less(merged[i], merged[j])
	})
	return merged, nil
}

// CountByKey counts occurrences per key across all partitions of a key/value
// Dataset
func (d *Dataset) CountByKey(ctx context.Context) (counts map[Row]int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			counts, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	rows, err := d.Collect(ctx)
	if err != nil {
		return nil, err
	}
	counts = make(map[Row]int64)
	for _, row := range rows {
		kv, err := asKeyValue("CountByKey", row)
		if err != nil {
			return nil, err
		}
		counts[kv.Key]++
	}
	return counts, nil
}

// CountByValue counts occurrences of each distinct row across all partitions.
// Rows must be Go-comparable.
func (d *Dataset) CountByValue(ctx context.Context) (counts map[Row]int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			counts, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	rows, err := d.Collect(ctx)
	if err != nil {
		return nil, err
	}
	counts = make(map[Row]int64)
	for _, row := range rows {
		counts[row]++
	}
	return counts, nil
}

// CollectAsMap returns the key/value rows of this Dataset as a map. A later
// row with a duplicate key overwrites an earlier one, in
// partition-then-row order.
func (d *Dataset) CollectAsMap(ctx context.Context) (m map[Row]Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			m, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	rows, err := d.Collect(ctx)
	if err != nil {
		return nil, err
	}
	m = make(map[Row]Row)
	for _, row := range rows {
		kv, err := asKeyValue("CollectAsMap", row)
		if err != nil {
			return nil, err
		}
		m[kv.Key] = kv.Value
	}
	return m, nil
}

// Lookup returns all values associated with a key, in partition-then-row
// order, possibly empty. When this Dataset was produced by a key-hashing
// shuffle it scans only the single partition the key hashes to; otherwise it
// scans every partition.
func (d *Dataset) Lookup(ctx context.Context, key Row) (values []Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			values, err = nil, userError(-1, -1, recovered(r))
		}
	}()
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return nil, err
	}
	if d.kind.isKeyPartitioned() && len(parts) > 0 {
		target := bucketFor(hashRow(key), len(parts))
		parts = parts[target : target+1]
	}
	values = []Row{}
	for _, part := range parts {
		for _, row := range part.rows {
			kv, err := asKeyValue("Lookup", row)
			if err != nil {
				return nil, err
			}
			if kv.Key == key {
				values = append(values, kv.Value)
			}
		}
	}
	return values, nil
}

// SaveAsTextFile writes one file per partition into the target directory, one
// row rendered per line. Fails with PathExistsError if the target path
// already exists; never silently overwrites.
func (d *Dataset) SaveAsTextFile(ctx context.Context, path string) error {
	// refuse the target before computing anything
	if _, err := os.Stat(path); err == nil {
		return errors.PathExistsError{Path: path}
	} else if !os.IsNotExist(err) {
		return err
	}
	e := createExecutor(ctx, d)
	parts, err := e.materialize(d)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return err
	}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var merr *multierror.Error
	sem := make(chan struct{}, e.parallelism)
	for _, part := range parts {
		part := part
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			err := writePartitionFile(filepath.Join(path, fmt.Sprintf("part-%05d", part.index)), part)
			if err != nil {
				mu.Lock()
				merr = multierror.Append(merr, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return merr.ErrorOrNil()
}

// writePartitionFile renders one partition's rows line-by-line
func writePartitionFile(name string, part *partition) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	for _, row := range part.rows {
		if _, err := fmt.Fprintf(w, "%v\n", row); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// boundedHeap retains the limit smallest rows offered to it, using a max-heap
// so the current worst retained row is evictable in O(log n)
type boundedHeap struct {
	less  Comparator
	limit int
	rows  []Row
}

func (h *boundedHeap) Len() int            { return len(h.rows) }
func (h *boundedHeap) Less(i, j int) bool  { return h.less(h.rows[j], h.rows[i]) }
func (h *boundedHeap) Swap(i, j int)       { h.rows[i], h.rows[j] = h.rows[j], h.rows[i] }
func (h *boundedHeap) Push(x interface{})  { h.rows = append(h.rows, x) }
func (h *boundedHeap) Pop() interface{} {
	last := h.rows[len(h.rows)-1]
	h.rows = h.rows[:len(h.rows)-1]
	return last
}

// offer adds a row, evicting the largest retained row once past the limit
func (h *boundedHeap) offer(row Row) {
	if len(h.rows) < h.limit {
		heap.Push(h, row)
		return
	}
	if h.less(row, h.rows[0]) {
		h.rows[0] = row
		heap.Fix(h, 0)
	}
}

// sorted returns the retained rows in ascending order
func (h *boundedHeap) sorted() []Row {
	out := make([]Row, len(h.rows))
	copy(out, h.rows)
	sort.SliceStable(out, func(i, j int) bool { return h.less(out[i], out[j]) })
	return out
}
