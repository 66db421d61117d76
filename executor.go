package drift

import (
	"context"
	"log"

	uuid "github.com/gofrs/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/go-drift/drift/logging"
)

// sharedLogger is the engine-wide leveled logger; quiet unless raised
var sharedLogger = logging.New(logging.WarnLevel)

// SetLogLevel adjusts the verbosity of the engine's logger. DebugLevel traces
// stage scheduling.
func SetLogLevel(level int) {
	sharedLogger.SetLevel(level)
}

// An executor drives a single action: it materializes Dataset partitions in
// dependency order, running each stage's partition tasks over a bounded
// worker pool. Materialized partitions are memoized for the lifetime of the
// action only, so shared DAG nodes are computed once per run and repeated
// actions recompute from scratch.
type executor struct {
	id          string
	ctx         context.Context
	plan        *plan
	memo        map[string][]*partition
	parallelism int
	logger      *logging.Logger
}

// createExecutor is a factory for executors, one per action invocation
func createExecutor(ctx context.Context, target *Dataset) *executor {
	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("failed to generate UUID: %v", err)
	}
	workers := target.parallelism
	if workers < 1 {
		workers = 1
	}
	return &executor{
		id:          id.String(),
		ctx:         ctx,
		plan:        createPlan(target),
		memo:        make(map[string][]*partition),
		parallelism: workers,
		logger:      sharedLogger,
	}
}

// materialize computes every partition of d, in index order. Results are
// memoized per run; cache-pinned Datasets additionally consult the
// cross-action partition cache.
func (e *executor) materialize(d *Dataset) ([]*partition, error) {
	if err := e.ctx.Err(); err != nil {
		return nil, err
	}
	if parts, ok := e.memo[d.id]; ok {
		return parts, nil
	}
	if d.cached {
		if parts, ok := cacheFetch(d.id); ok {
			e.logger.Debugf("executor %s: dataset %s served from cache", e.id, d.id)
			e.memo[d.id] = parts
			return parts, nil
		}
	}
	var parts []*partition
	var err error
	switch {
	case d.kind == SourceOp:
		parts, err = e.loadSource(d)
	case d.kind == UnionOp:
		parts, err = e.mergeUnion(d)
	case d.kind.isShuffle():
		parts, err = e.shuffle(d)
	default:
		st := e.plan.stageFor(d)
		var in []*partition
		in, err = e.materialize(st.boundary)
		if err == nil {
			parts, err = e.runStage(st, in)
		}
	}
	if err != nil {
		return nil, err
	}
	e.memo[d.id] = parts
	if d.cached {
		cacheStore(d.id, parts)
	}
	return parts, nil
}

// loadSource builds the partitions of a Source Dataset from its DataSource,
// loading partitions concurrently
func (e *executor) loadSource(d *Dataset) ([]*partition, error) {
	n := d.source.NumPartitions()
	parts := make([]*partition, n)
	g, ctx := errgroup.WithContext(e.ctx)
	g.SetLimit(e.parallelism)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rows, err := d.source.PartitionRows(i)
			if err != nil {
				return err
			}
			parts[i] = createPartition(i, rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// mergeUnion concatenates the partitions of a union's two parents, left then
// right, reindexed
func (e *executor) mergeUnion(d *Dataset) ([]*partition, error) {
	left, err := e.materialize(d.parent)
	if err != nil {
		return nil, err
	}
	right, err := e.materialize(d.other)
	if err != nil {
		return nil, err
	}
	parts := make([]*partition, 0, len(left)+len(right))
	for _, p := range left {
		parts = append(parts, createPartition(len(parts), p.rows))
	}
	for _, p := range right {
		parts = append(parts, createPartition(len(parts), p.rows))
	}
	return parts, nil
}

// runStage executes a stage's partition tasks over the worker pool. An
// erroring task cancels the pool's context, which stops further tasks from
// being scheduled; in-flight tasks run to completion and their results are
// discarded with the rest of the run.
func (e *executor) runStage(st *stage, in []*partition) ([]*partition, error) {
	if len(st.frames) == 0 {
		return in, nil
	}
	e.logger.Debugf("executor %s: running %s over %d partitions", e.id, st, len(in))
	out := make([]*partition, len(in))
	g, ctx := errgroup.WithContext(e.ctx)
	g.SetLimit(e.parallelism)
	for i, part := range in {
		i, part := i, part
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next, err := st.execute(part)
			if err != nil {
				return err
			}
			out[i] = next
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// collectLimit draws the target's partitions strictly in index order, one at
// a time, stopping as soon as limit rows exist. Narrow work is pulled lazily
// through source and union boundaries, so an early stop never loads more
// upstream partitions than it needs; shuffle boundaries still materialize in
// full, since a shuffle needs every upstream row.
func (e *executor) collectLimit(d *Dataset, limit int) ([]Row, error) {
	if d.cached {
		if parts, ok := cacheFetch(d.id); ok {
			e.logger.Debugf("executor %s: dataset %s served from cache", e.id, d.id)
			rows := make([]Row, 0, limit)
			for _, part := range parts {
				rows = append(rows, part.rows...)
				if len(rows) >= limit {
					return rows[:limit], nil
				}
			}
			return rows, nil
		}
	}
	pull := e.lazyPartitions(d)
	rows := make([]Row, 0, limit)
	for {
		if err := e.ctx.Err(); err != nil {
			return nil, err
		}
		part, err := pull()
		if err != nil {
			return nil, err
		}
		if part == nil {
			return rows, nil
		}
		rows = append(rows, part.rows...)
		if len(rows) >= limit {
			return rows[:limit], nil
		}
	}
}

// A partitionIter draws the partitions of one Dataset in index order,
// returning nil once exhausted
type partitionIter func() (*partition, error)

// lazyPartitions yields the partitions of d one at a time, running d's narrow
// operator chain per partition as it goes. Source partitions are loaded on
// demand; a union pulls its left parent's partitions to exhaustion before
// touching the right parent. Shuffle, cached and shared boundaries fall back
// to full materialization, which memoizes as usual.
func (e *executor) lazyPartitions(d *Dataset) partitionIter {
	st := e.plan.stageFor(d)
	b := st.boundary
	var pull partitionIter
	switch {
	case b.cached || b.kind.isShuffle():
		pull = e.materializedIter(b)
	case b.kind == SourceOp:
		i := 0
		pull = func() (*partition, error) {
			if i >= b.source.NumPartitions() {
				return nil, nil
			}
			rows, err := b.source.PartitionRows(i)
			if err != nil {
				return nil, err
			}
			part := createPartition(i, rows)
			i++
			return part, nil
		}
	case b.kind == UnionOp:
		left, right := e.lazyPartitions(b.parent), e.lazyPartitions(b.other)
		idx := 0
		pull = func() (*partition, error) {
			part, err := left()
			if err != nil {
				return nil, err
			}
			if part == nil {
				part, err = right()
				if err != nil {
					return nil, err
				}
			}
			if part == nil {
				return nil, nil
			}
			part = createPartition(idx, part.rows)
			idx++
			return part, nil
		}
	default:
		// a node shared by multiple downstream chains
		pull = e.materializedIter(b)
	}
	if len(st.frames) == 0 {
		return pull
	}
	return func() (*partition, error) {
		part, err := pull()
		if err != nil || part == nil {
			return part, err
		}
		return st.execute(part)
	}
}

// materializedIter adapts a fully materialized Dataset to a partitionIter,
// deferring the materialization until the first pull
func (e *executor) materializedIter(d *Dataset) partitionIter {
	var parts []*partition
	loaded := false
	i := 0
	return func() (*partition, error) {
		if !loaded {
			var err error
			parts, err = e.materialize(d)
			if err != nil {
				return nil, err
			}
			loaded = true
		}
		if i >= len(parts) {
			return nil, nil
		}
		part := parts[i]
		i++
		return part, nil
	}
}
