package drift_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift"
	drifterrors "github.com/go-drift/drift/errors"
)

func TestCount(t *testing.T) {
	ds := createTestDataset(intRows(1, 10), 2)
	n, err := ds.Count(context.Background())
	require.Nil(t, err)
	require.EqualValues(t, 10, n)
}

func TestTakeReturnsLeadingRows(t *testing.T) {
	ds := createTestDataset(intRows(1, 10), 2)
	res, err := ds.Take(context.Background(), 6)
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 2, 3, 4, 5, 6}, res)
}

func TestTakeMoreThanAvailable(t *testing.T) {
	ds := createTestDataset(intRows(1, 3), 2)
	res, err := ds.Take(context.Background(), 10)
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 2, 3}, res)
}

func TestTakeStopsIssuingPartitionTasks(t *testing.T) {
	var touched []int
	ds := createTestDataset(intRows(1, 100), 10).
		MapPartitions(func(pctx *drift.PartitionContext, rows []drift.Row) ([]drift.Row, error) {
			touched = append(touched, pctx.PartitionIndex())
			return rows, nil
		})
	res, err := ds.Take(context.Background(), 5)
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 2, 3, 4, 5}, res)
	// partitions hold 10 rows each; the first already satisfies the take
	require.Equal(t, []int{0}, touched)
}

func TestFirst(t *testing.T) {
	ds := createTestDataset([]drift.Row{"x", "y"}, 2)
	row, err := ds.First(context.Background())
	require.Nil(t, err)
	require.Equal(t, "x", row)
}

func TestFirstSkipsEmptyPartitions(t *testing.T) {
	// filter empties the first partitions; First must advance past them
	ds := createTestDataset(intRows(1, 20), 4).Filter(func(row drift.Row) (bool, error) {
		return row.(int) > 15, nil
	})
	row, err := ds.First(context.Background())
	require.Nil(t, err)
	require.Equal(t, 16, row)
}

func TestFirstOnEmptyDataset(t *testing.T) {
	ds := createTestDataset([]drift.Row{}, 2)
	_, err := ds.First(context.Background())
	require.NotNil(t, err)
	require.IsType(t, drifterrors.EmptyDatasetError{}, err)
}

func TestReduceSumsAllRows(t *testing.T) {
	ds := createTestDataset(intRows(1, 100), 7)
	res, err := ds.Reduce(context.Background(), addInts)
	require.Nil(t, err)
	require.Equal(t, 5050, res)
}

func TestReduceOnEmptyDataset(t *testing.T) {
	ds := createTestDataset([]drift.Row{}, 3)
	_, err := ds.Reduce(context.Background(), addInts)
	require.NotNil(t, err)
	require.IsType(t, drifterrors.EmptyDatasetError{}, err)
}

func TestReduceSkipsEmptyPartitions(t *testing.T) {
	ds := createTestDataset(intRows(1, 3), 5)
	res, err := ds.Reduce(context.Background(), addInts)
	require.Nil(t, err)
	require.Equal(t, 6, res)
}

func lessInts(left, right drift.Row) bool {
	return left.(int) < right.(int)
}

func TestTakeOrdered(t *testing.T) {
	ds := createTestDataset([]drift.Row{9, 1, 8, 2, 7, 3, 6, 4, 10, 5}, 3)
	res, err := ds.TakeOrdered(context.Background(), 4, lessInts)
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 2, 3, 4}, res)
}

func TestTop(t *testing.T) {
	ds := createTestDataset(intRows(1, 10), 3)
	res, err := ds.Top(context.Background(), 4, lessInts)
	require.Nil(t, err)
	require.Equal(t, []drift.Row{10, 9, 8, 7}, res)
}

func TestCountByKey(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("candy1", 5.2), kv("candy2", 3.5), kv("candy1", 2.0), kv("candy3", 6.0),
	}, 2)
	res, err := ds.CountByKey(context.Background())
	require.Nil(t, err)
	require.Equal(t, map[drift.Row]int64{"candy1": 2, "candy2": 1, "candy3": 1}, res)
}

func TestCountByValue(t *testing.T) {
	ds := createTestDataset([]drift.Row{"a", "b", "a", "a"}, 2)
	res, err := ds.CountByValue(context.Background())
	require.Nil(t, err)
	require.Equal(t, map[drift.Row]int64{"a": 3, "b": 1}, res)
}

func TestCollectAsMapLastWriteWins(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("a", 1), kv("b", 2), kv("a", 3),
	}, 1)
	res, err := ds.CollectAsMap(context.Background())
	require.Nil(t, err)
	require.Equal(t, map[drift.Row]drift.Row{"a": 3, "b": 2}, res)
}

func TestLookup(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("a", 1), kv("b", 2), kv("a", 3),
	}, 3)
	values, err := ds.Lookup(context.Background(), "a")
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 3}, values)
	values, err = ds.Lookup(context.Background(), "missing")
	require.Nil(t, err)
	require.Empty(t, values)
}

func TestLookupOnKeyPartitionedDataset(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("a", 1), kv("b", 2), kv("a", 3), kv("c", 4),
	}, 2).ReduceByKey(addInts)
	values, err := ds.Lookup(context.Background(), "a")
	require.Nil(t, err)
	require.Equal(t, []drift.Row{4}, values)
}

func TestCollectIsIdempotent(t *testing.T) {
	ds := createTestDataset(intRows(1, 50), 4).Map(func(row drift.Row) (drift.Row, error) {
		return row.(int) * 3, nil
	})
	first, err := ds.Collect(context.Background())
	require.Nil(t, err)
	second, err := ds.Collect(context.Background())
	require.Nil(t, err)
	require.Equal(t, first, second)
}

func TestCountByKeyRequiresKeyValueRows(t *testing.T) {
	ds := createTestDataset(intRows(1, 3), 1)
	_, err := ds.CountByKey(context.Background())
	require.NotNil(t, err)
	require.IsType(t, drifterrors.TypeShapeError{}, err)
}
