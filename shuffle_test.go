package drift_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift"
)

func kv(key, value drift.Row) drift.Row {
	return drift.KeyValue{Key: key, Value: value}
}

func addInts(left, right drift.Row) (drift.Row, error) {
	return left.(int) + right.(int), nil
}

func TestGroupByKeyCollectsAllValues(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("a", 1), kv("b", 2), kv("a", 3), kv("c", 4), kv("a", 5),
	}, 3)
	res, err := ds.GroupByKey().Collect(context.Background())
	require.Nil(t, err)
	groups := make(map[drift.Row][]drift.Row)
	for _, row := range res {
		pair := row.(drift.KeyValue)
		groups[pair.Key] = pair.Value.([]drift.Row)
	}
	require.Len(t, groups, 3)
	// within a key, original row order is preserved
	require.Equal(t, []drift.Row{1, 3, 5}, groups["a"])
	require.Equal(t, []drift.Row{2}, groups["b"])
	require.Equal(t, []drift.Row{4}, groups["c"])
}

func TestReduceByKeyIndependentOfPartitionCount(t *testing.T) {
	rows := []drift.Row{
		kv("candy1", 2), kv("candy2", 3), kv("candy1", 5), kv("candy3", 1), kv("candy2", 4),
	}
	want := map[drift.Row]drift.Row{"candy1": 7, "candy2": 7, "candy3": 1}
	for _, numPartitions := range []int{1, 2, 4} {
		res, err := createTestDataset(rows, numPartitions).ReduceByKey(addInts).CollectAsMap(context.Background())
		require.Nil(t, err)
		require.Equal(t, want, res, "numPartitions=%d", numPartitions)
	}
}

func TestSortByKeyAscending(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv(3, "c"), kv(1, "a"), kv(4, "d"), kv(2, "b"), kv(5, "e"),
	}, 2)
	res, err := ds.SortByKey(true).Collect(context.Background())
	require.Nil(t, err)
	keys := make([]int, len(res))
	for i, row := range res {
		keys[i] = row.(drift.KeyValue).Key.(int)
	}
	require.Equal(t, []int{1, 2, 3, 4, 5}, keys)
}

func TestSortByKeyDescending(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv("b", 2), kv("d", 4), kv("a", 1), kv("c", 3),
	}, 2)
	res, err := ds.SortByKey(false).Collect(context.Background())
	require.Nil(t, err)
	keys := make([]string, len(res))
	for i, row := range res {
		keys[i] = row.(drift.KeyValue).Key.(string)
	}
	require.Equal(t, []string{"d", "c", "b", "a"}, keys)
}

func TestSortByKeyEqualKeysAreStable(t *testing.T) {
	ds := createTestDataset([]drift.Row{
		kv(1, "first"), kv(2, "x"), kv(1, "second"), kv(1, "third"),
	}, 2)
	res, err := ds.SortByKey(true).Collect(context.Background())
	require.Nil(t, err)
	require.Equal(t, []drift.Row{
		kv(1, "first"), kv(1, "second"), kv(1, "third"), kv(2, "x"),
	}, res)
}

func TestJoinEmitsOneRowPerMatchingPair(t *testing.T) {
	left := createTestDataset([]drift.Row{
		kv("a", 1), kv("b", 2), kv("a", 3),
	}, 2)
	right := createTestDataset([]drift.Row{
		kv("a", "x"), kv("a", "y"), kv("c", "z"),
	}, 2)
	res, err := left.Join(right).Collect(context.Background())
	require.Nil(t, err)
	matches := make(map[[3]interface{}]int)
	for _, row := range res {
		pair := row.(drift.KeyValue)
		tuple := pair.Value.(drift.Tuple)
		matches[[3]interface{}{pair.Key, tuple.Left, tuple.Right}]++
	}
	require.Len(t, res, 4)
	require.Equal(t, 1, matches[[3]interface{}{"a", 1, "x"}])
	require.Equal(t, 1, matches[[3]interface{}{"a", 1, "y"}])
	require.Equal(t, 1, matches[[3]interface{}{"a", 3, "x"}])
	require.Equal(t, 1, matches[[3]interface{}{"a", 3, "y"}])
}

func TestDistinctRemovesDuplicates(t *testing.T) {
	ds := createTestDataset([]drift.Row{1, 2, 2, 3, 1, 3, 3, 4}, 3)
	res, err := ds.Distinct().Collect(context.Background())
	require.Nil(t, err)
	require.ElementsMatch(t, []drift.Row{1, 2, 3, 4}, res)
}

func TestIntersectionDeduplicates(t *testing.T) {
	left := createTestDataset([]drift.Row{1, 2, 2, 3, 4}, 2)
	right := createTestDataset([]drift.Row{2, 3, 3, 5}, 2)
	res, err := left.Intersection(right).Collect(context.Background())
	require.Nil(t, err)
	require.ElementsMatch(t, []drift.Row{2, 3}, res)
}

func TestSubtractPreservesLeftDuplicates(t *testing.T) {
	left := createTestDataset([]drift.Row{1, 2, 2, 3, 4, 4}, 2)
	right := createTestDataset([]drift.Row{3, 5}, 1)
	res, err := left.Subtract(right).Collect(context.Background())
	require.Nil(t, err)
	require.ElementsMatch(t, []drift.Row{1, 2, 2, 4, 4}, res)
}

func TestShuffleAfterNarrowChain(t *testing.T) {
	ds := createTestDataset(intRows(1, 20), 4).
		Filter(func(row drift.Row) (bool, error) { return row.(int)%2 == 0, nil }).
		Map(func(row drift.Row) (drift.Row, error) { return kv(row.(int)%4, row.(int)), nil }).
		ReduceByKey(addInts)
	res, err := ds.CollectAsMap(context.Background())
	require.Nil(t, err)
	// evens 2..20: key 0 holds multiples of 4, key 2 the rest
	require.Equal(t, map[drift.Row]drift.Row{0: 60, 2: 50}, res)
}

func TestGroupByKeyRequiresKeyValueRows(t *testing.T) {
	ds := createTestDataset(intRows(1, 5), 2)
	_, err := ds.GroupByKey().Collect(context.Background())
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "key/value rows")
}

func TestDistinctSeparatesStructurallyDifferentPairs(t *testing.T) {
	// same flat rendering, different field boundaries
	rows := []drift.Row{kv("a b", ""), kv("a", "b "), kv("a b", "")}
	res, err := createTestDataset(rows, 2).Distinct().Collect(context.Background())
	require.Nil(t, err)
	require.ElementsMatch(t, []drift.Row{kv("a b", ""), kv("a", "b ")}, res)
}
