package drift_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift"
	drifterrors "github.com/go-drift/drift/errors"
)

func TestUserFunctionErrorCarriesPartitionAndOffset(t *testing.T) {
	boom := errors.New("boom")
	ds := createTestDataset(intRows(1, 10), 2).Map(func(row drift.Row) (drift.Row, error) {
		if row.(int) == 8 {
			return nil, boom
		}
		return row, nil
	})
	_, err := ds.Collect(context.Background())
	require.NotNil(t, err)
	var ufe drifterrors.UserFunctionError
	require.True(t, errors.As(err, &ufe))
	// rows 6..10 live in partition 1; 8 is its third row
	require.Equal(t, 1, ufe.Partition)
	require.Equal(t, 2, ufe.Offset)
	require.True(t, errors.Is(err, boom))
}

func TestUserFunctionPanicIsRecovered(t *testing.T) {
	ds := createTestDataset(intRows(1, 4), 1).Map(func(row drift.Row) (drift.Row, error) {
		if row.(int) == 3 {
			panic("user panic")
		}
		return row, nil
	})
	_, err := ds.Collect(context.Background())
	require.NotNil(t, err)
	var ufe drifterrors.UserFunctionError
	require.True(t, errors.As(err, &ufe))
	require.Contains(t, ufe.Err.Error(), "user panic")
}

func TestActionFailsAtomically(t *testing.T) {
	ds := createTestDataset(intRows(1, 10), 4).Filter(func(row drift.Row) (bool, error) {
		if row.(int) == 9 {
			return false, fmt.Errorf("predicate failed")
		}
		return true, nil
	})
	res, err := ds.Collect(context.Background())
	require.NotNil(t, err)
	require.Nil(t, res)
}

func TestShuffleSideShapeError(t *testing.T) {
	// mixed key kinds cannot be range-partitioned
	ds := createTestDataset([]drift.Row{
		kv(1, "a"), kv("two", "b"),
	}, 1).SortByKey(true)
	_, err := ds.Collect(context.Background())
	require.NotNil(t, err)
	require.IsType(t, drifterrors.TypeShapeError{}, err)
}

func TestReduceUserErrorSurfaces(t *testing.T) {
	ds := createTestDataset(intRows(1, 10), 2)
	_, err := ds.Reduce(context.Background(), func(left, right drift.Row) (drift.Row, error) {
		return nil, fmt.Errorf("bad reduction")
	})
	require.NotNil(t, err)
	var ufe drifterrors.UserFunctionError
	require.True(t, errors.As(err, &ufe))
}
