package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift"
)

func TestDataIsCopiedAtCreation(t *testing.T) {
	data := []drift.Row{1, 2, 3}
	ds := CreateDataset(data, &CreateConf{NumPartitions: 2})
	data[0] = 99
	res, err := ds.Collect(context.Background())
	require.Nil(t, err)
	require.Equal(t, []drift.Row{1, 2, 3}, res)
}

func TestDefaultsToOnePartition(t *testing.T) {
	ds := CreateDataset([]drift.Row{1, 2, 3}, nil)
	require.Equal(t, 1, ds.NumPartitions())
}

func TestEmptyDataset(t *testing.T) {
	ds := CreateDataset(nil, &CreateConf{NumPartitions: 4})
	n, err := ds.Count(context.Background())
	require.Nil(t, err)
	require.EqualValues(t, 0, n)
}
