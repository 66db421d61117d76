package drift_test

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/drift"
	drifterrors "github.com/go-drift/drift/errors"
)

func TestSaveAsTextFileWritesOneFilePerPartition(t *testing.T) {
	ds := createTestDataset(intRows(1, 9), 3)
	target := filepath.Join(t.TempDir(), "out")
	err := ds.SaveAsTextFile(context.Background(), target)
	require.Nil(t, err)

	names, err := filepath.Glob(filepath.Join(target, "part-*"))
	require.Nil(t, err)
	require.Len(t, names, 3)

	first, err := os.ReadFile(filepath.Join(target, "part-00000"))
	require.Nil(t, err)
	require.Equal(t, "1\n2\n3\n", string(first))
	last, err := os.ReadFile(filepath.Join(target, "part-00002"))
	require.Nil(t, err)
	require.Equal(t, "7\n8\n9\n", string(last))
}

func TestSaveAsTextFileNeverOverwrites(t *testing.T) {
	ds := createTestDataset(intRows(1, 3), 1)
	target := filepath.Join(t.TempDir(), "out")
	require.Nil(t, os.Mkdir(target, 0755))
	err := ds.SaveAsTextFile(context.Background(), target)
	require.NotNil(t, err)
	require.IsType(t, drifterrors.PathExistsError{}, err)
}

func TestSaveAsTextFileRendersPairs(t *testing.T) {
	ds := createTestDataset([]drift.Row{kv("a", 1)}, 1)
	target := filepath.Join(t.TempDir(), "out")
	require.Nil(t, ds.SaveAsTextFile(context.Background(), target))
	data, err := os.ReadFile(filepath.Join(target, "part-00000"))
	require.Nil(t, err)
	require.Equal(t, "{a 1}\n", string(data))
}

func TestSaveAsTextFileChecksTargetBeforeComputing(t *testing.T) {
	var calls int64
	ds := createTestDataset(intRows(1, 4), 2).Map(func(row drift.Row) (drift.Row, error) {
		atomic.AddInt64(&calls, 1)
		return row, nil
	})
	target := filepath.Join(t.TempDir(), "out")
	require.Nil(t, os.Mkdir(target, 0755))
	err := ds.SaveAsTextFile(context.Background(), target)
	require.IsType(t, drifterrors.PathExistsError{}, err)
	require.EqualValues(t, 0, atomic.LoadInt64(&calls))
}
