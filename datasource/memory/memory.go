// Package memory provides an in-memory DataSource for Drift, splitting a
// slice of rows deterministically into contiguous partitions.
package memory

import (
	"github.com/go-drift/drift"
)

// CreateConf configures an in-memory Dataset
type CreateConf struct {
	// NumPartitions is the number of contiguous slices to split the data
	// into; defaults to 1
	NumPartitions int
	// Parallelism bounds concurrent partition tasks during actions;
	// defaults to the number of CPUs
	Parallelism int
}

// dataSource is a deterministic in-memory DataSource: partition i holds the
// contiguous element range [i*n/p, (i+1)*n/p), preserving input order
type dataSource struct {
	data          []drift.Row
	numPartitions int
}

// NumPartitions returns the number of partitions this source produces
func (s *dataSource) NumPartitions() int {
	return s.numPartitions
}

// PartitionRows returns one contiguous slice of the source data
func (s *dataSource) PartitionRows(idx int) ([]drift.Row, error) {
	n, p := len(s.data), s.numPartitions
	lo, hi := idx*n/p, (idx+1)*n/p
	rows := make([]drift.Row, hi-lo)
	copy(rows, s.data[lo:hi])
	return rows, nil
}

// CreateDataset builds a Dataset over a slice of rows. The slice is copied,
// so later mutation of data does not affect the Dataset.
func CreateDataset(data []drift.Row, conf *CreateConf) *drift.Dataset {
	if conf == nil {
		conf = &CreateConf{}
	}
	numPartitions := conf.NumPartitions
	if numPartitions < 1 {
		numPartitions = 1
	}
	rows := make([]drift.Row, len(data))
	copy(rows, data)
	d := drift.FromSource(&dataSource{data: rows, numPartitions: numPartitions})
	if conf.Parallelism > 0 {
		d = d.WithParallelism(conf.Parallelism)
	}
	return d
}
