// Package file provides a line-delimited text file DataSource for Drift: one
// line per row, in file order, partitioned deterministically.
package file

import (
	"bufio"
	"os"
	"sync"

	"github.com/go-drift/drift"
)

// CreateConf configures a text file Dataset
type CreateConf struct {
	// NumPartitions is the number of contiguous line ranges to split the
	// file into; defaults to 1
	NumPartitions int
	// Parallelism bounds concurrent partition tasks during actions;
	// defaults to the number of CPUs
	Parallelism int
}

// dataSource reads a text file once at first use and serves contiguous line
// ranges as partitions. Partitions are loaded concurrently, so the read is
// guarded by a sync.Once.
type dataSource struct {
	path          string
	numPartitions int
	once          sync.Once
	lines         []drift.Row
	loadErr       error
}

// NumPartitions returns the number of partitions this source produces
func (s *dataSource) NumPartitions() int {
	return s.numPartitions
}

// PartitionRows returns one contiguous range of the file's lines
func (s *dataSource) PartitionRows(idx int) ([]drift.Row, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	n, p := len(s.lines), s.numPartitions
	lo, hi := idx*n/p, (idx+1)*n/p
	rows := make([]drift.Row, hi-lo)
	copy(rows, s.lines[lo:hi])
	return rows, nil
}

func (s *dataSource) load() error {
	s.once.Do(func() {
		f, err := os.Open(s.path)
		if err != nil {
			s.loadErr = err
			return
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		var lines []drift.Row
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			s.loadErr = err
			return
		}
		s.lines = lines
	})
	return s.loadErr
}

// CreateDataset builds a Dataset of line strings over a text file. The file
// is not touched until an action materializes the source.
func CreateDataset(path string, conf *CreateConf) *drift.Dataset {
	if conf == nil {
		conf = &CreateConf{}
	}
	numPartitions := conf.NumPartitions
	if numPartitions < 1 {
		numPartitions = 1
	}
	d := drift.FromSource(&dataSource{path: path, numPartitions: numPartitions})
	if conf.Parallelism > 0 {
		d = d.WithParallelism(conf.Parallelism)
	}
	return d
}
