// Package jsonl provides a line-delimited JSON DataSource for Drift. Each
// line is parsed lazily with gjson; a key path and a value path project every
// line onto a key/value row, ready for the key-based operations.
package jsonl

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/go-drift/drift"
)

// CreateConf configures a JSON Lines Dataset
type CreateConf struct {
	// KeyPath is the gjson path projected to each row's key
	KeyPath string
	// ValuePath is the gjson path projected to each row's value; when empty
	// the whole line's parsed value is used
	ValuePath string
	// NumPartitions is the number of contiguous line ranges to split the
	// file into; defaults to 1
	NumPartitions int
	// Parallelism bounds concurrent partition tasks during actions;
	// defaults to the number of CPUs
	Parallelism int
}

// dataSource reads a JSON Lines file once and serves contiguous line ranges
// as partitions of key/value rows
type dataSource struct {
	path          string
	conf          *CreateConf
	numPartitions int
	once          sync.Once
	rows          []drift.Row
	loadErr       error
}

// NumPartitions returns the number of partitions this source produces
func (s *dataSource) NumPartitions() int {
	return s.numPartitions
}

// PartitionRows returns one contiguous range of the file's parsed rows
func (s *dataSource) PartitionRows(idx int) ([]drift.Row, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	n, p := len(s.rows), s.numPartitions
	lo, hi := idx*n/p, (idx+1)*n/p
	rows := make([]drift.Row, hi-lo)
	copy(rows, s.rows[lo:hi])
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
		var rows []drift.Row
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := scanner.Text()
			if !gjson.Valid(line) {
				s.loadErr = fmt.Errorf("invalid JSON on line %d of %s", lineNo, s.path)
				return
			}
			key := gjson.Get(line, s.conf.KeyPath).Value()
			var value interface{}
			if s.conf.ValuePath == "" {
				value = gjson.Parse(line).Value()
			} else {
				value = gjson.Get(line, s.conf.ValuePath).Value()
			}
			rows = append(rows, drift.KeyValue{Key: key, Value: value})
		}
		if err := scanner.Err(); err != nil {
			s.loadErr = err
			return
		}
		s.rows = rows
	})
	return s.loadErr
}

// CreateDataset builds a key/value Dataset over a JSON Lines file. The file
// is not touched until an action materializes the source.
func CreateDataset(path string, conf *CreateConf) *drift.Dataset {
	if conf == nil {
		conf = &CreateConf{}
	}
	numPartitions := conf.NumPartitions
	if numPartitions < 1 {
		numPartitions = 1
	}
	d := drift.FromSource(&dataSource{path: path, conf: conf, numPartitions: numPartitions})
	if conf.Parallelism > 0 {
		d = d.WithParallelism(conf.Parallelism)
	}
	return d
}
