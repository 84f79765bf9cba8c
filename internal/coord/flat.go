package coord

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

const (
	// Each entry: lat (int32) + lon (int32) as fixed-point value*1e7.
	flatEntrySize = 8
	// Sparse file sized for node ids up to 10 billion. Disk usage only
	// grows with pages actually written.
	flatMaxNodeID = 10_000_000_000
)

// FlatStore is a memory-mapped flat-nodes coordinate store. Lookups are
// O(1) at offset id*8. Concurrent Puts are safe because distinct node
// ids write distinct offsets.
//
// Fixed-point storage means (0,0) is indistinguishable from "absent";
// a node at null island loses geometry, which matches the usual
// flat-nodes trade-off.
type FlatStore struct {
	file  *os.File
	data  mmap.MMap
	path  string
	keep  bool
	count atomic.Int64
}

// NewFlatStore creates (truncating) a flat-nodes file at path.
func NewFlatStore(path string, keep bool) (*FlatStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("create flat-nodes file: %w", err)
	}

	size := int64(flatMaxNodeID) * flatEntrySize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("size flat-nodes file: %w", err)
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("map flat-nodes file: %w", err)
	}

	return &FlatStore{file: f, data: data, path: path, keep: keep}, nil
}

func (s *FlatStore) Put(id int64, lat, lon float64) {
	if id < 0 || id >= flatMaxNodeID {
		return
	}
	offset := id * flatEntrySize
	binary.LittleEndian.PutUint32(s.data[offset:], uint32(int32(lat*1e7)))
	binary.LittleEndian.PutUint32(s.data[offset+4:], uint32(int32(lon*1e7)))
	s.count.Add(1)
}

func (s *FlatStore) Get(id int64) (float64, float64, bool) {
	if id < 0 || id >= flatMaxNodeID {
		return 0, 0, false
	}
	offset := id * flatEntrySize
	latInt := int32(binary.LittleEndian.Uint32(s.data[offset:]))
	lonInt := int32(binary.LittleEndian.Uint32(s.data[offset+4:]))
	if latInt == 0 && lonInt == 0 {
		return 0, 0, false
	}
	return float64(latInt) / 1e7, float64(lonInt) / 1e7, true
}

func (s *FlatStore) Len() int { return int(s.count.Load()) }

func (s *FlatStore) Flush() error {
	if err := s.data.Flush(); err != nil {
		return fmt.Errorf("sync flat-nodes file: %w", err)
	}
	return nil
}

func (s *FlatStore) Close() error {
	if err := s.data.Unmap(); err != nil {
		s.file.Close()
		return err
	}
	err := s.file.Close()
	if !s.keep {
		os.Remove(s.path)
	}
	return err
}
