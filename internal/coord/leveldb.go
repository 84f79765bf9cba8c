package coord

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// levelBatchSize matches the write batching used by pbf2json-style
// LevelDB caches: large enough to amortize write amplification without
// holding too much in flight.
const levelBatchSize = 50_000

// LevelStore is a disk-backed coordinate store on LevelDB. It is used
// when the input is too large for the in-memory map but the run still
// needs complete geometry. Writes are batched; Flush commits the
// remainder before the consuming pass starts.
type LevelStore struct {
	db   *leveldb.DB
	path string
	keep bool

	mu    sync.Mutex
	batch *leveldb.Batch
	count int
}

// NewLevelStore opens (or creates) a LevelDB database at dir. When keep
// is false the directory is removed on Close.
func NewLevelStore(dir string, keep bool) (*LevelStore, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("open coordinate database: %w", err)
	}
	return &LevelStore{
		db:    db,
		path:  dir,
		keep:  keep,
		batch: new(leveldb.Batch),
	}, nil
}

func encodeCoordinate(lat, lon float64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], math.Float64bits(lat))
	binary.BigEndian.PutUint64(buf[8:], math.Float64bits(lon))
	return buf
}

func encodeKey(id int64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(id))
	return key
}

func (s *LevelStore) Put(id int64, lat, lon float64) {
	s.mu.Lock()
	s.batch.Put(encodeKey(id), encodeCoordinate(lat, lon))
	var flush *leveldb.Batch
	if s.batch.Len() >= levelBatchSize {
		flush = s.batch
		s.batch = new(leveldb.Batch)
	}
	s.count++
	s.mu.Unlock()

	if flush != nil {
		// Write errors surface on Flush; LevelDB keeps the db usable.
		_ = s.db.Write(flush, nil)
	}
}

func (s *LevelStore) Get(id int64) (float64, float64, bool) {
	data, err := s.db.Get(encodeKey(id), nil)
	if err != nil || len(data) != 16 {
		return 0, 0, false
	}
	lat := math.Float64frombits(binary.BigEndian.Uint64(data[:8]))
	lon := math.Float64frombits(binary.BigEndian.Uint64(data[8:]))
	return lat, lon, true
}

func (s *LevelStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *LevelStore) Flush() error {
	s.mu.Lock()
	batch := s.batch
	s.batch = new(leveldb.Batch)
	s.mu.Unlock()

	if batch.Len() == 0 {
		return nil
	}
	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("flush coordinate batch: %w", err)
	}
	return nil
}

func (s *LevelStore) Close() error {
	err := s.db.Close()
	if !s.keep {
		os.RemoveAll(s.path)
	}
	return err
}
