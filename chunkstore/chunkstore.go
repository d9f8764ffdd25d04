package chunkstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/edsrzf/mmap-go"
	lru "github.com/hashicorp/golang-lru"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/weavesuite/weave-mining-server/chaincfg"
	"github.com/weavesuite/weave-mining-server/utils"
)

const (
	weaveFilename     = "weave.dat"
	indexDirname      = "chunkindex"
	dataIndexDirname  = "dataindex"
	defaultCacheChunk = 64
)

var (
	// ErrChunkNotFound indicates no stored chunk covers the requested
	// byte offset.
	ErrChunkNotFound = errors.New("chunk not found")

	// ErrPoANotFound indicates the store holds no proof material for
	// the recall byte.
	ErrPoANotFound = errors.New("proof of access not found")

	errReadOnly = errors.New("chunk store opened read-only")
)

// Config holds the chunk store options.
type Config struct {
	// DataDir is the directory holding the weave data file and the
	// offset indexes.
	DataDir string

	// UseDataIndex makes lookups fall back to the secondary data index
	// when the primary chunk index misses.
	UseDataIndex bool

	// CacheChunks bounds the in-memory chunk cache. Zero selects the
	// default.
	CacheChunks int

	// Writable opens the store for appending chunks. Read-only stores
	// serve lookups from a memory-mapped weave file instead of read
	// syscalls.
	Writable bool
}

// chunkRecord is the on-disk index entry for one stored chunk.
type chunkRecord struct {
	filePos       int64
	dataRoot      utils.Hash
	dataPathIndex uint64
	dataPath      []utils.Hash
}

// ChunkStore resolves weave byte offsets to fixed-size chunks. Offsets are
// translated through a leveldb index into positions of a flat data file;
// hot chunks are served from an LRU cache.
type ChunkStore struct {
	mtx sync.RWMutex

	file   *os.File
	mapped mmap.MMap
	size   int64

	index     *leveldb.DB
	dataIndex *leveldb.DB
	cache     *lru.Cache

	useDataIndex bool
	writable     bool
}

// Open opens (creating, if writable) the chunk store under cfg.DataDir.
func Open(cfg *Config) (*ChunkStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}

	fileFlags := os.O_RDONLY
	if cfg.Writable {
		fileFlags = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(filepath.Join(cfg.DataDir, weaveFilename), fileFlags, 0600)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	index, err := leveldb.OpenFile(filepath.Join(cfg.DataDir, indexDirname), nil)
	if err != nil {
		f.Close()
		return nil, err
	}

	var dataIndex *leveldb.DB
	if cfg.UseDataIndex {
		dataIndex, err = leveldb.OpenFile(filepath.Join(cfg.DataDir, dataIndexDirname), nil)
		if err != nil {
			index.Close()
			f.Close()
			return nil, err
		}
	}

	cacheChunks := cfg.CacheChunks
	if cacheChunks <= 0 {
		cacheChunks = defaultCacheChunk
	}
	cache, err := lru.New(cacheChunks)
	if err != nil {
		index.Close()
		f.Close()
		return nil, err
	}

	s := &ChunkStore{
		file:         f,
		size:         info.Size(),
		index:        index,
		dataIndex:    dataIndex,
		cache:        cache,
		useDataIndex: cfg.UseDataIndex,
		writable:     cfg.Writable,
	}

	if !cfg.Writable && s.size > 0 {
		mapped, err := mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			log.Warnf("Unable to memory-map weave file, falling back to reads: %v", err)
		} else {
			s.mapped = mapped
		}
	}

	log.Infof("Chunk store open: %v bytes of weave data, data index enabled: %v",
		s.size, cfg.UseDataIndex)
	return s, nil
}

// ChunkStart returns the offset of the chunk containing the byte offset.
func ChunkStart(byteOffset int64) int64 {
	chunkSize := chaincfg.ActiveNetParams.ChunkSize
	return byteOffset - byteOffset%chunkSize
}

// GetChunk returns a copy of the chunk covering byteOffset. The primary
// chunk index is consulted first, then, if configured, the secondary data
// index. Misses return ErrChunkNotFound.
func (s *ChunkStore) GetChunk(byteOffset int64) ([]byte, error) {
	chunkStart := ChunkStart(byteOffset)

	if cached, ok := s.cache.Get(chunkStart); ok {
		return append([]byte(nil), cached.([]byte)...), nil
	}

	rec, err := s.lookup(chunkStart)
	if err != nil {
		return nil, err
	}

	chunk, err := s.readChunk(rec.filePos)
	if err != nil {
		return nil, err
	}

	s.cache.Add(chunkStart, chunk)
	return append([]byte(nil), chunk...), nil
}

func (s *ChunkStore) lookup(chunkStart int64) (*chunkRecord, error) {
	raw, err := s.index.Get(indexKey(chunkStart), nil)
	if err == nil {
		return unmarshalRecord(raw)
	}
	if err != leveldb.ErrNotFound {
		return nil, err
	}

	if s.useDataIndex && s.dataIndex != nil {
		raw, err = s.dataIndex.Get(indexKey(chunkStart), nil)
		if err == nil {
			return unmarshalRecord(raw)
		}
		if err != leveldb.ErrNotFound {
			return nil, err
		}
	}

	return nil, ErrChunkNotFound
}

func (s *ChunkStore) readChunk(filePos int64) ([]byte, error) {
	chunkSize := chaincfg.ActiveNetParams.ChunkSize

	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if filePos+chunkSize > s.size {
		return nil, ErrChunkNotFound
	}

	chunk := make([]byte, chunkSize)
	if s.mapped != nil {
		copy(chunk, s.mapped[filePos:filePos+chunkSize])
		return chunk, nil
	}

	if _, err := s.file.ReadAt(chunk, filePos); err != nil {
		return nil, err
	}
	return chunk, nil
}

// AddChunk appends a chunk with its proof material to the store and indexes
// it at chunkStart. Chunks must be exactly the protocol chunk size.
func (s *ChunkStore) AddChunk(chunkStart int64, chunk []byte, dataRoot utils.Hash,
	dataPath []utils.Hash, dataPathIndex uint64) error {

	if !s.writable {
		return errReadOnly
	}
	if int64(len(chunk)) != chaincfg.ActiveNetParams.ChunkSize {
		return errors.New("chunk size mismatch")
	}

	s.mtx.Lock()
	filePos := s.size
	if _, err := s.file.WriteAt(chunk, filePos); err != nil {
		s.mtx.Unlock()
		return err
	}
	s.size += int64(len(chunk))
	s.mtx.Unlock()

	rec := &chunkRecord{
		filePos:       filePos,
		dataRoot:      dataRoot,
		dataPathIndex: dataPathIndex,
		dataPath:      dataPath,
	}
	return s.index.Put(indexKey(chunkStart), marshalRecord(rec), nil)
}

// AddChunkToDataIndex indexes an already-stored file position in the
// secondary data index.
func (s *ChunkStore) AddChunkToDataIndex(chunkStart int64, chunk []byte, dataRoot utils.Hash,
	dataPath []utils.Hash, dataPathIndex uint64) error {

	if !s.writable {
		return errReadOnly
	}
	if s.dataIndex == nil {
		return errors.New("data index not enabled")
	}
	if int64(len(chunk)) != chaincfg.ActiveNetParams.ChunkSize {
		return errors.New("chunk size mismatch")
	}

	s.mtx.Lock()
	filePos := s.size
	if _, err := s.file.WriteAt(chunk, filePos); err != nil {
		s.mtx.Unlock()
		return err
	}
	s.size += int64(len(chunk))
	s.mtx.Unlock()

	rec := &chunkRecord{
		filePos:       filePos,
		dataRoot:      dataRoot,
		dataPathIndex: dataPathIndex,
		dataPath:      dataPath,
	}
	return s.dataIndex.Put(indexKey(chunkStart), marshalRecord(rec), nil)
}

// WeaveSize returns the number of weave bytes currently stored.
func (s *ChunkStore) WeaveSize() int64 {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.size
}

// Close releases the file handles and index databases.
func (s *ChunkStore) Close() {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.mapped != nil {
		if err := s.mapped.Unmap(); err != nil {
			log.Errorf("Unable to unmap weave file: %v", err)
		}
		s.mapped = nil
	}
	if s.file != nil {
		s.file.Close()
		s.file = nil
	}
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
	if s.dataIndex != nil {
		s.dataIndex.Close()
		s.dataIndex = nil
	}
}

func indexKey(chunkStart int64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(chunkStart))
	return key[:]
}

func marshalRecord(rec *chunkRecord) []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], uint64(rec.filePos))
	buf.Write(scratch[:])
	buf.Write(rec.dataRoot[:])
	binary.BigEndian.PutUint64(scratch[:], rec.dataPathIndex)
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], uint64(len(rec.dataPath)))
	buf.Write(scratch[:])
	for i := range rec.dataPath {
		buf.Write(rec.dataPath[i][:])
	}
	return buf.Bytes()
}

func unmarshalRecord(raw []byte) (*chunkRecord, error) {
	if len(raw) < 8+utils.HashSize+16 {
		return nil, errors.New("corrupt chunk index record")
	}

	rec := &chunkRecord{}
	rec.filePos = int64(binary.BigEndian.Uint64(raw[:8]))
	raw = raw[8:]
	copy(rec.dataRoot[:], raw[:utils.HashSize])
	raw = raw[utils.HashSize:]
	rec.dataPathIndex = binary.BigEndian.Uint64(raw[:8])
	raw = raw[8:]
	pathLen := binary.BigEndian.Uint64(raw[:8])
	raw = raw[8:]
	if uint64(len(raw)) != pathLen*utils.HashSize {
		return nil, errors.New("corrupt chunk index record")
	}
	rec.dataPath = make([]utils.Hash, pathLen)
	for i := range rec.dataPath {
		copy(rec.dataPath[i][:], raw[:utils.HashSize])
		raw = raw[utils.HashSize:]
	}
	return rec, nil
}
