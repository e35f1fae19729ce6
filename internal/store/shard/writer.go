package shard

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

// MagicBytes identifies a valid .kbqa shard file.
const (
	MagicBytes    uint32 = 0x4B425141
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 32
	Extension            = ".kbqa"
)

// ShardHeader is the 64-byte header written at the start of every shard.
type ShardHeader struct {
	Magic        uint32
	Version      uint32
	ExampleCount uint32
	MaxFactNum   uint32
	CreatedAt    int64
	IndexOffset  int64
	IndexSize    int64
	DataOffset   int64
	DataSize     int64
}

// IndexEntry locates one example inside the data section.
type IndexEntry struct {
	Position int   `json:"p"`
	Offset   int64 `json:"o"`
	Len      int   `json:"l"`
}

// Writer serialises examples into .kbqa shard files.
type Writer struct {
	dir string
}

// NewWriter creates a Writer that writes shards into dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// WritePartition splits examples into shards of at most shardSize and
// writes them as <partition>-NNNNN.kbqa. It returns the file names.
func (w *Writer) WritePartition(partition dataset.Partition, examples []dataset.Example, shardSize int) ([]string, error) {
	if shardSize <= 0 {
		shardSize = len(examples)
	}
	var names []string
	for seq, start := 0, 0; start < len(examples); seq, start = seq+1, start+shardSize {
		end := min(start+shardSize, len(examples))
		name := fmt.Sprintf("%s-%05d%s", partition, seq, Extension)
		if err := w.Write(name, examples[start:end]); err != nil {
			return names, err
		}
		names = append(names, name)
	}
	return names, nil
}

// Write atomically creates the named shard. It writes to a .tmp file first
// and renames on success.
func (w *Writer) Write(name string, examples []dataset.Example) (err error) {
	if len(examples) == 0 {
		return fmt.Errorf("cannot write shard %s: %w", name, apperrors.ErrEmptyDataset)
	}
	finalPath := filepath.Join(w.dir, name)
	tmpPath := finalPath + ".tmp"

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp shard file: %w", err)
	}
	defer func() {
		f.Close()
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	header := ShardHeader{
		Magic:        MagicBytes,
		Version:      FormatVersion,
		ExampleCount: uint32(len(examples)),
		MaxFactNum:   uint32(len(examples[0].Facts)),
		CreatedAt:    time.Now().Unix(),
		DataOffset:   int64(HeaderSize),
	}
	if _, err := f.Write(make([]byte, HeaderSize)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	crc := crc32.NewIEEE()
	index := make([]IndexEntry, 0, len(examples))
	var offset int64
	for _, ex := range examples {
		data, err := json.Marshal(ex)
		if err != nil {
			return fmt.Errorf("marshaling example %d: %w", ex.Position, err)
		}
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("writing example %d: %w", ex.Position, err)
		}
		crc.Write(data)
		index = append(index, IndexEntry{Position: ex.Position, Offset: offset, Len: len(data)})
		offset += int64(len(data))
	}
	header.DataSize = offset
	header.IndexOffset = header.DataOffset + header.DataSize

	indexData, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("marshaling index: %w", err)
	}
	if _, err := f.Write(indexData); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	crc.Write(indexData)
	header.IndexSize = int64(len(indexData))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc.Sum32())
	binary.LittleEndian.PutUint32(footer[4:8], header.ExampleCount)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(header.IndexOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(header.IndexSize))
	binary.LittleEndian.PutUint64(footer[24:32], uint64(header.DataSize))
	if _, err := f.Write(footer); err != nil {
		return fmt.Errorf("writing footer: %w", err)
	}
	if _, err := f.WriteAt(encodeHeader(header), 0); err != nil {
		return fmt.Errorf("updating header: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing shard file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing shard file: %w", err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("renaming shard file: %w", err)
	}
	return nil
}

func encodeHeader(h ShardHeader) []byte {
	b := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(b[0:4], h.Magic)
	binary.LittleEndian.PutUint32(b[4:8], h.Version)
	binary.LittleEndian.PutUint32(b[8:12], h.ExampleCount)
	binary.LittleEndian.PutUint32(b[12:16], h.MaxFactNum)
	binary.LittleEndian.PutUint64(b[16:24], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.IndexOffset))
	binary.LittleEndian.PutUint64(b[32:40], uint64(h.IndexSize))
	binary.LittleEndian.PutUint64(b[40:48], uint64(h.DataOffset))
	binary.LittleEndian.PutUint64(b[48:56], uint64(h.DataSize))
	return b
}

func decodeHeader(b []byte) ShardHeader {
	return ShardHeader{
		Magic:        binary.LittleEndian.Uint32(b[0:4]),
		Version:      binary.LittleEndian.Uint32(b[4:8]),
		ExampleCount: binary.LittleEndian.Uint32(b[8:12]),
		MaxFactNum:   binary.LittleEndian.Uint32(b[12:16]),
		CreatedAt:    int64(binary.LittleEndian.Uint64(b[16:24])),
		IndexOffset:  int64(binary.LittleEndian.Uint64(b[24:32])),
		IndexSize:    int64(binary.LittleEndian.Uint64(b[32:40])),
		DataOffset:   int64(binary.LittleEndian.Uint64(b[40:48])),
		DataSize:     int64(binary.LittleEndian.Uint64(b[48:56])),
	}
}
