// Package shard reads and writes .kbqa files: a fixed header, the examples
// as concatenated JSON documents, a JSON offset table and a CRC32 footer.
package shard

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"

	"github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/internal/dataset"
	apperrors "github.com/Adithya-Monish-Kumar-K/kbqa-dataprep/pkg/errors"
)

type Reader struct {
	file     *os.File
	filePath string
	header   ShardHeader
	index    []IndexEntry
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening shard file: %w", err)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading shard header: %w", err)
	}
	header := decodeHeader(headerBytes)
	if header.Magic != MagicBytes {
		f.Close()
		return nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorruptShard, header.Magic)
	}
	if header.Version != FormatVersion {
		f.Close()
		return nil, fmt.Errorf("%w: unsupported version %d", apperrors.ErrCorruptShard, header.Version)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat shard file: %w", err)
	}
	if err := checkLayout(header, info.Size()); err != nil {
		f.Close()
		return nil, err
	}
	indexBytes := make([]byte, header.IndexSize)
	if _, err := f.ReadAt(indexBytes, header.IndexOffset); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading index: %w", err)
	}
	var index []IndexEntry
	if err := json.Unmarshal(indexBytes, &index); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: parsing index: %v", apperrors.ErrCorruptShard, err)
	}
	if len(index) != int(header.ExampleCount) {
		f.Close()
		return nil, fmt.Errorf("%w: index has %d entries, header says %d",
			apperrors.ErrCorruptShard, len(index), header.ExampleCount)
	}
	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		index:    index,
	}, nil
}

// checkLayout rejects headers whose sections do not fit, in order, inside a
// file of size bytes.
func checkLayout(h ShardHeader, size int64) error {
	switch {
	case h.DataOffset < int64(HeaderSize) || h.DataOffset > size:
		return fmt.Errorf("%w: data offset %d outside file of %d bytes", apperrors.ErrCorruptShard, h.DataOffset, size)
	case h.DataSize < 0 || h.DataSize > size-h.DataOffset:
		return fmt.Errorf("%w: data size %d outside file of %d bytes", apperrors.ErrCorruptShard, h.DataSize, size)
	case h.IndexOffset != h.DataOffset+h.DataSize:
		return fmt.Errorf("%w: index offset %d does not follow data section", apperrors.ErrCorruptShard, h.IndexOffset)
	case h.IndexSize < 0 || h.IndexSize > size-h.IndexOffset-int64(FooterSize):
		return fmt.Errorf("%w: index size %d outside file of %d bytes", apperrors.ErrCorruptShard, h.IndexSize, size)
	}
	return nil
}

// Example decodes the i-th example of the shard.
func (r *Reader) Example(i int) (*dataset.Example, error) {
	if i < 0 || i >= len(r.index) {
		return nil, fmt.Errorf("example %d out of range [0, %d)", i, len(r.index))
	}
	entry := r.index[i]
	if entry.Offset < 0 || entry.Len < 0 || entry.Offset > r.header.DataSize-int64(entry.Len) {
		return nil, fmt.Errorf("%w: example %d at [%d, +%d) outside data section of %d bytes",
			apperrors.ErrCorruptShard, i, entry.Offset, entry.Len, r.header.DataSize)
	}
	data := make([]byte, entry.Len)
	if _, err := r.file.ReadAt(data, r.header.DataOffset+entry.Offset); err != nil {
		return nil, fmt.Errorf("reading example %d: %w", i, err)
	}
	var ex dataset.Example
	if err := json.Unmarshal(data, &ex); err != nil {
		return nil, fmt.Errorf("%w: parsing example %d: %v", apperrors.ErrCorruptShard, i, err)
	}
	return &ex, nil
}

// Verify recomputes the checksum over the data and index sections.
func (r *Reader) Verify() error {
	footer := make([]byte, FooterSize)
	if _, err := r.file.ReadAt(footer, r.header.IndexOffset+r.header.IndexSize); err != nil {
		return fmt.Errorf("reading footer: %w", err)
	}
	want := binary.LittleEndian.Uint32(footer[0:4])
	crc := crc32.NewIEEE()
	section := io.NewSectionReader(r.file, r.header.DataOffset, r.header.DataSize+r.header.IndexSize)
	if _, err := io.Copy(crc, section); err != nil {
		return fmt.Errorf("checksumming shard: %w", err)
	}
	if got := crc.Sum32(); got != want {
		return fmt.Errorf("%w: checksum %08x, footer says %08x", apperrors.ErrCorruptShard, got, want)
	}
	return nil
}

func (r *Reader) Len() int {
	return len(r.index)
}

func (r *Reader) Header() ShardHeader {
	return r.header
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}
