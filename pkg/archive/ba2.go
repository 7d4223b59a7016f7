package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	ba2Magic   = "BTDX"
	ba2General = "GNRL"

	ba2CompressionZlib = 0
	ba2CompressionLZ4  = 3
)

// ba2Header is the fixed header of every BA2 version
type ba2Header struct {
	Magic           [4]byte
	Version         uint32
	Type            [4]byte
	FileCount       uint32
	NameTableOffset uint64
}

// ba2Record is a general (GNRL) file record
type ba2Record struct {
	NameHash     uint32
	Ext          [4]byte
	DirHash      uint32
	Flags        uint32
	Offset       uint64
	PackedSize   uint32
	UnpackedSize uint32
	Align        uint32
}

// ba2Format decodes BA2 general entries
type ba2Format struct {
	compression uint32
}

// readBA2 parses the record table and name table of a general BA2 container
func readBA2(r io.ReaderAt) (format, []entry, error) {
	br := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))

	var h ba2Header
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}

	if string(h.Type[:]) != ba2General {
		return nil, nil, fmt.Errorf("%w: BA2 type %q", ErrUnsupported, h.Type[:])
	}
	if h.FileCount > maxEntries {
		return nil, nil, fmt.Errorf("%w: BA2 file count out of range", ErrCorrupt)
	}

	f := ba2Format{compression: ba2CompressionZlib}
	switch h.Version {
	case 1, 7, 8:
	case 2, 3:
		if _, err := br.Discard(8); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if h.Version == 3 {
			if err := binary.Read(br, binary.LittleEndian, &f.compression); err != nil {
				return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		}
	default:
		return nil, nil, fmt.Errorf("%w: BA2 version %d", ErrUnsupported, h.Version)
	}

	entries := make([]entry, h.FileCount)
	for i := range entries {
		var rec ba2Record
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, nil, fmt.Errorf("%w: file record: %v", ErrCorrupt, err)
		}
		size := rec.PackedSize
		if size == 0 {
			size = rec.UnpackedSize
		}
		entries[i] = entry{
			offset:     int64(rec.Offset),
			size:       size,
			unpacked:   rec.UnpackedSize,
			compressed: rec.PackedSize != 0,
		}
	}

	names := bufio.NewReader(io.NewSectionReader(r, int64(h.NameTableOffset), 1<<62))
	for i := range entries {
		var n uint16
		if err := binary.Read(names, binary.LittleEndian, &n); err != nil {
			return nil, nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(names, buf); err != nil {
			return nil, nil, fmt.Errorf("%w: name table: %v", ErrCorrupt, err)
		}
		entries[i].name = string(buf)
	}

	return f, entries, nil
}

// readEntry returns raw or inflated entry data
func (f ba2Format) readEntry(r io.ReaderAt, e *entry) ([]byte, error) {
	data, err := readAt(r, e.offset, int(e.size))
	if err != nil {
		return nil, err
	}
	if !e.compressed {
		return data, nil
	}

	if f.compression == ba2CompressionLZ4 {
		return inflateLZ4Block(data, e.unpacked)
	}
	return inflateZlib(data, e.unpacked)
}
