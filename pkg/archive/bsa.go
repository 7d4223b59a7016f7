package archive

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const (
	bsaMagic      = "BSA\x00"
	bsaHeaderSize = 36

	bsaFlagDirNames   = 0x1
	bsaFlagFileNames  = 0x2
	bsaFlagCompressed = 0x4
	bsaFlagEmbedNames = 0x100

	bsaSizeCompressToggle = 0x40000000
	bsaSizeMask           = 0x3FFFFFFF

	// maxEntries guards allocations against corrupt counts
	maxEntries = 1 << 22
)

// bsaHeader is the fixed header shared by versions 103, 104 and 105
type bsaHeader struct {
	Magic             [4]byte
	Version           uint32
	FolderOffset      uint32
	ArchiveFlags      uint32
	FolderCount       uint32
	FileCount         uint32
	FolderNamesLength uint32
	FileNamesLength   uint32
	FileFlags         uint32
}

// bsaFormat decodes BSA entries
type bsaFormat struct {
	version    uint32
	embedNames bool
}

// readBSA parses the folder and file tables of a BSA container
func readBSA(r io.ReaderAt) (format, []entry, error) {
	br := bufio.NewReader(io.NewSectionReader(r, 0, 1<<62))

	var h bsaHeader
	if err := binary.Read(br, binary.LittleEndian, &h); err != nil {
		return nil, nil, fmt.Errorf("%w: header: %v", ErrCorrupt, err)
	}

	switch h.Version {
	case 103, 104, 105:
	default:
		return nil, nil, fmt.Errorf("%w: BSA version %d", ErrUnsupported, h.Version)
	}
	if h.ArchiveFlags&bsaFlagFileNames == 0 {
		return nil, nil, fmt.Errorf("%w: BSA without file names", ErrUnsupported)
	}
	if h.FolderOffset < bsaHeaderSize || h.FolderCount > maxEntries || h.FileCount > maxEntries {
		return nil, nil, fmt.Errorf("%w: BSA header out of range", ErrCorrupt)
	}
	if _, err := br.Discard(int(h.FolderOffset - bsaHeaderSize)); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	counts := make([]uint32, h.FolderCount)
	for i := range counts {
		var rec struct {
			Hash  uint64
			Count uint32
		}
		if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
			return nil, nil, fmt.Errorf("%w: folder record: %v", ErrCorrupt, err)
		}
		// Offset is not needed, folder blocks follow the records in order
		skip := 4
		if h.Version == 105 {
			skip = 12
		}
		if _, err := br.Discard(skip); err != nil {
			return nil, nil, fmt.Errorf("%w: folder record: %v", ErrCorrupt, err)
		}
		counts[i] = rec.Count
	}

	compressedDefault := h.ArchiveFlags&bsaFlagCompressed != 0
	entries := make([]entry, 0, h.FileCount)
	folders := make([]string, 0, h.FileCount)

	for _, count := range counts {
		folder := ""
		if h.ArchiveFlags&bsaFlagDirNames != 0 {
			name, err := readBString(br)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: folder name: %v", ErrCorrupt, err)
			}
			folder = strings.TrimRight(name, "\x00")
		}

		for j := uint32(0); j < count; j++ {
			var rec struct {
				Hash   uint64
				Size   uint32
				Offset uint32
			}
			if err := binary.Read(br, binary.LittleEndian, &rec); err != nil {
				return nil, nil, fmt.Errorf("%w: file record: %v", ErrCorrupt, err)
			}
			if len(entries) >= int(h.FileCount) {
				return nil, nil, fmt.Errorf("%w: more file records than declared", ErrCorrupt)
			}
			entries = append(entries, entry{
				offset:     int64(rec.Offset),
				size:       rec.Size & bsaSizeMask,
				compressed: compressedDefault != (rec.Size&bsaSizeCompressToggle != 0),
			})
			folders = append(folders, folder)
		}
	}

	for i := range entries {
		name, err := br.ReadString(0)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: file name block: %v", ErrCorrupt, err)
		}
		name = strings.TrimRight(name, "\x00")
		if folders[i] != "" {
			name = folders[i] + `\` + name
		}
		entries[i].name = name
	}

	f := bsaFormat{
		version:    h.Version,
		embedNames: h.Version >= 104 && h.ArchiveFlags&bsaFlagEmbedNames != 0,
	}
	return f, entries, nil
}

// readEntry strips the optional embedded name and inflates compressed data
func (f bsaFormat) readEntry(r io.ReaderAt, e *entry) ([]byte, error) {
	data, err := readAt(r, e.offset, int(e.size))
	if err != nil {
		return nil, err
	}

	if f.embedNames {
		if len(data) < 1 || 1+int(data[0]) > len(data) {
			return nil, fmt.Errorf("%w: embedded name overruns entry", ErrCorrupt)
		}
		data = data[1+int(data[0]):]
	}

	if !e.compressed {
		return data, nil
	}

	if len(data) < 4 {
		return nil, fmt.Errorf("%w: compressed entry too short", ErrCorrupt)
	}
	size := binary.LittleEndian.Uint32(data)
	if f.version == 105 {
		return inflateLZ4Frame(data[4:], size)
	}
	return inflateZlib(data[4:], size)
}

// readBString reads a length-prefixed string
func readBString(br *bufio.Reader) (string, error) {
	n, err := br.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
