// Package archivetest builds small BSA and BA2 containers for tests.
package archivetest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// File is one entry to store; Path may use either separator
type File struct {
	Path string
	Data []byte
}

// BSAOptions controls the generated BSA layout
type BSAOptions struct {
	Version    uint32 // 103, 104 (default) or 105
	Compress   bool   // zlib for 103/104, LZ4 frame for 105
	EmbedNames bool
}

// BA2Options controls the generated BA2 layout
type BA2Options struct {
	Version  uint32 // 1 (default), 2 or 3
	Compress bool   // zlib, or LZ4 block for version 3
}

type bsaFolder struct {
	name  string
	files []File
	names []string
}

// WriteBSA writes a general BSA archive containing files to path
func WriteBSA(path string, files []File, opts BSAOptions) error {
	version := opts.Version
	if version == 0 {
		version = 104
	}

	var folders []*bsaFolder
	byName := make(map[string]*bsaFolder)
	for _, f := range files {
		p := strings.ReplaceAll(f.Path, "/", `\`)
		dir, name := "", p
		if i := strings.LastIndex(p, `\`); i >= 0 {
			dir, name = p[:i], p[i+1:]
		}
		folder, ok := byName[dir]
		if !ok {
			folder = &bsaFolder{name: dir}
			byName[dir] = folder
			folders = append(folders, folder)
		}
		folder.files = append(folder.files, f)
		folder.names = append(folder.names, name)
	}

	flags := uint32(0x1 | 0x2)
	if opts.Compress {
		flags |= 0x4
	}
	if opts.EmbedNames {
		flags |= 0x100
	}

	recordSize := 16
	if version == 105 {
		recordSize = 24
	}

	folderNamesLen, fileNamesLen, blocksLen, fileCount := 0, 0, 0, 0
	for _, folder := range folders {
		folderNamesLen += len(folder.name) + 1
		blocksLen += 1 + len(folder.name) + 1 + 16*len(folder.files)
		for _, n := range folder.names {
			fileNamesLen += len(n) + 1
		}
		fileCount += len(folder.files)
	}

	blocksStart := 36 + recordSize*len(folders)
	dataOffset := blocksStart + blocksLen + fileNamesLen

	var header, records, blocks, names, data bytes.Buffer
	le := binary.LittleEndian

	binary.Write(&header, le, [4]byte{'B', 'S', 'A', 0})
	binary.Write(&header, le, []uint32{
		version, 36, flags, uint32(len(folders)), uint32(fileCount),
		uint32(folderNamesLen), uint32(fileNamesLen), 0,
	})

	for _, folder := range folders {
		blockOffset := blocksStart + blocks.Len() + fileNamesLen
		binary.Write(&records, le, uint64(0))
		binary.Write(&records, le, uint32(len(folder.files)))
		if version == 105 {
			binary.Write(&records, le, uint32(0))
			binary.Write(&records, le, uint64(blockOffset))
		} else {
			binary.Write(&records, le, uint32(blockOffset))
		}

		blocks.WriteByte(byte(len(folder.name) + 1))
		blocks.WriteString(folder.name)
		blocks.WriteByte(0)

		for i, f := range folder.files {
			payload, err := bsaPayload(folder.name, folder.names[i], f.Data, version, opts)
			if err != nil {
				return err
			}
			binary.Write(&blocks, le, uint64(0))
			binary.Write(&blocks, le, uint32(len(payload)))
			binary.Write(&blocks, le, uint32(dataOffset+data.Len()))
			data.Write(payload)

			names.WriteString(folder.names[i])
			names.WriteByte(0)
		}
	}

	var out bytes.Buffer
	for _, b := range []*bytes.Buffer{&header, &records, &blocks, &names, &data} {
		out.Write(b.Bytes())
	}
	return os.WriteFile(path, out.Bytes(), 0644)
}

func bsaPayload(folder, name string, content []byte, version uint32, opts BSAOptions) ([]byte, error) {
	var payload bytes.Buffer

	if opts.EmbedNames && version >= 104 {
		full := name
		if folder != "" {
			full = folder + `\` + name
		}
		payload.WriteByte(byte(len(full)))
		payload.WriteString(full)
	}

	if !opts.Compress {
		payload.Write(content)
		return payload.Bytes(), nil
	}

	binary.Write(&payload, binary.LittleEndian, uint32(len(content)))
	var err error
	if version == 105 {
		err = writeLZ4Frame(&payload, content)
	} else {
		err = writeZlib(&payload, content)
	}
	if err != nil {
		return nil, err
	}
	return payload.Bytes(), nil
}

// WriteBA2 writes a general BA2 archive containing files to path
func WriteBA2(path string, files []File, opts BA2Options) error {
	version := opts.Version
	if version == 0 {
		version = 1
	}

	headerSize := 24
	switch version {
	case 2:
		headerSize += 8
	case 3:
		headerSize += 12
	}
	dataOffset := headerSize + 36*len(files)

	var records, data, names bytes.Buffer
	le := binary.LittleEndian

	for _, f := range files {
		stored := f.Data
		packed := uint32(0)
		if opts.Compress {
			compressed, err := ba2Compress(f.Data, version)
			if err != nil {
				return err
			}
			if compressed != nil {
				stored = compressed
				packed = uint32(len(compressed))
			}
		}

		ext := [4]byte{}
		if i := strings.LastIndex(f.Path, "."); i >= 0 {
			copy(ext[:], f.Path[i+1:])
		}

		binary.Write(&records, le, uint32(0))
		binary.Write(&records, le, ext)
		binary.Write(&records, le, uint32(0))
		binary.Write(&records, le, uint32(0))
		binary.Write(&records, le, uint64(dataOffset+data.Len()))
		binary.Write(&records, le, packed)
		binary.Write(&records, le, uint32(len(f.Data)))
		binary.Write(&records, le, uint32(0xBAADF00D))
		data.Write(stored)

		name := strings.ReplaceAll(f.Path, "/", `\`)
		binary.Write(&names, le, uint16(len(name)))
		names.WriteString(name)
	}

	var out bytes.Buffer
	out.WriteString("BTDX")
	binary.Write(&out, le, version)
	out.WriteString("GNRL")
	binary.Write(&out, le, uint32(len(files)))
	binary.Write(&out, le, uint64(dataOffset+data.Len()))
	if version >= 2 {
		binary.Write(&out, le, uint64(0))
	}
	if version == 3 {
		method := uint32(0)
		if opts.Compress {
			method = 3
		}
		binary.Write(&out, le, method)
	}
	out.Write(records.Bytes())
	out.Write(data.Bytes())
	out.Write(names.Bytes())

	return os.WriteFile(path, out.Bytes(), 0644)
}

// ba2Compress returns nil when the data does not compress
func ba2Compress(content []byte, version uint32) ([]byte, error) {
	if version == 3 {
		dst := make([]byte, lz4.CompressBlockBound(len(content)))
		n, err := lz4.CompressBlock(content, dst, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		if n == 0 {
			return nil, nil
		}
		return dst[:n], nil
	}

	var buf bytes.Buffer
	if err := writeZlib(&buf, content); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeZlib(buf *bytes.Buffer, content []byte) error {
	zw := zlib.NewWriter(buf)
	if _, err := zw.Write(content); err != nil {
		return fmt.Errorf("zlib: %w", err)
	}
	return zw.Close()
}

func writeLZ4Frame(buf *bytes.Buffer, content []byte) error {
	zw := lz4.NewWriter(buf)
	if _, err := zw.Write(content); err != nil {
		return fmt.Errorf("lz4: %w", err)
	}
	return zw.Close()
}
