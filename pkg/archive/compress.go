package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"
)

// maxInflateRatio bounds the declared original size of a compressed entry
// relative to its stored size. Neither zlib nor LZ4 expands further.
const maxInflateRatio = 1032

// checkInflatedSize rejects declared sizes no valid stream of n bytes can reach
func checkInflatedSize(n int, size uint32) error {
	if uint64(size) > uint64(n)*maxInflateRatio+64 {
		return fmt.Errorf("%w: declared size %d for %d compressed bytes", ErrCorrupt, size, n)
	}
	return nil
}

// inflateZlib decompresses a zlib stream of known original size
func inflateZlib(data []byte, size uint32) ([]byte, error) {
	if err := checkInflatedSize(len(data), size); err != nil {
		return nil, err
	}
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer zr.Close()

	return readExactly(zr, size)
}

// inflateLZ4Frame decompresses an LZ4 frame of known original size
func inflateLZ4Frame(data []byte, size uint32) ([]byte, error) {
	if err := checkInflatedSize(len(data), size); err != nil {
		return nil, err
	}
	return readExactly(lz4.NewReader(bytes.NewReader(data)), size)
}

// inflateLZ4Block decompresses a raw LZ4 block of known original size
func inflateLZ4Block(data []byte, size uint32) ([]byte, error) {
	if err := checkInflatedSize(len(data), size); err != nil {
		return nil, err
	}
	out := make([]byte, size)
	n, err := lz4.UncompressBlock(data, out)
	if err != nil {
		return nil, fmt.Errorf("lz4: %w", err)
	}
	if n != int(size) {
		return nil, fmt.Errorf("%w: lz4 block inflated to %d bytes, want %d", ErrCorrupt, n, size)
	}
	return out, nil
}

func readExactly(r io.Reader, size uint32) ([]byte, error) {
	out := make([]byte, size)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return out, nil
}
