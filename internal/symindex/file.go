package symindex

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// CompressedExt marks zstd-compressed snapshot files.
const CompressedExt = ".zst"

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// LoadFile reads a snapshot from path. Compressed snapshots are detected by
// their zstd frame header, whatever the file name.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot %s: %w", path, err)
	}
	defer f.Close()

	store, err := LoadCompressed(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return store, nil
}

// LoadCompressed is Load for input that may be zstd-compressed.
func LoadCompressed(r io.Reader) (*Store, error) {
	dr, done, err := decompressing(r)
	if err != nil {
		return nil, err
	}
	defer done()
	return Load(dr)
}

// ReadFile returns the serialized snapshot stored at path, decompressed if
// needed, without decoding it.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open snapshot %s: %w", path, err)
	}
	defer f.Close()

	dr, done, err := decompressing(f)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	defer done()

	data, err := io.ReadAll(dr)
	if err != nil {
		return nil, fmt.Errorf("cannot read snapshot %s: %w", path, err)
	}
	return data, nil
}

// decompressing wraps r in a zstd decoder when it starts with a zstd frame.
// The returned func releases the decoder.
func decompressing(r io.Reader) (io.Reader, func(), error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		return nil, nil, fmt.Errorf("cannot read snapshot: %w", err)
	}
	if !bytes.Equal(head, zstdMagic) {
		return br, func() {}, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open zstd stream: %w", err)
	}
	return dec, dec.Close, nil
}

// WriteFile writes the snapshot to path, compressing it when path ends in
// CompressedExt. The file is written to a temporary name and renamed into
// place so readers never observe a partial snapshot.
func (s *Store) WriteFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create snapshot dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("cannot create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := s.writeTo(tmp, strings.HasSuffix(path, CompressedExt)); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("cannot close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("cannot move snapshot into place: %w", err)
	}
	return nil
}

func (s *Store) writeTo(w io.Writer, compress bool) error {
	if !compress {
		bw := bufio.NewWriter(w)
		if err := s.Encode(bw); err != nil {
			return err
		}
		return bw.Flush()
	}

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("cannot create zstd encoder: %w", err)
	}
	if err := s.Encode(enc); err != nil {
		_ = enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close zstd encoder: %w", err)
	}
	return nil
}
