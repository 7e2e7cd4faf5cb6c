package snapshot

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrNotSnapshot reports that the input is not a SQLite database, directly
// or inside any supported wrapper.
var ErrNotSnapshot = errors.New("not a recognizable snapshot file")

const sqliteMagic = "SQLite format 3\x00"

// unwrap peels optional zip/gzip wrapping off the backup and returns a path
// to the raw SQLite file plus a cleanup func for any temp file created.
// Wrapping is detected by magic bytes so misnamed downloads still work.
func unwrap(path string) (string, func(), error) {
	noop := func() {}

	f, err := os.Open(path)
	if err != nil {
		return "", noop, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	head := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return "", noop, ErrNotSnapshot
	}

	switch {
	case bytes.Equal(head, []byte(sqliteMagic)):
		return path, noop, nil
	case head[0] == 0x1f && head[1] == 0x8b:
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", noop, fmt.Errorf("rewind snapshot: %w", err)
		}
		return unwrapGzip(f)
	case head[0] == 'P' && head[1] == 'K':
		return unwrapZip(path)
	}
	return "", noop, ErrNotSnapshot
}

func unwrapGzip(f *os.File) (string, func(), error) {
	noop := func() {}

	zr, err := gzip.NewReader(f)
	if err != nil {
		return "", noop, fmt.Errorf("open gzip wrapper: %w", err)
	}
	defer zr.Close()

	return spoolPayload(zr)
}

// unwrapZip extracts the database entry from a zip-wrapped backup. Entries
// with a database suffix win; otherwise the largest entry is assumed to be
// the payload.
func unwrapZip(path string) (string, func(), error) {
	noop := func() {}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", noop, fmt.Errorf("open zip wrapper: %w", err)
	}
	defer zr.Close()

	var pick *zip.File
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		if hasDBSuffix(entry.Name) {
			pick = entry
			break
		}
		if pick == nil || entry.UncompressedSize64 > pick.UncompressedSize64 {
			pick = entry
		}
	}
	if pick == nil {
		return "", noop, ErrNotSnapshot
	}

	rc, err := pick.Open()
	if err != nil {
		return "", noop, fmt.Errorf("open zip entry %s: %w", pick.Name, err)
	}
	defer rc.Close()

	return spoolPayload(rc)
}

func hasDBSuffix(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".db") ||
		strings.HasSuffix(lower, ".sqlite") ||
		strings.HasSuffix(lower, ".sqlite3")
}

// spoolPayload copies the unwrapped payload to a temp file the SQLite
// driver can open, verifying the database magic on the way.
func spoolPayload(r io.Reader) (string, func(), error) {
	noop := func() {}

	tmp, err := os.CreateTemp("", "vitalog-snapshot-*.sqlite")
	if err != nil {
		return "", noop, fmt.Errorf("create temp snapshot: %w", err)
	}
	cleanup := func() { os.Remove(tmp.Name()) }

	head := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(r, head); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, ErrNotSnapshot
	}
	if !bytes.Equal(head, []byte(sqliteMagic)) {
		tmp.Close()
		cleanup()
		return "", noop, ErrNotSnapshot
	}
	if _, err := tmp.Write(head); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("spool snapshot: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		cleanup()
		return "", noop, fmt.Errorf("spool snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("spool snapshot: %w", err)
	}
	return tmp.Name(), cleanup, nil
}
