package importer

import (
	"context"
	"errors"

	"github.com/aweiler/vitalog/internal/catalog"
	"github.com/aweiler/vitalog/internal/normalize"
	"github.com/aweiler/vitalog/internal/portal"
	"github.com/aweiler/vitalog/internal/record"
	"github.com/aweiler/vitalog/internal/snapshot"
)

// Source is one external input for an import run. Values are created
// with PortalFiles and SnapshotFile.
type Source interface {
	// label names the source in logs and error messages.
	label() string

	// parse reads the input into a raw payload. It never writes to
	// the store.
	parse(ctx context.Context) (payload, error)
}

// payload is a parsed input that can be normalized. Normalization is
// pure, so Start builds a preview from one pass and Commit merges from
// another without re-reading the input.
type payload interface {
	bundle() *normalize.Bundle
}

// PortalFiles is a set of per-metric delimited export files downloaded
// from the device web portal.
func PortalFiles(paths ...string) Source {
	return &portalSource{paths: paths}
}

type portalSource struct {
	paths []string
}

func (s *portalSource) label() string { return normalize.SourcePortal }

func (s *portalSource) parse(ctx context.Context) (payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cat, err := catalog.Default()
	if err != nil {
		return nil, err
	}
	res, err := portal.ParseFiles(cat, s.paths)
	if err != nil && !errors.Is(err, portal.ErrNoData) {
		return nil, err
	}
	// On ErrNoData the result still carries the per-file warnings;
	// Start rejects the empty preview with those warnings attached.
	return &portalPayload{res: res}, nil
}

type portalPayload struct {
	res *portal.Result
}

func (p *portalPayload) bundle() *normalize.Bundle {
	return normalize.FromPortal(p.res)
}

// SnapshotFile is a relational snapshot backup, optionally wrapped in
// a zip or gzip container.
func SnapshotFile(path string) Source {
	return &snapshotSource{path: path}
}

// SnapshotFileSince bounds snapshot extraction to dates at or after
// since. Anything already stored for earlier dates is left untouched.
func SnapshotFileSince(path string, since record.Date) Source {
	return &snapshotSource{path: path, since: since}
}

type snapshotSource struct {
	path  string
	since record.Date
}

func (s *snapshotSource) label() string { return normalize.SourceSnapshot }

func (s *snapshotSource) parse(ctx context.Context) (payload, error) {
	snap, err := snapshot.Extract(ctx, s.path, snapshot.Options{Since: s.since})
	if err != nil {
		return nil, err
	}
	return &snapshotPayload{snap: snap}, nil
}

type snapshotPayload struct {
	snap *snapshot.Snapshot
}

func (p *snapshotPayload) bundle() *normalize.Bundle {
	return normalize.FromSnapshot(p.snap)
}
