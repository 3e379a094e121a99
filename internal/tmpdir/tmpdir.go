// Package tmpdir implements a scoped temporary directory, mirroring
// original_source's tmpdir.hpp: a directory created on construction and
// guaranteed to be removed on Close, on every path including errors.
// Spill files written under it may be transparently xz-compressed
// (grounded on cram/cram.go's external-compression block handling) to
// bound disk usage while the .hic writer's per-chromosome-pair sort runs.
package tmpdir

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/ulikunitz/xz"

	"github.com/hictk/hictk/internal/hiclog"
)

// Dir is a scoped temporary directory.
type Dir struct {
	path   string
	log    hiclog.Logger
	closed bool
}

// New creates a new scoped temporary directory under base (os.TempDir()
// when base is empty) with the given name prefix.
func New(base, prefix string) (*Dir, error) {
	path, err := os.MkdirTemp(base, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "tmpdir: create")
	}
	return &Dir{path: path, log: hiclog.Noop()}, nil
}

// SetLogger overrides the logger used for cleanup diagnostics.
func (d *Dir) SetLogger(l hiclog.Logger) { d.log = l }

// Path returns the directory's filesystem path.
func (d *Dir) Path() string { return d.path }

// Join returns path joined under the scoped directory.
func (d *Dir) Join(name string) string { return filepath.Join(d.path, name) }

// Close removes the directory and everything under it. It is idempotent
// and safe to call via defer even after a prior explicit Close.
func (d *Dir) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if err := os.RemoveAll(d.path); err != nil {
		d.log.Warnf("tmpdir: failed to remove %s: %v", d.path, err)
		return errors.Wrapf(err, "tmpdir: remove %s", d.path)
	}
	return nil
}

// SpillWriter opens name under the scoped directory for writing, wrapping
// it in an xz compressor when compress is true.
func (d *Dir) SpillWriter(name string, compress bool) (io.WriteCloser, error) {
	f, err := os.Create(d.Join(name))
	if err != nil {
		return nil, errors.Wrap(err, "tmpdir: create spill file")
	}
	if !compress {
		return f, nil
	}
	xw, err := xz.NewWriter(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "tmpdir: xz writer")
	}
	return &xzSpillWriter{xw: xw, f: f}, nil
}

// SpillReader opens a previously written spill file for reading,
// transparently decompressing when compressed is true.
func (d *Dir) SpillReader(name string, compressed bool) (io.ReadCloser, error) {
	f, err := os.Open(d.Join(name))
	if err != nil {
		return nil, errors.Wrap(err, "tmpdir: open spill file")
	}
	if !compressed {
		return f, nil
	}
	xr, err := xz.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "tmpdir: xz reader")
	}
	return &xzSpillReader{xr: xr, f: f}, nil
}

type xzSpillWriter struct {
	xw *xz.Writer
	f  *os.File
}

func (w *xzSpillWriter) Write(p []byte) (int, error) { return w.xw.Write(p) }

func (w *xzSpillWriter) Close() error {
	if err := w.xw.Close(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

type xzSpillReader struct {
	xr *xz.Reader
	f  *os.File
}

func (r *xzSpillReader) Read(p []byte) (int, error) { return r.xr.Read(p) }
func (r *xzSpillReader) Close() error                { return r.f.Close() }
