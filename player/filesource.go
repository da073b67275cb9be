package player

import (
	"io"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/ausocean/isdbt/ts"
)

// FileSource is a Source reading Transport Stream packets from a file
// that may still be growing (a capture in progress). Rather than
// polling, it watches the file for fsnotify.Write events and retries
// the read once woken, or after the poll interval if no event arrives.
// If the watch cannot be established, NewFileSource returns an error.
type FileSource struct {
	f       *os.File
	reader  *ts.Reader
	watcher *fsnotify.Watcher
	path    string
	pollInterval time.Duration
}

// FileSourceOption configures a FileSource at construction time.
type FileSourceOption func(*FileSource)

// WithPollInterval overrides the fallback poll interval used when no
// fsnotify event arrives within it, guarding against missed or
// coalesced write events on some filesystems.
func WithPollInterval(d time.Duration) FileSourceOption {
	return func(fs *FileSource) { fs.pollInterval = d }
}

// NewFileSource opens path and begins tailing it from the start.
func NewFileSource(path string, opts ...FileSourceOption) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "player: opening capture file")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "player: creating file watcher")
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		f.Close()
		return nil, errors.Wrap(err, "player: watching capture file")
	}

	fs := &FileSource{
		f:            f,
		reader:       ts.NewReader(f),
		watcher:      watcher,
		path:         path,
		pollInterval: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(fs)
	}
	return fs, nil
}

// Next returns the next well-formed packet, blocking on the file
// watcher while the capture catches up rather than busy-polling.
func (fs *FileSource) Next() ([]byte, error) {
	for {
		raw, err := fs.reader.Next()
		if err == nil {
			return raw, nil
		}
		if err != io.EOF {
			return nil, errors.Wrap(err, "player: reading capture file")
		}
		if !fs.waitForGrowth() {
			return nil, errEOS
		}
	}
}

// waitForGrowth blocks until a write is observed, the poll interval
// elapses, or the watcher reports the file was removed (in which case
// it returns false to signal end of stream).
func (fs *FileSource) waitForGrowth() bool {
	timer := time.NewTimer(fs.pollInterval)
	defer timer.Stop()
	for {
		select {
		case ev, ok := <-fs.watcher.Events:
			if !ok {
				return false
			}
			if ev.Op&fsnotify.Write != 0 {
				return true
			}
			if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				return false
			}
		case <-fs.watcher.Errors:
			return true
		case <-timer.C:
			return true
		}
	}
}

// Close releases the watcher and underlying file.
func (fs *FileSource) Close() error {
	werr := fs.watcher.Close()
	ferr := fs.f.Close()
	if werr != nil {
		return errors.Wrap(werr, "player: closing file watcher")
	}
	if ferr != nil {
		return errors.Wrap(ferr, "player: closing capture file")
	}
	return nil
}
