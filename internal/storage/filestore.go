package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	reviewsFileName = "movieReviews.csv"
	indexFileName   = "index.json"
)

var movieIDSanitizer = strings.NewReplacer("/", "_", "\\", "_")

// fileStore owns the physical per-movie file pair under root. It performs no
// locking; every mutation is either an append or an atomic whole-file
// replacement, so readers never observe a partial file.
type fileStore struct {
	root string
}

func (fs *fileStore) movieDir(movieID string) string {
	safe := movieIDSanitizer.Replace(strings.TrimSpace(movieID))
	return filepath.Join(fs.root, safe)
}

func (fs *fileStore) csvPath(movieID string) string {
	return filepath.Join(fs.movieDir(movieID), reviewsFileName)
}

func (fs *fileStore) indexPath(movieID string) string {
	return filepath.Join(fs.movieDir(movieID), indexFileName)
}

func (fs *fileStore) exists(movieID string) bool {
	_, err := os.Stat(fs.csvPath(movieID))
	return err == nil
}

// mtime returns the review file's modification time as fractional seconds,
// or 0 when the file does not exist. Nanosecond precision keeps writes
// within the same second distinguishable.
func (fs *fileStore) mtime(movieID string) float64 {
	info, err := os.Stat(fs.csvPath(movieID))
	if err != nil {
		return 0
	}
	return float64(info.ModTime().UnixNano()) / float64(time.Second)
}

// appendRow appends one encoded row, writing the header first when the file
// does not exist yet. O(1) in file size; the only write path used by create.
func (fs *fileStore) appendRow(movieID string, row []string) error {
	if err := os.MkdirAll(fs.movieDir(movieID), 0o755); err != nil {
		return fmt.Errorf("create movie dir: %w", err)
	}

	path := fs.csvPath(movieID)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open reviews file: %w", err)
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(row); err != nil {
		f.Close()
		return fmt.Errorf("write row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush row: %w", err)
	}
	return f.Close()
}

// forEachRow streams every data row in physical order without materializing
// the file. A missing file yields zero rows and no error. The callback
// returns false to stop early.
func (fs *fileStore) forEachRow(movieID string, fn func(offset int, rec []string) (bool, error)) error {
	f, err := os.Open(fs.csvPath(movieID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open reviews file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	// Header row. An empty file behaves like a missing one.
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("read header: %w", err)
	}

	for offset := 0; ; offset++ {
		rec, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row %d: %w", offset, err)
		}
		cont, err := fn(offset, rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}

// rewrite streams every existing row through transform into a temp file in
// the movie's directory and renames it over the original. transform returns
// the replacement row, or keep=false to drop the row. commit is evaluated
// after the stream; when it returns false the temp file is discarded and the
// original left untouched. O(n) in row count; the only write path used by
// update and delete.
func (fs *fileStore) rewrite(movieID string, transform func(rec []string) (out []string, keep bool), commit func() bool) error {
	tmp, err := os.CreateTemp(fs.movieDir(movieID), reviewsFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	streamErr := func() error {
		if err := w.Write(csvHeader); err != nil {
			return err
		}
		return fs.forEachRow(movieID, func(_ int, rec []string) (bool, error) {
			out, keep := transform(rec)
			if !keep {
				return true, nil
			}
			return true, w.Write(out)
		})
	}()
	if streamErr == nil {
		w.Flush()
		streamErr = w.Error()
	}
	if closeErr := tmp.Close(); streamErr == nil {
		streamErr = closeErr
	}
	if streamErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rewrite reviews file: %w", streamErr)
	}

	if !commit() {
		os.Remove(tmpPath)
		return nil
	}

	if err := os.Rename(tmpPath, fs.csvPath(movieID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace reviews file: %w", err)
	}
	return nil
}
