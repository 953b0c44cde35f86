package clipstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"slipclip/internal/clip"
	"slipclip/internal/fileutil"
)

// RecordExt is the extension of clip record files.
const RecordExt = ".slpc"

const (
	seqFileName     = ".clipseq"
	seqLockFileName = ".clipseq.lock"
	lockRetryDelay  = 25 * time.Millisecond
)

// DirStore keeps one record file per clip below a root directory. Keys are
// paths relative to the root, e.g. "train/FOX-ABC#123-7.slpc".
type DirStore struct {
	root  string
	parts *partitioner
}

// OpenDir opens (creating if needed) a directory store.
func OpenDir(root string, opts Options) (*DirStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("%w: store directory is empty", ErrInvalidArgument)
	}
	parts, err := newPartitioner(opts)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &DirStore{root: root, parts: parts}, nil
}

// Root returns the store directory.
func (s *DirStore) Root() string { return s.root }

// Put writes each clip to its own file. The directory for a partition is
// created on first use.
func (s *DirStore) Put(ctx context.Context, clips []clip.Clip) (WriteReport, error) {
	var report WriteReport
	for _, c := range clips {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		p := s.parts.next()
		data, err := EncodeRecord(c, p)
		if err != nil {
			report.fail(c, err)
			continue
		}
		dir := filepath.Join(s.root, string(p))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			report.fail(c, err)
			continue
		}
		if err := fileutil.WriteFileAtomic(filepath.Join(dir, clip.Filename(c, RecordExt)), data, 0o644); err != nil {
			report.fail(c, err)
			continue
		}
		report.written(p)
	}
	return report, nil
}

// Keys lists matching record files in lexical order. Only record headers are
// read when a filter is present.
func (s *DirStore) Keys(ctx context.Context, f Filter) ([]string, error) {
	conds, err := f.compile(clipFields)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, dir := range []Partition{PartitionNone, PartitionTrain, PartitionTest} {
		entries, err := os.ReadDir(filepath.Join(s.root, string(dir)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("list store: %w", err)
		}
		for _, entry := range entries {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), RecordExt) {
				continue
			}
			key := filepath.ToSlash(filepath.Join(string(dir), entry.Name()))
			if len(conds) > 0 {
				meta, err := s.readMeta(key)
				if err != nil {
					return nil, err
				}
				if !matchAll(conds, meta.record()) {
					continue
				}
			}
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *DirStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%w: key %q escapes the store", ErrInvalidArgument, key)
	}
	return filepath.Join(s.root, clean), nil
}

func (s *DirStore) readMeta(key string) (recordMeta, error) {
	path, err := s.path(key)
	if err != nil {
		return recordMeta{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return recordMeta{}, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()
	meta, _, err := readMeta(f)
	if err != nil {
		return recordMeta{}, fmt.Errorf("%s: %w", key, err)
	}
	return meta, nil
}

func (s *DirStore) load(key string) (clip.Clip, error) {
	path, err := s.path(key)
	if err != nil {
		return clip.Clip{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return clip.Clip{}, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return clip.Clip{}, fmt.Errorf("read %s: %w", key, err)
	}
	c, _, err := DecodeRecord(data)
	if err != nil {
		return clip.Clip{}, fmt.Errorf("%s: %w", key, err)
	}
	return c, nil
}

// Load reads the named clips.
func (s *DirStore) Load(ctx context.Context, keys []string) ([]clip.Clip, error) {
	out := make([]clip.Clip, 0, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := s.load(key)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Get yields matching clips one file at a time.
func (s *DirStore) Get(ctx context.Context, f Filter, limit int) iter.Seq2[clip.Clip, error] {
	return func(yield func(clip.Clip, error) bool) {
		keys, err := s.Keys(ctx, f)
		if err != nil {
			yield(clip.Clip{}, err)
			return
		}
		if limit > 0 && len(keys) > limit {
			keys = keys[:limit]
		}
		for _, key := range keys {
			if err := ctx.Err(); err != nil {
				yield(clip.Clip{}, err)
				return
			}
			c, err := s.load(key)
			if !yield(c, err) || err != nil {
				return
			}
		}
	}
}

// Count counts matching records.
func (s *DirStore) Count(ctx context.Context, f Filter) (int, error) {
	keys, err := s.Keys(ctx, f)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Reserve allocates ids from a counter file guarded by an advisory lock, so
// independent processes writing to the same directory get disjoint ranges.
func (s *DirStore) Reserve(ctx context.Context, n int) (int, error) {
	if n < 0 {
		return 0, fmt.Errorf("%w: cannot reserve %d ids", ErrInvalidArgument, n)
	}
	lock := flock.New(filepath.Join(s.root, seqLockFileName))
	ok, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return 0, fmt.Errorf("lock clip sequence: %w", err)
	}
	if !ok {
		return 0, errors.New("lock clip sequence: not acquired")
	}
	defer func() { _ = lock.Unlock() }()

	seqPath := filepath.Join(s.root, seqFileName)
	next := 0
	data, err := os.ReadFile(seqPath)
	switch {
	case err == nil:
		next, err = strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil || next < 0 {
			return 0, fmt.Errorf("corrupt clip sequence file %s", seqPath)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return 0, fmt.Errorf("read clip sequence: %w", err)
	}

	if n > 0 {
		if err := fileutil.WriteFileAtomic(seqPath, []byte(strconv.Itoa(next+n)+"\n"), 0o644); err != nil {
			return 0, fmt.Errorf("write clip sequence: %w", err)
		}
	}
	return next, nil
}

// DiskUsage sums the size of the store directory.
func (s *DirStore) DiskUsage(context.Context) (int64, error) {
	return fileutil.DirSize(s.root)
}

// Close is a no-op; DirStore holds no open handles.
func (s *DirStore) Close() error { return nil }
