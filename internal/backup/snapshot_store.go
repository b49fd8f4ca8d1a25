package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrSnapshotNotFound is returned by Open for an unknown snapshot name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrInvalidSnapshotName rejects names that could escape the store.
var ErrInvalidSnapshotName = errors.New("invalid snapshot name")

var snapshotNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*(\.[A-Za-z0-9_-]+)*\.sql$`)

// SnapshotInfo describes one stored dump.
type SnapshotInfo struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	Location  string    `json:"location"`
}

// SnapshotStore keeps dump files. Save must never expose a partially
// written snapshot under its final name.
type SnapshotStore interface {
	// Save stores what write produces under name, or under a suffixed
	// variant when name is taken, and reports where it went.
	Save(ctx context.Context, name string, write func(io.Writer) error) (SnapshotInfo, error)
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns snapshots newest first.
	List(ctx context.Context) ([]SnapshotInfo, error)
}

func checkSnapshotName(name string) error {
	if !snapshotNamePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidSnapshotName, name)
	}
	return nil
}

// suffixed returns name with _n inserted before the extension.
func suffixed(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(name, ext), n, ext)
}

// LocalSnapshotStore keeps snapshots as files in one directory.
type LocalSnapshotStore struct {
	dir string
	// mu serializes picking a free final name.
	mu sync.Mutex
}

func NewLocalSnapshotStore(dir string) (*LocalSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &LocalSnapshotStore{dir: dir}, nil
}

func (s *LocalSnapshotStore) Save(ctx context.Context, name string, write func(io.Writer) error) (SnapshotInfo, error) {
	if err := checkSnapshotName(name); err != nil {
		return SnapshotInfo{}, err
	}

	tmp, err := os.CreateTemp(s.dir, "."+uuid.NewString()+"-*.tmp")
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return SnapshotInfo{}, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return SnapshotInfo{}, fmt.Errorf("sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return SnapshotInfo{}, fmt.Errorf("close snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return SnapshotInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	final := name
	for n := 1; ; n++ {
		if _, err := os.Stat(filepath.Join(s.dir, final)); errors.Is(err, os.ErrNotExist) {
			break
		} else if err != nil {
			return SnapshotInfo{}, fmt.Errorf("check snapshot name: %w", err)
		}
		final = suffixed(name, n)
	}

	path := filepath.Join(s.dir, final)
	if err := os.Rename(tmpPath, path); err != nil {
		return SnapshotInfo{}, fmt.Errorf("move snapshot into place: %w", err)
	}
	committed = true

	st, err := os.Stat(path)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("stat snapshot: %w", err)
	}
	return SnapshotInfo{Name: final, Size: st.Size(), CreatedAt: st.ModTime(), Location: path}, nil
}

func (s *LocalSnapshotStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := checkSnapshotName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrSnapshotNotFound
	}
	return f, err
}

func (s *LocalSnapshotStore) List(ctx context.Context) ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read snapshot directory: %w", err)
	}

	var out []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() || !snapshotNamePattern.MatchString(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, SnapshotInfo{
			Name:      entry.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
			Location:  filepath.Join(s.dir, entry.Name()),
		})
	}
	sortSnapshots(out)
	return out, nil
}

func sortSnapshots(s []SnapshotInfo) {
	sort.Slice(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.After(s[j].CreatedAt)
		}
		return s[i].Name > s[j].Name
	})
}

// StoreConfig selects and configures a snapshot store.
type StoreConfig struct {
	// Kind is "local" or "s3".
	Kind   string
	Dir    string
	Bucket string
	Region string
	Prefix string
}

// NewSnapshotStore builds the store selected by cfg.Kind.
func NewSnapshotStore(ctx context.Context, cfg StoreConfig) (SnapshotStore, error) {
	switch cfg.Kind {
	case "", "local":
		dir := cfg.Dir
		if dir == "" {
			dir = "./backups"
		}
		return NewLocalSnapshotStore(dir)
	case "s3":
		if cfg.Bucket == "" || cfg.Region == "" {
			return nil, fmt.Errorf("s3 snapshot store requires a bucket and region")
		}
		return NewS3SnapshotStore(ctx, cfg.Bucket, cfg.Region, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown snapshot store: %s", cfg.Kind)
	}
}
