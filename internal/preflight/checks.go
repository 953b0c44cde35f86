package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"slipclip/internal/clipstore"
	"slipclip/internal/config"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReplayDirectory verifies that the replay directory is readable and
// reports how many replays it holds. Replays are only read, so write access
// is not required.
func CheckReplayDirectory(name, path string) Result {
	result := checkDirectory(name, path, unix.R_OK|unix.X_OK, "")
	if !result.Passed {
		return result
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: list: %v)", path, err)}
	}
	replays := 0
	for _, entry := range entries {
		if !entry.IsDir() && strings.EqualFold(filepath.Ext(entry.Name()), ".slp") {
			replays++
		}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s replays)", path, humanize.Comma(int64(replays)))}
}

func checkDirectory(name, path string, mode uint32, ok string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, ok)}
}

// CheckStore opens the configured clip store, counts its clips and reports
// the space it occupies.
func CheckStore(ctx context.Context, cfg *config.Config) Result {
	name := "Clip store (" + cfg.Store.Backend + ")"
	store, err := clipstore.Open(cfg, clipstore.Options{})
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("open failed (%v)", err)}
	}
	defer store.Close()

	n, err := store.Count(ctx, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("count failed (%v)", err)}
	}
	size, err := store.DiskUsage(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("size failed (%v)", err)}
	}
	return Result{
		Name:   name,
		Passed: true,
		Detail: fmt.Sprintf("%s clips, %s", humanize.Comma(int64(n)), humanize.Bytes(uint64(size))),
	}
}
