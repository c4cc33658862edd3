package json

import (
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// ChatInfo summarizes one saved chat for listing without loading the full
// exchange history.
type ChatInfo struct {
	Path      string
	ID        string
	Title     string
	Exchanges int
}

// List finds saved chats under dir matching the given glob pattern (e.g.
// "**/*.json"), newest first. Files that fail to parse are skipped; a history
// directory with one corrupt file should still list the rest.
func List(dir, pattern string) ([]ChatInfo, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("access history dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("history path is not a directory: %s", dir)
	}

	type entry struct {
		info    ChatInfo
		updated int64
	}
	var entries []entry

	fsys := os.DirFS(dir)
	err = doublestar.GlobWalk(fsys, pattern, func(path string, d iofs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		full := filepath.Join(dir, filepath.FromSlash(path))
		chat, err := Load(full)
		if err != nil {
			return nil
		}
		entries = append(entries, entry{
			info: ChatInfo{
				Path:      full,
				ID:        chat.ID,
				Title:     chat.Title,
				Exchanges: len(chat.Exchanges),
			},
			updated: chat.UpdatedAt.UnixNano(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk history dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].updated > entries[j].updated })
	result := make([]ChatInfo, len(entries))
	for i, e := range entries {
		result[i] = e.info
	}
	return result, nil
}
