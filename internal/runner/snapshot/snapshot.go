package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bakkerme/herald/internal/core"
	"github.com/bakkerme/herald/internal/feedstore"
)

// Save writes snap to path as an indented JSON array of articles. The file is
// replaced atomically so readers never observe a partial write.
func Save(path string, snap *feedstore.Snapshot) error {
	if path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(snap.Articles(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot written by Save. GeneratedAt is the file's modification time.
func Load(path string) (*feedstore.Snapshot, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot path is required")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var articles []core.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	for i := range articles {
		if articles[i].Categories == nil {
			articles[i].Categories = []string{}
		}
	}
	return feedstore.New(articles, info.ModTime()), nil
}
