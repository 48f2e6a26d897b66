package kit

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Content directory names within a kit.
const (
	CategoryScripts    = "scripts"
	CategoryExtensions = "extensions"
	CategoryAgents     = "agents"
)

// WatchSet lists the directories the script policy should cover for one
// kit root. Scripts directories are only listed when they exist;
// extensions and agents are listed unconditionally so they can be watched
// lazily once created.
type WatchSet struct {
	Root       string
	Scripts    []string
	Extensions []string
	Agents     []string
}

// Discover enumerates the kit directories under root. A missing or
// unreadable root yields an empty set; the watcher still covers the root
// itself so kits created later are found.
func Discover(root string) WatchSet {
	ws := WatchSet{Root: root}

	entries, err := os.ReadDir(root)
	if err != nil {
		slog.Debug("kit root not readable", "root", root, "error", err)
		return ws
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		kitDir := filepath.Join(root, entry.Name())

		scripts := filepath.Join(kitDir, CategoryScripts)
		if info, err := os.Stat(scripts); err == nil && info.IsDir() {
			ws.Scripts = append(ws.Scripts, scripts)
		}
		ws.Extensions = append(ws.Extensions, filepath.Join(kitDir, CategoryExtensions))
		ws.Agents = append(ws.Agents, filepath.Join(kitDir, CategoryAgents))
	}

	slog.Debug("discovered kit directories",
		"root", root,
		"scripts", len(ws.Scripts),
		"kits", len(ws.Extensions))
	return ws
}
