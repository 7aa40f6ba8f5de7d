// Package franchise loads the sister-game map used to widen sparse search
// results. The map associates a franchise token ("zelda", "final fantasy")
// with sibling title patterns worth looking up when the token appears in a
// query. A default map ships embedded; an optional file on disk overrides it
// and can be hot-reloaded.
package franchise

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/pikestaff/cartridge/internal/game"
)

//go:embed franchises.yaml
var defaultAsset []byte

type mapFile struct {
	Franchises map[string][]string `yaml:"franchises"`
}

// Map holds franchise tokens and their sibling patterns, both stored in
// normalized form. Safe for concurrent use; Reload swaps the entry set
// atomically.
type Map struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string][]string
}

// New builds a Map from the embedded default asset, then applies the file at
// path as an override when one is configured. A missing or unparseable
// override file is logged and ignored; only a broken embedded asset is an
// error.
func New(path string, logger *slog.Logger) (*Map, error) {
	entries, err := parseEntries(defaultAsset)
	if err != nil {
		return nil, fmt.Errorf("parsing embedded franchise map: %w", err)
	}

	m := &Map{
		path:    path,
		logger:  logger.With(slog.String("component", "franchise")),
		entries: entries,
	}

	if path != "" {
		if err := m.Reload(); err != nil {
			if os.IsNotExist(err) {
				m.logger.Debug("franchise file absent, using embedded map", slog.String("path", path))
			} else {
				m.logger.Warn("franchise file unusable, using embedded map",
					slog.String("path", path),
					slog.Any("error", err))
			}
		}
	}

	return m, nil
}

// Reload re-reads the override file and swaps in its entries. On any error
// the current entries stay in place. A Map without a configured path is a
// no-op.
func (m *Map) Reload() error {
	if m.path == "" {
		return nil
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}

	entries, err := parseEntries(data)
	if err != nil {
		return fmt.Errorf("parsing franchise file %s: %w", m.path, err)
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()

	m.logger.Info("franchise map loaded",
		slog.String("path", m.path),
		slog.Int("tokens", len(entries)))
	return nil
}

// Lookup reports whether the query mentions a known franchise. The token must
// appear as a whole word in the normalized query, or the query must start
// with it. When several tokens match, the longest wins; equal lengths break
// lexicographically so the result is deterministic.
func (m *Map) Lookup(query string) (string, []string, bool) {
	normalized := game.NormalizeName(query)
	if normalized == "" {
		return "", nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var best string
	for token := range m.entries {
		if !game.ContainsWord(normalized, token) && !strings.HasPrefix(normalized, token) {
			continue
		}
		if len(token) > len(best) || (len(token) == len(best) && token < best) {
			best = token
		}
	}
	if best == "" {
		return "", nil, false
	}

	patterns := make([]string, len(m.entries[best]))
	copy(patterns, m.entries[best])
	return best, patterns, true
}

// Len returns the number of franchise tokens currently loaded.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// parseEntries decodes a franchise YAML document and normalizes every token
// and pattern. Empty tokens, empty patterns, and duplicate patterns are
// dropped. Pattern order follows the file, so authors can put the most
// important siblings first.
func parseEntries(data []byte) (map[string][]string, error) {
	var file mapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Franchises) == 0 {
		return nil, fmt.Errorf("no franchises defined")
	}

	entries := make(map[string][]string, len(file.Franchises))
	for token, patterns := range file.Franchises {
		nt := game.NormalizeName(token)
		if nt == "" {
			continue
		}
		seen := make(map[string]struct{}, len(patterns))
		normalized := make([]string, 0, len(patterns))
		for _, p := range patterns {
			np := game.NormalizeName(p)
			if np == "" {
				continue
			}
			if _, dup := seen[np]; dup {
				continue
			}
			seen[np] = struct{}{}
			normalized = append(normalized, np)
		}
		entries[nt] = normalized
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no usable franchise entries")
	}
	return entries, nil
}
