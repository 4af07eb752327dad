// Package yamlfile persists the health log as a YAML document:
//
//	health:
//	  4001: 1000
//	  4002: 480
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/partydamage/internal/game/agent"
	"github.com/cory-johannsen/partydamage/internal/game/health"
)

// document keeps raw value nodes; entries are parsed one at a time.
type document struct {
	Health map[string]yaml.Node `yaml:"health"`
}

type snapshot struct {
	Health map[uint32]int `yaml:"health"`
}

var errNotScalar = errors.New("not a scalar")

// Store is a health.Store backed by a single YAML file.
type Store struct {
	path   string
	logger *zap.Logger
}

// NewStore returns a Store reading and writing path.
//
// Precondition: path must be non-empty; logger must be non-nil.
func NewStore(path string, logger *zap.Logger) *Store {
	return &Store{path: path, logger: logger}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load parses the file. A missing file yields no entries. Keys that are not
// unsigned integers and values that are not integer scalars are skipped
// individually.
//
// Postcondition: Returns the parsed entries or a read/decode error.
func (s *Store) Load(_ context.Context) ([]health.Entry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	return s.decode(data)
}

func (s *Store) decode(data []byte) ([]health.Entry, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}

	entries := make([]health.Entry, 0, len(doc.Health))
	for k, node := range doc.Health {
		key, kerr := strconv.ParseUint(k, 10, 32)
		var hp int
		verr := errNotScalar
		if node.Kind == yaml.ScalarNode {
			hp, verr = strconv.Atoi(node.Value)
		}
		if kerr != nil || verr != nil {
			s.logger.Debug("skipping unparsable health log entry",
				zap.String("key", k),
				zap.String("value", node.Value),
				zap.Int("line", node.Line),
			)
			continue
		}
		entries = append(entries, health.Entry{Key: agent.IdentityKey(key), MaxHP: hp})
	}
	return entries, nil
}

// Save rewrites the whole file with entries. The file is replaced atomically.
func (s *Store) Save(_ context.Context, entries []health.Entry) error {
	doc := snapshot{Health: make(map[uint32]int, len(entries))}
	for _, e := range entries {
		doc.Health[uint32(e.Key)] = e.MaxHP
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding health log: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
