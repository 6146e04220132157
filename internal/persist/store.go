package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrPlayerNotFound is returned when a player record lookup yields no
// usable record. Corrupt records are reported the same way after being
// logged, so callers treat them as a fresh character.
var ErrPlayerNotFound = errors.New("player not found")

// ErrInvalidName is returned when a character name fails validation.
var ErrInvalidName = errors.New("invalid character name")

// nameRx constrains character names to plain letters. The lowercased
// name doubles as a file name, so nothing else is allowed in.
var nameRx = regexp.MustCompile(`^[A-Za-z]{3,12}$`)

// ValidName reports whether name is an acceptable character name.
func ValidName(name string) bool {
	return nameRx.MatchString(name)
}

// PlayerStore reads and writes player records under a sharded directory
// tree: <dir>/<first letter>/<lowercased name>.yml. Writes go through a
// temp file and rename, so a record on disk is always complete.
type PlayerStore struct {
	dir    string
	logger *zap.Logger
}

// NewPlayerStore creates a PlayerStore rooted at dir, creating the
// directory if needed.
func NewPlayerStore(dir string, logger *zap.Logger) (*PlayerStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating player directory: %w", err)
	}
	return &PlayerStore{dir: dir, logger: logger}, nil
}

// path returns the record file for a character name.
func (s *PlayerStore) path(name string) string {
	lower := strings.ToLower(name)
	return filepath.Join(s.dir, lower[:1], lower+".yml")
}

// Exists reports whether a record is on disk for the name.
//
// Precondition: name must be a valid character name.
func (s *PlayerStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

// Load reads the record for a character name.
//
// Postcondition: Returns the record, or ErrPlayerNotFound when no record
// exists or the record on disk cannot be parsed.
func (s *PlayerStore) Load(name string) (*PlayerRecord, error) {
	if !ValidName(name) {
		return nil, ErrInvalidName
	}

	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading player record %q: %w", name, err)
	}

	var rec PlayerRecord
	if err := yaml.Unmarshal(data, &rec); err != nil {
		s.logger.Warn("player record is corrupt, treating as missing",
			zap.String("player", name),
			zap.String("path", s.path(name)),
			zap.Error(err))
		return nil, ErrPlayerNotFound
	}
	return &rec, nil
}

// Save writes the record durably. The write lands in a temp file first
// and is renamed into place, so a crash mid-save never clobbers the
// previous record.
//
// Precondition: rec.Name must be a valid character name.
func (s *PlayerStore) Save(rec *PlayerRecord) error {
	if !ValidName(rec.Name) {
		return ErrInvalidName
	}

	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding player record %q: %w", rec.Name, err)
	}

	target := s.path(rec.Name)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing player record %q: %w", rec.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing player record %q: %w", rec.Name, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing player record %q: %w", rec.Name, err)
	}
	return nil
}

// Names lists every character with a record on disk, sorted.
func (s *PlayerStore) Names() ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".yml") {
			return nil
		}
		names = append(names, strings.TrimSuffix(d.Name(), ".yml"))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking player directory: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
