package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// YAMLStore writes each session to <dir>/<id>.yaml.
type YAMLStore struct {
	dir string
}

var _ session.Sink = (*YAMLStore)(nil)

// NewYAMLStore creates dir if needed.
func NewYAMLStore(dir string) (*YAMLStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir %s: %w", dir, err)
	}
	return &YAMLStore{dir: dir}, nil
}

func (s *YAMLStore) path(id string) string {
	return filepath.Join(s.dir, id+".yaml")
}

func (s *YAMLStore) Save(_ context.Context, m session.Model) error {
	if m.ID == "" || strings.ContainsAny(m.ID, `/\`) {
		return fmt.Errorf("invalid session id %q", m.ID)
	}

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", m.ID, err)
	}

	// Write then rename so readers never see a partial file.
	tmp := s.path(m.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write session %s: %w", m.ID, err)
	}
	if err := os.Rename(tmp, s.path(m.ID)); err != nil {
		return fmt.Errorf("write session %s: %w", m.ID, err)
	}
	return nil
}

// Get reads one session back.
func (s *YAMLStore) Get(_ context.Context, id string) (session.Model, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return session.Model{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return session.Model{}, fmt.Errorf("read session %s: %w", id, err)
	}

	var m session.Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return session.Model{}, fmt.Errorf("parse session %s: %w", id, err)
	}
	return m, nil
}

// List returns up to limit sessions, newest first. A limit of 0 means all.
func (s *YAMLStore) List(ctx context.Context, limit int) ([]session.Model, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	models := make([]session.Model, 0, len(matches))
	for _, path := range matches {
		m, err := s.Get(ctx, strings.TrimSuffix(filepath.Base(path), ".yaml"))
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}

	sort.Slice(models, func(i, j int) bool { return models[i].Date.After(models[j].Date) })
	if limit > 0 && len(models) > limit {
		models = models[:limit]
	}
	return models, nil
}
