package mapeditor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ErrUnknownResource is returned by Load for an id with no metadata.
var ErrUnknownResource = errors.New("unknown resource")

// ResourceStore serves files described by metadata documents. Metadata is
// read once from <dir>/metadata; YAML and JSON documents are both accepted.
type ResourceStore struct {
	dir  string
	list []ResourceMetadata
	byID map[string]int
}

// OpenResourceStore loads every metadata document under dir/metadata. A
// missing metadata directory yields an empty store. Unreadable documents are
// logged and skipped.
func OpenResourceStore(dir string, log *zap.Logger) (*ResourceStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	rs := &ResourceStore{dir: dir, byID: make(map[string]int)}
	metaDir := filepath.Join(dir, "metadata")
	entries, err := os.ReadDir(metaDir)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn("no resource metadata", zap.String("dir", metaDir))
		return rs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read resource metadata: %w", err)
	}

	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml" && ext != ".json") {
			continue
		}
		path := filepath.Join(metaDir, e.Name())
		md, err := readMetadata(path)
		if err != nil {
			log.Error("skipping resource metadata", zap.String("path", path), zap.Error(err))
			continue
		}
		if _, dup := rs.byID[md.ID]; dup {
			log.Error("duplicate resource id", zap.String("id", md.ID), zap.String("path", path))
			continue
		}
		rs.byID[md.ID] = len(rs.list)
		rs.list = append(rs.list, md)
	}
	log.Info("resources loaded", zap.Int("count", len(rs.list)))
	return rs, nil
}

func readMetadata(path string) (ResourceMetadata, error) {
	var md ResourceMetadata
	b, err := os.ReadFile(path)
	if err != nil {
		return md, err
	}
	if err := yaml.Unmarshal(b, &md); err != nil {
		return md, err
	}
	if md.ID == "" || md.Name == "" {
		return md, errors.New("id and name are required")
	}
	if md.Name != filepath.Base(md.Name) {
		return md, fmt.Errorf("name %q must be a plain file name", md.Name)
	}
	return md, nil
}

// List returns the metadata of every resource, in directory order.
func (rs *ResourceStore) List() []ResourceMetadata {
	return slices.Clone(rs.list)
}

// Get returns the metadata for id.
func (rs *ResourceStore) Get(id string) (ResourceMetadata, bool) {
	i, ok := rs.byID[id]
	if !ok {
		return ResourceMetadata{}, false
	}
	return rs.list[i], true
}

// Load reads the resource file for id.
func (rs *ResourceStore) Load(id string) (ResourcePayload, error) {
	md, ok := rs.Get(id)
	if !ok {
		return ResourcePayload{}, fmt.Errorf("%w: %q", ErrUnknownResource, id)
	}
	b, err := os.ReadFile(filepath.Join(rs.dir, md.Name))
	if err != nil {
		return ResourcePayload{}, fmt.Errorf("load resource %q: %w", id, err)
	}
	return ResourcePayload{Metadata: md, Data: b}, nil
}
