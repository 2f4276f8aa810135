// Package fs stores a collection as a directory of BSON files, one document
// per file named after its _id. The file name carries the kind of the
// identifier, so the string "7" and the integer 7 are distinct documents:
//
//	o.<hex>.bson   ObjectID
//	s.<id>.bson    string
//	i.<n>.bson     integer
package fs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/aretw0/introspection"

	"github.com/aretw0/odm/pkg/bsonutil"
	"github.com/aretw0/odm/pkg/core"
)

// ErrDuplicateKey is returned when a document reuses an existing _id.
var ErrDuplicateKey = errors.New("duplicate _id")

// ErrInvalidID is returned for identifiers that cannot name a file.
var ErrInvalidID = errors.New("identifier cannot be used as a file name")

// Config holds the configuration for a directory collection.
type Config struct {
	Path   string
	Logger *slog.Logger
	Perm   os.FileMode
}

// Collection is a core.Collection backed by a directory.
// Identifiers must be strings, ObjectIDs or integers.
type Collection struct {
	Path string

	logger *slog.Logger
	perm   os.FileMode
	mu     sync.RWMutex

	watching bool
}

// NewCollection creates the directory if needed and returns the collection.
func NewCollection(cfg Config) (*Collection, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("collection path cannot be empty")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Perm == 0 {
		cfg.Perm = 0644
	}
	if err := os.MkdirAll(cfg.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	return &Collection{Path: cfg.Path, logger: cfg.Logger, perm: cfg.Perm}, nil
}

// InsertOne implements core.Collection.
func (c *Collection) InsertOne(ctx context.Context, doc bson.D) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, ok := core.Lookup(doc, "_id")
	if !ok || id == nil {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}
	name, err := fileName(id)
	if err != nil {
		return nil, err
	}

	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.insertLocked(id, name, raw)
}

// insertLocked must be called with the write lock held.
func (c *Collection) insertLocked(id any, name string, raw bson.Raw) (any, error) {
	path := filepath.Join(c.Path, name)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: %v", ErrDuplicateKey, id)
	}
	if err := writeDocument(path, raw, c.perm); err != nil {
		return nil, err
	}
	c.logger.Debug("inserted document", "path", path)
	return id, nil
}

// FindOne implements core.Collection.
func (c *Collection) FindOne(ctx context.Context, filter any) (bson.Raw, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, raw, err := c.first(ctx, filter)
	return raw, err
}

// Find implements core.Collection. Documents come back ordered by file name.
func (c *Collection) Find(ctx context.Context, filter any) ([]bson.Raw, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files, err := c.files()
	if err != nil {
		return nil, err
	}

	var out []bson.Raw
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := readDocument(f)
		if err != nil {
			c.logger.Warn("skipping unreadable document", "path", f, "error", err)
			continue
		}
		if bsonutil.Match(raw, filter) {
			out = append(out, raw)
		}
	}
	return out, nil
}

// ReplaceOne implements core.Collection. The stored _id is kept.
func (c *Collection) ReplaceOne(ctx context.Context, filter any, doc bson.D, upsert bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, prev, err := c.first(ctx, filter)
	if err == nil {
		id := prev.Lookup("_id")
		replacement := make(bson.D, 0, len(doc)+1)
		replacement = append(replacement, bson.E{Key: "_id", Value: id})
		for _, e := range doc {
			if e.Key != "_id" {
				replacement = append(replacement, e)
			}
		}
		raw, err := bson.Marshal(replacement)
		if err != nil {
			return err
		}
		return writeDocument(path, raw, c.perm)
	}
	if !errors.Is(err, core.ErrNotFound) || !upsert {
		return err
	}

	id, ok := core.Lookup(doc, "_id")
	if !ok || id == nil {
		id = primitive.NewObjectID()
		doc = append(bson.D{{Key: "_id", Value: id}}, doc...)
	}
	name, err := fileName(id)
	if err != nil {
		return err
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = c.insertLocked(id, name, raw)
	return err
}

// DeleteOne implements core.Collection.
func (c *Collection) DeleteOne(ctx context.Context, filter any) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	path, _, err := c.first(ctx, filter)
	if errors.Is(err, core.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := os.Remove(path); err != nil {
		return 0, err
	}
	return 1, nil
}

// first must be called with the lock held.
func (c *Collection) first(ctx context.Context, filter any) (string, bson.Raw, error) {
	if id, ok := core.Lookup(filter, "_id"); ok && len(core.Ordered(filter)) == 1 {
		name, err := fileName(id)
		if err != nil {
			return "", nil, core.ErrNotFound
		}
		path := filepath.Join(c.Path, name)
		raw, err := readDocument(path)
		if os.IsNotExist(err) {
			return "", nil, core.ErrNotFound
		}
		return path, raw, err
	}

	files, err := c.files()
	if err != nil {
		return "", nil, err
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}
		raw, err := readDocument(f)
		if err != nil {
			continue
		}
		if bsonutil.Match(raw, filter) {
			return f, raw, nil
		}
	}
	return "", nil, core.ErrNotFound
}

func (c *Collection) files() ([]string, error) {
	entries, err := os.ReadDir(c.Path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !isDocumentFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(c.Path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isDocumentFile(name string) bool {
	return strings.HasSuffix(name, Ext) && !strings.HasPrefix(name, TempFilePrefix)
}

// fileName maps an identifier to the file holding its document.
func fileName(id any) (string, error) {
	var kind, key string
	switch v := id.(type) {
	case primitive.ObjectID:
		kind, key = "o", v.Hex()
	case string:
		kind, key = "s", v
	case int, int32, int64:
		kind, key = "i", fmt.Sprint(v)
	case bson.RawValue:
		var decoded any
		if err := v.Unmarshal(&decoded); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
		return fileName(decoded)
	default:
		return "", fmt.Errorf("%w: %T", ErrInvalidID, id)
	}
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, TempFilePrefix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidID, key)
	}
	return kind + "." + key + Ext, nil
}

// idOf returns the identifier part of a document file name.
func idOf(name string) string {
	key := strings.TrimSuffix(name, Ext)
	if len(key) > 2 && key[1] == '.' && strings.ContainsRune("osi", rune(key[0])) {
		return key[2:]
	}
	return key
}

// CollectionState exposes internal state for observability.
type CollectionState struct {
	Path          string `json:"path"`
	Documents     int    `json:"documents"`
	WatcherActive bool   `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (c *Collection) State() any {
	c.mu.RLock()
	defer c.mu.RUnlock()

	files, _ := c.files()
	return CollectionState{
		Path:          c.Path,
		Documents:     len(files),
		WatcherActive: c.watching,
	}
}

// ComponentType implements introspection.Component.
func (c *Collection) ComponentType() string {
	return "collection"
}

var _ core.Collection = (*Collection)(nil)
var _ introspection.Introspectable = (*Collection)(nil)
var _ introspection.Component = (*Collection)(nil)

func (c *Collection) setWatching(active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watching = active
}
