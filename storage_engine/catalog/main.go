package catalog

import (
	"KeyTreeDB/types"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"
)

/*
This file is the main access of Catalog Manager
Catalog manager maintains the index metadata of the database and also persists it on the disk
It persists the file id counter, the catalog ref counter and every index entry (file, root page, key descriptor)
in metadata/catalog.json. Everything is loaded when the catalog is created.

Resolve(ref) is what the page allocator calls on every page allocation, so those lookups go through a ristretto cache.
*/

var (
	ErrIndexNotFound = errors.New("index not found")
	ErrIndexExists   = errors.New("index already exists")
)

const catalogFileName = "catalog.json"

func NewCatalogManager(dbRoot string, cacheSize int64, logger *zap.Logger) (*CatalogManager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheSize <= 0 {
		cacheSize = 1024
	}

	cache, err := ristretto.NewCache(&ristretto.Config[uint32, types.PhysicalFileID]{
		NumCounters: cacheSize * 10,
		MaxCost:     cacheSize,
		BufferItems: 64,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create catalog cache")
	}

	cm := &CatalogManager{
		dbRoot:     dbRoot,
		nextFileID: 1,
		nextRef:    1,
		indexes:    make(map[string]IndexEntry),
		byRef:      make(map[types.CatalogRef]string),
		resolved:   cache,
		logger:     logger,
	}
	if err := cm.load(); err != nil {
		cache.Close()
		return nil, err
	}
	return cm, nil
}

func (cm *CatalogManager) metaDir() string {
	return filepath.Join(cm.dbRoot, "metadata")
}

func (cm *CatalogManager) load() error {
	data, err := os.ReadFile(filepath.Join(cm.metaDir(), catalogFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read catalog file")
	}

	var cf catalogFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return errors.Wrap(err, "failed to unmarshal catalog")
	}

	cm.nextFileID = cf.NextFileID
	cm.nextRef = cf.NextRef
	for name, entry := range cf.Indexes {
		cm.indexes[name] = entry
		cm.byRef[entry.Ref] = name
	}
	cm.logger.Debug("catalog loaded", zap.Int("indexes", len(cm.indexes)))
	return nil
}

// persistLocked assumes cm.mu is held
func (cm *CatalogManager) persistLocked() error {
	if err := os.MkdirAll(cm.metaDir(), 0755); err != nil {
		return errors.Wrap(err, "failed to create metadata directory")
	}
	data, err := json.MarshalIndent(catalogFile{
		NextFileID: cm.nextFileID,
		NextRef:    cm.nextRef,
		Indexes:    cm.indexes,
	}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal catalog")
	}

	// write-then-rename so a crash never leaves half a catalog behind
	path := filepath.Join(cm.metaDir(), catalogFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "failed to write catalog")
	}
	return errors.Wrap(os.Rename(tmp, path), "failed to install catalog")
}

// RegisterIndex assigns a catalog ref and a file to a new index and persists the entry.
// The root page is filled in later with SetRoot once the index file exists.
func (cm *CatalogManager) RegisterIndex(name string, kdesc types.KeyDesc, pageSize int) (IndexEntry, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if _, exists := cm.indexes[name]; exists {
		return IndexEntry{}, errors.Wrapf(ErrIndexExists, "index '%s'", name)
	}

	entry := IndexEntry{
		Name:       name,
		Ref:        cm.nextRef,
		File:       types.PhysicalFileID{Volume: 0, FileID: cm.nextFileID},
		RootPageID: types.NilPageID,
		KeyDesc:    kdesc,
		PageSize:   pageSize,
	}
	cm.nextRef++
	cm.nextFileID++

	cm.indexes[name] = entry
	cm.byRef[entry.Ref] = name

	if err := cm.persistLocked(); err != nil {
		delete(cm.indexes, name)
		delete(cm.byRef, entry.Ref)
		cm.nextRef--
		cm.nextFileID--
		return IndexEntry{}, err
	}

	cm.logger.Debug("index registered",
		zap.String("index", name),
		zap.Uint32("ref", uint32(entry.Ref)),
		zap.Stringer("file", entry.File))
	return entry, nil
}

// SetRoot records the root page of an index. The root never moves after creation.
func (cm *CatalogManager) SetRoot(ref types.CatalogRef, rootPageID int64) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	name, ok := cm.byRef[ref]
	if !ok {
		return errors.Wrapf(ErrIndexNotFound, "catalog ref %d", ref)
	}
	entry := cm.indexes[name]
	entry.RootPageID = rootPageID
	cm.indexes[name] = entry
	return cm.persistLocked()
}

// Lookup returns the entry of the named index.
func (cm *CatalogManager) Lookup(name string) (IndexEntry, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	entry, ok := cm.indexes[name]
	if !ok {
		return IndexEntry{}, errors.Wrapf(ErrIndexNotFound, "index '%s'", name)
	}
	return entry, nil
}

// Resolve maps a catalog ref to the physical file holding its pages.
func (cm *CatalogManager) Resolve(ref types.CatalogRef) (types.PhysicalFileID, error) {
	if pfid, ok := cm.resolved.Get(uint32(ref)); ok {
		return pfid, nil
	}

	cm.mu.RLock()
	name, ok := cm.byRef[ref]
	var pfid types.PhysicalFileID
	if ok {
		pfid = cm.indexes[name].File
	}
	cm.mu.RUnlock()

	if !ok {
		return types.PhysicalFileID{}, errors.Wrapf(ErrIndexNotFound, "catalog ref %d", ref)
	}
	cm.resolved.Set(uint32(ref), pfid, 1)
	return pfid, nil
}

// Indexes lists every registered index ordered by name.
func (cm *CatalogManager) Indexes() []IndexEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	out := make([]IndexEntry, 0, len(cm.indexes))
	for _, e := range cm.indexes {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (cm *CatalogManager) Close() {
	cm.resolved.Close()
}
