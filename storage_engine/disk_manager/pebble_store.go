package diskmanager

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

/*
PebbleStore keeps index pages inside a pebble LSM instead of one OS file per index.
Same global page ID space as DiskManager (fileID << 32 | local), so trees cannot tell the difference.

Key layout:
	'p' | pageID  (8B big endian)  -> sealed page bytes
	'n' | fileID  (4B big endian)  -> next local page number
	'm' | fileID  (4B big endian)  -> metadata payload
*/

var _ Store = (*PebbleStore)(nil)

type PebbleStore struct {
	db     *pebble.DB
	next   map[uint32]int64 // fileID -> next local page number
	logger *zap.Logger
	mu     sync.Mutex
}

// OpenPebbleStore opens (or creates) a pebble database at dir. opts may be nil.
func OpenPebbleStore(dir string, opts *pebble.Options, logger *zap.Logger) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open pebble store at %s", dir)
	}
	return &PebbleStore{
		db:     db,
		next:   make(map[uint32]int64),
		logger: logger,
	}, nil
}

func pebblePageKey(pageID int64) []byte {
	k := make([]byte, 9)
	k[0] = 'p'
	binary.BigEndian.PutUint64(k[1:], uint64(pageID))
	return k
}

func pebbleFileKey(prefix byte, fileID uint32) []byte {
	k := make([]byte, 5)
	k[0] = prefix
	binary.BigEndian.PutUint32(k[1:], fileID)
	return k
}

func (s *PebbleStore) get(key []byte) ([]byte, bool, error) {
	val, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer closer.Close()
	out := make([]byte, len(val))
	copy(out, val)
	return out, true, nil
}

func (s *PebbleStore) OpenFile(name string, fileID uint32) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.next[fileID]; ok {
		return false, nil
	}

	raw, found, err := s.get(pebbleFileKey('n', fileID))
	if err != nil {
		return false, errors.Wrapf(err, "failed to open file %s", name)
	}
	if found {
		s.next[fileID] = int64(binary.LittleEndian.Uint64(raw))
		return false, nil
	}

	s.next[fileID] = 0
	if err := s.persistNextLocked(fileID); err != nil {
		return false, err
	}
	s.logger.Debug("created pebble file", zap.String("name", name), zap.Uint32("fileID", fileID))
	return true, nil
}

func (s *PebbleStore) persistNextLocked(fileID uint32) error {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(s.next[fileID]))
	if err := s.db.Set(pebbleFileKey('n', fileID), buf, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "failed to persist page counter for file %d", fileID)
	}
	return nil
}

func (s *PebbleStore) ReadPage(pageID int64) (*page.Page, error) {
	fileID := FileOf(pageID)

	s.mu.Lock()
	next, open := s.next[fileID]
	s.mu.Unlock()

	if !open {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}
	if LocalPageNum(pageID) >= next {
		return nil, errors.Wrapf(ErrPageNotFound, "page %d", pageID)
	}

	pg := page.New(pageID, fileID, types.PageTypeUnknown)
	raw, found, err := s.get(pebblePageKey(pageID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read page %d", pageID)
	}
	if !found {
		return pg, nil
	}
	copy(pg.Data, raw)
	if !page.Verify(pg.Data) {
		return nil, errors.Wrapf(ErrChecksumMismatch, "page %d", pageID)
	}
	pg.PageType = types.PageType(pg.Data[page.PageTypeOffset])
	return pg, nil
}

func (s *PebbleStore) WritePage(pg *page.Page) error {
	if len(pg.Data) != page.PageSize {
		return errors.Newf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}
	page.Seal(pg.Data, pg.PageType)
	if err := s.db.Set(pebblePageKey(pg.ID), pg.Data, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "failed to write page %d", pg.ID)
	}
	pg.IsDirty = false
	return nil
}

func (s *PebbleStore) AllocatePage(fileID uint32, pageType types.PageType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local, open := s.next[fileID]
	if !open {
		return 0, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}
	s.next[fileID] = local + 1
	if err := s.persistNextLocked(fileID); err != nil {
		s.next[fileID] = local
		return 0, err
	}

	pageID := GlobalPageID(fileID, local)
	s.logger.Debug("allocated page",
		zap.Uint32("fileID", fileID),
		zap.Int64("pageID", pageID),
		zap.Stringer("type", pageType))
	return pageID, nil
}

func (s *PebbleStore) WriteMetadata(fileID uint32, metadata []byte) error {
	if err := s.db.Set(pebbleFileKey('m', fileID), metadata, pebble.NoSync); err != nil {
		return errors.Wrapf(err, "failed to write metadata for file %d", fileID)
	}
	return nil
}

func (s *PebbleStore) ReadMetadata(fileID uint32) ([]byte, error) {
	raw, found, err := s.get(pebbleFileKey('m', fileID))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read metadata for file %d", fileID)
	}
	if !found {
		return nil, errors.Wrapf(ErrFileNotFound, "no metadata for file %d", fileID)
	}
	return raw, nil
}

func (s *PebbleStore) FilePages(fileID uint32) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, open := s.next[fileID]
	if !open {
		return 0, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}
	return next, nil
}

func (s *PebbleStore) Sync() error {
	if err := s.db.Flush(); err != nil {
		return errors.Wrap(err, "failed to flush pebble store")
	}
	return nil
}

func (s *PebbleStore) CloseAll() error {
	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, "failed to close pebble store")
	}
	return nil
}
