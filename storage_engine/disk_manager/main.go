package diskmanager

import (
	"KeyTreeDB/storage_engine/page"
	"KeyTreeDB/types"
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

/*
This is main file for disk manager
It owns:
File descriptors (os.File)
Reading/writing raw bytes at specific offsets (ReadAt, WriteAt)
Page allocation (tracking NextPageID per file)
The globalPageID ↔ (fileID, localPage) mapping
Page checksums: every page is sealed on write and verified on read

Page ID encoding:
globalPageID = int64(fileID) << 32 | localPageNum
This makes global IDs deterministic: no counter needed, same result on every restart regardless of file load order.
Index pages store global IDs for their children and siblings, which works because fileIDs come from the catalog.

Bufferpool on Page hits return the pages, but if page miss occurs then it is disk manager which creates/writes the page at the offset
*/

var _ Store = (*DiskManager)(nil)

func NewDiskManager(baseDir string, logger *zap.Logger) (*DiskManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create data directory %s", baseDir)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiskManager{
		baseDir:       baseDir,
		files:         make(map[uint32]*FileDescriptor),
		globalPageMap: make(map[int64]uint32),
		localToGlobal: make(map[PageKey]int64),
		logger:        logger,
	}, nil
}

func GlobalPageID(fileID uint32, localPageNum int64) int64 {
	return int64(fileID)<<32 | localPageNum
}

func LocalPageNum(globalPageID int64) int64 {
	return globalPageID & 0xFFFFFFFF
}

func FileOf(globalPageID int64) uint32 {
	return uint32(globalPageID >> 32)
}

// OpenFile opens name under the data directory with the catalog's fileID.
func (dm *DiskManager) OpenFile(name string, fileID uint32) (bool, error) {
	path := filepath.Join(dm.baseDir, name)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	if _, err := dm.OpenFileWithID(path, fileID); err != nil {
		return false, err
	}
	return isNew, nil
}

// OpenFileWithID opens the file at filePath under a catalog-assigned fileID (stable across restarts)
// and registers every page already in it.
func (dm *DiskManager) OpenFileWithID(filePath string, catalogFileID uint32) (uint32, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	// Already open, return existing.
	for id, fd := range dm.files {
		if fd.FilePath == filePath {
			return id, nil
		}
	}

	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to open file %s", filePath)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return 0, errors.Wrapf(err, "failed to stat file %s", filePath)
	}

	numPages := stat.Size() / int64(page.PageSize)

	fd := &FileDescriptor{
		FileID:     catalogFileID,
		FilePath:   filePath,
		File:       file,
		NextPageID: numPages,
	}
	dm.files[catalogFileID] = fd

	for local := int64(0); local < numPages; local++ {
		dm.registerLocked(catalogFileID, local)
	}

	dm.logger.Debug("opened file",
		zap.String("path", filePath),
		zap.Uint32("fileID", catalogFileID),
		zap.Int64("pages", numPages))

	return catalogFileID, nil
}

// ReadPage reads a page from disk and verifies its checksum
func (dm *DiskManager) ReadPage(globalPageID int64) (*page.Page, error) {
	dm.mu.RLock()
	fileID, exists := dm.globalPageMap[globalPageID]
	var fd *FileDescriptor
	if exists {
		fd = dm.files[fileID]
	}
	dm.mu.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrPageNotFound, "page %d", globalPageID)
	}
	if fd == nil {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d is closed", fileID)
	}

	// Calculate local page offset within the file
	localPageID := LocalPageNum(globalPageID)
	offset := localPageID * int64(page.PageSize)

	pg := page.New(globalPageID, fileID, types.PageTypeUnknown)
	n, err := fd.File.ReadAt(pg.Data, offset)
	if err != nil && n == 0 && localPageID < fd.NextPageID && offset >= fileSize(fd.File) {
		// allocated but never flushed: hand back a zero page
		return pg, nil
	}
	if err != nil && n == 0 {
		return nil, errors.Wrapf(err, "failed to read page %d from file %d", localPageID, fileID)
	}

	if !page.Verify(pg.Data) {
		return nil, errors.Wrapf(ErrChecksumMismatch, "page %d of file %d", localPageID, fileID)
	}

	pg.PageType = types.PageType(pg.Data[page.PageTypeOffset])
	return pg, nil
}

// WritePage seals and writes a page to disk
func (dm *DiskManager) WritePage(pg *page.Page) error {
	dm.mu.RLock()
	fd, exists := dm.files[pg.FileID]
	dm.mu.RUnlock()

	if !exists {
		return errors.Wrapf(ErrFileNotFound, "file %d", pg.FileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return errors.Wrapf(ErrFileNotFound, "file %d is closed", pg.FileID)
	}

	if len(pg.Data) != page.PageSize {
		return errors.Newf("page data size %d does not match page size %d", len(pg.Data), page.PageSize)
	}

	page.Seal(pg.Data, pg.PageType)

	localPageID := LocalPageNum(pg.ID)
	offset := localPageID * int64(page.PageSize)

	if _, err := fd.File.WriteAt(pg.Data, offset); err != nil {
		return errors.Wrapf(err, "failed to write page %d to file %d", localPageID, pg.FileID)
	}

	// Update next page ID if we wrote beyond current end
	if localPageID >= fd.NextPageID {
		fd.NextPageID = localPageID + 1
	}

	pg.IsDirty = false
	return nil
}

// AllocatePage reserves the next available page ID for a file and updates
// internal counters. It does NOT write anything to disk; that is the
// BufferPool's responsibility when it later flushes the dirty page.
func (dm *DiskManager) AllocatePage(fileID uint32, pageType types.PageType) (int64, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return 0, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return 0, errors.Wrapf(ErrFileNotFound, "file %d is closed", fileID)
	}

	localPageNum := fd.NextPageID
	fd.NextPageID++

	globalPageID := dm.registerLocked(fileID, localPageNum)
	dm.logger.Debug("allocated page",
		zap.Uint32("fileID", fileID),
		zap.Int64("pageID", globalPageID),
		zap.Stringer("type", pageType))

	return globalPageID, nil
}

// RegisterPage adds an existing local page into the globalPageMap.
func (dm *DiskManager) RegisterPage(fileID uint32, localPageNum int64) int64 {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return dm.registerLocked(fileID, localPageNum)
}

func (dm *DiskManager) registerLocked(fileID uint32, localPageNum int64) int64 {
	key := PageKey{FileID: fileID, LocalNum: localPageNum}
	if id, exists := dm.localToGlobal[key]; exists {
		return id
	}
	globalPageID := GlobalPageID(fileID, localPageNum)
	dm.globalPageMap[globalPageID] = fileID
	dm.localToGlobal[key] = globalPageID
	return globalPageID
}

// Sync flushes all file buffers to disk
func (dm *DiskManager) Sync() error {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	for _, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				fd.mu.Unlock()
				return errors.Wrapf(err, "failed to sync file %d", fd.FileID)
			}
		}
		fd.mu.Unlock()
	}

	return nil
}

// CloseFile closes a specific file
func (dm *DiskManager) CloseFile(fileID uint32) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return nil // Already closed
	}

	if err := fd.File.Sync(); err != nil {
		return errors.Wrap(err, "failed to sync before close")
	}
	if err := fd.File.Close(); err != nil {
		return errors.Wrap(err, "failed to close file")
	}

	fd.File = nil
	delete(dm.files, fileID)
	return nil
}

// CloseAll closes all open files
func (dm *DiskManager) CloseAll() error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	var lastErr error
	for fileID, fd := range dm.files {
		fd.mu.Lock()
		if fd.File != nil {
			if err := fd.File.Sync(); err != nil {
				lastErr = err
			}
			if err := fd.File.Close(); err != nil {
				lastErr = err
			}
			fd.File = nil
		}
		fd.mu.Unlock()
		delete(dm.files, fileID)
	}

	return lastErr
}

// GetFileDescriptor returns the file descriptor for a given file ID
func (dm *DiskManager) GetFileDescriptor(fileID uint32) (*FileDescriptor, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	fd, exists := dm.files[fileID]
	if !exists {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}
	return fd, nil
}

// FilePages returns how many pages have been allocated in a file, metadata page included.
func (dm *DiskManager) FilePages(fileID uint32) (int64, error) {
	fd, err := dm.GetFileDescriptor(fileID)
	if err != nil {
		return 0, err
	}
	fd.mu.RLock()
	defer fd.mu.RUnlock()
	return fd.NextPageID, nil
}

// TotalPages returns the total number of pages across all files
func (dm *DiskManager) TotalPages() int64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	total := int64(0)
	for _, fd := range dm.files {
		total += fd.NextPageID
	}
	return total
}

// WriteMetadata writes directly to page 0 of a file, bypassing the buffer pool.
// Metadata pages are always at a fixed location and don't benefit from caching.
func (dm *DiskManager) WriteMetadata(fileID uint32, metadata []byte) error {
	metaPage, err := encodeMetadata(metadata)
	if err != nil {
		return err
	}

	dm.mu.RLock()
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()

	if !exists {
		return errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.Lock()
	defer fd.mu.Unlock()

	if fd.File == nil {
		return errors.Wrapf(ErrFileNotFound, "file %d is closed", fileID)
	}

	if _, err := fd.File.WriteAt(metaPage, 0); err != nil {
		return errors.Wrap(err, "failed to write metadata")
	}
	if fd.NextPageID == 0 {
		fd.NextPageID = 1
	}
	return nil
}

// ReadMetadata reads metadata from page 0 of a file
func (dm *DiskManager) ReadMetadata(fileID uint32) ([]byte, error) {
	dm.mu.RLock()
	fd, exists := dm.files[fileID]
	dm.mu.RUnlock()

	if !exists {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d", fileID)
	}

	fd.mu.RLock()
	defer fd.mu.RUnlock()

	if fd.File == nil {
		return nil, errors.Wrapf(ErrFileNotFound, "file %d is closed", fileID)
	}

	metaPage := make([]byte, page.PageSize)
	if _, err := fd.File.ReadAt(metaPage, 0); err != nil {
		return nil, errors.Wrap(err, "failed to read metadata")
	}
	return decodeMetadata(metaPage)
}

// Metadata page layout: checksum (8B) | type (1B) | length uint32 | payload
const metadataHeader = page.PageTypeOffset + 1 + 4

func encodeMetadata(metadata []byte) ([]byte, error) {
	if len(metadata) > page.PageSize-metadataHeader {
		return nil, errors.Newf("metadata too large (%d bytes)", len(metadata))
	}
	metaPage := make([]byte, page.PageSize)
	binary.LittleEndian.PutUint32(metaPage[page.PageTypeOffset+1:], uint32(len(metadata)))
	copy(metaPage[metadataHeader:], metadata)
	page.Seal(metaPage, types.PageTypeMetadata)
	return metaPage, nil
}

func decodeMetadata(metaPage []byte) ([]byte, error) {
	if !page.Verify(metaPage) {
		return nil, errors.Wrap(ErrChecksumMismatch, "metadata page")
	}
	if types.PageType(metaPage[page.PageTypeOffset]) != types.PageTypeMetadata {
		return nil, errors.Newf("page 0 is not a metadata page (type %d)", metaPage[page.PageTypeOffset])
	}
	n := binary.LittleEndian.Uint32(metaPage[page.PageTypeOffset+1:])
	if int(n) > len(metaPage)-metadataHeader {
		return nil, errors.Newf("invalid metadata size %d", n)
	}
	out := make([]byte, n)
	copy(out, metaPage[metadataHeader:])
	return out, nil
}

func fileSize(f *os.File) int64 {
	stat, err := f.Stat()
	if err != nil {
		return 0
	}
	return stat.Size()
}
