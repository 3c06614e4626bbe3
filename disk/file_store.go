package disk

import (
	"encoding/binary"
	"io"
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// FlushInstantly should normally be set to true. If it is false then data might be lost even
// after a successful write when power loss occurs before the os flushes its io buffers. Tests
// run a lot faster with it off and their validity does not depend on it.
const FlushInstantly bool = false

// headerSize is the fixed part of the header page: next page id plus the free list length.
const headerSize = 16

var _ Store = &FileStore{}

// FileStore keeps pages in a single file. The first pageSize bytes are a header carrying the
// allocation state (next page id and the list of deallocated ids awaiting reuse); the page with
// id n starts at offset (n+1)*pageSize.
type FileStore struct {
	file       *os.File
	filename   string
	pageSize   int
	nextPageId uint64
	freeIds    []uint64
	freeSet    map[uint64]struct{}
	mu         sync.Mutex
}

func NewFileStore(filename string, pageSize int) (*FileStore, error) {
	if pageSize < headerSize {
		return nil, errors.Errorf("page size %v cannot hold the store header", pageSize)
	}

	f, err := os.OpenFile(filename, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, errors.Wrap(err, "could not open store file")
	}

	d := &FileStore{
		file:     f,
		filename: filename,
		pageSize: pageSize,
		freeIds:  make([]uint64, 0),
		freeSet:  map[uint64]struct{}{},
	}

	stats, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "could not stat store file")
	}

	filesize := stats.Size()
	log.Printf("store is initializing, file size is %d \n", filesize)

	if filesize == 0 {
		// new store file, write an empty header
		if err := d.writeHeader(); err != nil {
			return nil, err
		}
		return d, nil
	}

	if err := d.readHeader(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *FileStore) Allocate() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var pageId uint64
	if len(d.freeIds) > 0 {
		pageId = d.freeIds[0]
		d.freeIds = d.freeIds[1:]
		delete(d.freeSet, pageId)
	} else {
		pageId = d.nextPageId
		d.nextPageId++
	}

	// a fresh page is all zeroes, persisted
	if err := d.writeAt(make([]byte, d.pageSize), d.pageOffset(pageId)); err != nil {
		return 0, err
	}

	if err := d.writeHeader(); err != nil {
		return 0, err
	}
	return pageId, nil
}

func (d *FileStore) Deallocate(pageId uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.exists(pageId) {
		return ErrNotFound
	}
	if len(d.freeIds)+3 > d.pageSize/8 {
		return errors.Errorf("free list does not fit into the header page, page size: %v", d.pageSize)
	}

	d.freeIds = append(d.freeIds, pageId)
	d.freeSet[pageId] = struct{}{}
	return d.writeHeader()
}

func (d *FileStore) WritePage(data []byte, pageId uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) != d.pageSize {
		return ErrBadSize
	}
	if !d.exists(pageId) {
		return ErrNotFound
	}

	return d.writeAt(data, d.pageOffset(pageId))
}

func (d *FileStore) ReadPage(pageId uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.exists(pageId) {
		return nil, ErrNotFound
	}

	if _, err := d.file.Seek(d.pageOffset(pageId), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "could not seek to page offset")
	}

	data := make([]byte, d.pageSize)
	if _, err := io.ReadFull(d.file, data); err != nil {
		return nil, errors.Wrapf(err, "could not read page, page id: %d", pageId)
	}
	return data, nil
}

func (d *FileStore) Exists(pageId uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exists(pageId)
}

func (d *FileStore) PageSize() int {
	return d.pageSize
}

func (d *FileStore) Close() error {
	return d.file.Close()
}

func (d *FileStore) exists(pageId uint64) bool {
	if pageId >= d.nextPageId {
		return false
	}
	_, freed := d.freeSet[pageId]
	return !freed
}

func (d *FileStore) pageOffset(pageId uint64) int64 {
	return int64(d.pageSize) * (int64(pageId) + 1)
}

func (d *FileStore) writeAt(data []byte, offset int64) error {
	if _, err := d.file.Seek(offset, io.SeekStart); err != nil {
		return errors.Wrap(err, "could not seek to page offset")
	}

	n, err := d.file.Write(data)
	if err != nil {
		return errors.Wrap(err, "could not write page")
	}
	if n != len(data) {
		panic("written bytes are not equal to page size")
	}

	if FlushInstantly {
		if err := d.file.Sync(); err != nil {
			panic(err)
		}
	}
	return nil
}

func (d *FileStore) writeHeader() error {
	page := make([]byte, d.pageSize)
	binary.BigEndian.PutUint64(page, d.nextPageId)
	binary.BigEndian.PutUint64(page[8:], uint64(len(d.freeIds)))
	for i, id := range d.freeIds {
		binary.BigEndian.PutUint64(page[headerSize+i*8:], id)
	}
	return d.writeAt(page, 0)
}

func (d *FileStore) readHeader() error {
	if _, err := d.file.Seek(0, io.SeekStart); err != nil {
		return errors.Wrap(err, "could not seek to store header")
	}

	page := make([]byte, d.pageSize)
	if _, err := io.ReadFull(d.file, page); err != nil {
		return errors.Wrap(err, "could not read store header")
	}

	d.nextPageId = binary.BigEndian.Uint64(page)
	count := binary.BigEndian.Uint64(page[8:])
	d.freeIds = make([]uint64, 0, count)
	d.freeSet = map[uint64]struct{}{}
	for i := uint64(0); i < count; i++ {
		id := binary.BigEndian.Uint64(page[headerSize+i*8:])
		d.freeIds = append(d.freeIds, id)
		d.freeSet[id] = struct{}{}
	}
	return nil
}
