package disk

import (
	"sync"
)

var _ Store = &MemStore{}

// MemStore keeps every page in memory. It is mainly useful for tests and for pools whose
// backing data does not need to survive the process.
type MemStore struct {
	pageSize   int
	nextPageId uint64
	pages      map[uint64][]byte
	lock       sync.Mutex
}

func NewMemStore(pageSize int) *MemStore {
	if pageSize <= 0 {
		panic("page size must be positive")
	}

	return &MemStore{
		pageSize: pageSize,
		pages:    map[uint64][]byte{},
		lock:     sync.Mutex{},
	}
}

func (m *MemStore) Allocate() (uint64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	pageId := m.nextPageId
	m.nextPageId++
	m.pages[pageId] = make([]byte, m.pageSize)
	return pageId, nil
}

func (m *MemStore) Deallocate(pageId uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, ok := m.pages[pageId]; !ok {
		return ErrNotFound
	}

	delete(m.pages, pageId)
	return nil
}

func (m *MemStore) WritePage(data []byte, pageId uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if len(data) != m.pageSize {
		return ErrBadSize
	}

	page, ok := m.pages[pageId]
	if !ok {
		return ErrNotFound
	}

	copy(page, data)
	return nil
}

func (m *MemStore) ReadPage(pageId uint64) ([]byte, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	page, ok := m.pages[pageId]
	if !ok {
		return nil, ErrNotFound
	}

	data := make([]byte, m.pageSize)
	copy(data, page)
	return data, nil
}

func (m *MemStore) Exists(pageId uint64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	_, ok := m.pages[pageId]
	return ok
}

func (m *MemStore) PageSize() int {
	return m.pageSize
}

func (m *MemStore) Close() error {
	return nil
}
