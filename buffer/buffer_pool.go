package buffer

import (
	"errors"
	"fmt"
	"sync"

	"verdin/common"
	"verdin/disk"
)

var (
	ErrBadConfig       = errors.New("pool size and page size must be positive")
	ErrPageNotFound    = errors.New("page does not exist in the store")
	ErrPagePinned      = errors.New("page is pinned")
	ErrPageNotResident = errors.New("page cannot be found in the page map")
)

type Pool interface {
	// FetchPage returns the frame holding the page, pinned. Its content equals the store's
	// current content for that page.
	FetchPage(pageId uint64) (*PageFrame, error)

	// NewPage allocates a fresh zeroed page in the store and returns it pinned in the pool.
	// The page id is valid even when no frame could be secured and err is ErrNoVictim.
	NewPage() (pageId uint64, frame *PageFrame, err error)

	// Unpin releases one pin on the page. A true isDirty is sticky: later clean unpins do
	// not take it back.
	Unpin(pageId uint64, isDirty bool) bool

	// DeletePage removes the page from both the pool and the store.
	DeletePage(pageId uint64) error

	// FlushPage syncs the page's content to the store if it is dirty.
	FlushPage(pageId uint64) error

	// FlushAll flushes every resident page. Pin counts are not changed.
	FlushAll() error

	// EmptyFrameSize returns the number of frames which do not hold data of any physical page.
	EmptyFrameSize() int
}

var _ Pool = &BufferPool{}

type BufferPool struct {
	poolSize    int
	pageSize    int
	frames      []*PageFrame
	pageMap     map[uint64]int // physical page_id => frame index which keeps that page
	emptyFrames []int          // list of indexes that point to empty frames in the pool
	Replacer    IReplacer
	Store       disk.Store
	stats       *common.Stats

	// lock covers the frame array, the page map, the empty frame list and the replacer. It is
	// held across store calls; head-of-line blocking is accepted for a simple correctness
	// argument.
	lock sync.Mutex
}

func NewBufferPool(poolSize, pageSize int, store disk.Store) (*BufferPool, error) {
	return NewBufferPoolWithReplacer(poolSize, pageSize, store, NewLruReplacer())
}

func NewBufferPoolWithReplacer(poolSize, pageSize int, store disk.Store, replacer IReplacer) (*BufferPool, error) {
	if poolSize <= 0 || pageSize <= 0 {
		return nil, ErrBadConfig
	}

	emptyFrames := make([]int, poolSize)
	frames := make([]*PageFrame, poolSize)
	for i := 0; i < poolSize; i++ {
		emptyFrames[i] = i
		frames[i] = newPageFrame(pageSize)
	}

	return &BufferPool{
		poolSize:    poolSize,
		pageSize:    pageSize,
		frames:      frames,
		pageMap:     map[uint64]int{},
		emptyFrames: emptyFrames,
		Replacer:    replacer,
		Store:       store,
		stats:       common.NewStats(),
		lock:        sync.Mutex{},
	}, nil
}

func (b *BufferPool) FetchPage(pageId uint64) (*PageFrame, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if frameIdx, ok := b.pageMap[pageId]; ok {
		frame := b.frames[frameIdx]
		frame.pinCount++
		b.Replacer.Remove(frameIdx)
		b.stats.Inc("hit")
		return frame, nil
	}
	b.stats.Inc("miss")

	// validate existence first so that a request for a missing page cannot cost an eviction
	if !b.Store.Exists(pageId) {
		return nil, ErrPageNotFound
	}

	frameIdx, err := b.findVictim()
	if err != nil {
		return nil, err
	}

	frame := b.frames[frameIdx]
	if err := b.evictFrame(frameIdx); err != nil {
		// frame still holds its old page untouched, put it back on the replacer
		b.Replacer.Touch(frameIdx)
		return nil, err
	}

	data, err := b.Store.ReadPage(pageId)
	if err != nil {
		frame.clear()
		b.emptyFrames = append(b.emptyFrames, frameIdx)
		return nil, fmt.Errorf("ReadPage failed: %w", err)
	}

	copy(frame.data, data)
	frame.pageId = pageId
	frame.pinCount = 1
	frame.dirty = false
	b.pageMap[pageId] = frameIdx
	return frame, nil
}

func (b *BufferPool) NewPage() (uint64, *PageFrame, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	newPageId, err := b.Store.Allocate()
	if err != nil {
		return InvalidPageID, nil, err
	}

	frameIdx, err := b.findVictim()
	if err != nil {
		// the page stays allocated in the store and can be fetched once a pin is released
		return newPageId, nil, err
	}

	frame := b.frames[frameIdx]
	if err := b.evictFrame(frameIdx); err != nil {
		b.Replacer.Touch(frameIdx)
		return newPageId, nil, err
	}

	frame.clear()
	frame.pageId = newPageId
	frame.pinCount = 1
	b.pageMap[newPageId] = frameIdx
	return newPageId, frame, nil
}

func (b *BufferPool) Unpin(pageId uint64, isDirty bool) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameIdx, ok := b.pageMap[pageId]
	if !ok {
		return false
	}

	frame := b.frames[frameIdx]
	if frame.pinCount <= 0 {
		return false
	}

	if isDirty {
		frame.dirty = true
	}

	frame.pinCount--
	if frame.pinCount == 0 {
		b.Replacer.Touch(frameIdx)
	}
	return true
}

func (b *BufferPool) DeletePage(pageId uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if frameIdx, ok := b.pageMap[pageId]; ok {
		frame := b.frames[frameIdx]
		if frame.pinCount != 0 {
			return ErrPagePinned
		}

		delete(b.pageMap, pageId)
		b.Replacer.Remove(frameIdx)
		frame.clear()
		b.emptyFrames = append(b.emptyFrames, frameIdx)
	}

	if b.Store.Exists(pageId) {
		if err := b.Store.Deallocate(pageId); err != nil {
			return err
		}
	}
	return nil
}

func (b *BufferPool) FlushPage(pageId uint64) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameIdx, ok := b.pageMap[pageId]
	if !ok {
		return ErrPageNotResident
	}

	return b.flushFrame(frameIdx)
}

func (b *BufferPool) FlushAll() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, frameIdx := range b.pageMap {
		if err := b.flushFrame(frameIdx); err != nil {
			return err
		}
	}
	return nil
}

func (b *BufferPool) EmptyFrameSize() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.emptyFrames)
}

// Stats returns the pool's hit, miss, eviction and flush counters.
func (b *BufferPool) Stats() *common.Stats {
	return b.stats
}

// findVictim returns the index of a frame that can host a new page, preferring empty frames
// over evicting a resident one. The frame is detached from the empty frame list or the
// replacer but its content is untouched.
func (b *BufferPool) findVictim() (int, error) {
	if len(b.emptyFrames) > 0 {
		frameIdx := b.emptyFrames[0]
		b.emptyFrames = b.emptyFrames[1:]
		return frameIdx, nil
	}

	frameIdx, err := b.Replacer.ChooseVictim()
	if err != nil {
		return 0, err
	}

	if pc := b.frames[frameIdx].pinCount; pc != 0 {
		return 0, fmt.Errorf("a frame is chosen as victim while its pin count is not zero. pin count: %v, page_id: %v", pc, b.frames[frameIdx].pageId)
	}
	return frameIdx, nil
}

// evictFrame writes the frame's page back to the store if it is dirty and unbinds it from the
// page map. On a store error the frame is left exactly as it was, still dirty and still
// holding its page.
func (b *BufferPool) evictFrame(frameIdx int) error {
	frame := b.frames[frameIdx]
	if frame.pageId == InvalidPageID {
		return nil
	}

	if frame.dirty {
		if err := b.Store.WritePage(frame.data, frame.pageId); err != nil {
			return err
		}
		frame.dirty = false
	}

	delete(b.pageMap, frame.pageId)
	b.stats.Inc("eviction")
	return nil
}

// flushFrame syncs the frame to the store iff it is dirty and clears the dirty bit.
func (b *BufferPool) flushFrame(frameIdx int) error {
	frame := b.frames[frameIdx]
	if !frame.dirty {
		return nil
	}

	if err := b.Store.WritePage(frame.data, frame.pageId); err != nil {
		return err
	}

	frame.dirty = false
	b.stats.Inc("flush")
	return nil
}
