package buffer

// InvalidPageID marks a frame that holds no page. It is never handed out by a store.
const InvalidPageID uint64 = ^uint64(0)

// PageFrame is one slot of the pool. The pool owns the data buffer for the whole lifetime of
// the frame; clients get a borrow of it that stays valid only while they hold a pin. Clients
// pinning the same page must coordinate their writes among themselves.
type PageFrame struct {
	pageId   uint64
	pinCount int
	dirty    bool
	data     []byte
}

func newPageFrame(pageSize int) *PageFrame {
	return &PageFrame{
		pageId: InvalidPageID,
		data:   make([]byte, pageSize),
	}
}

// Data returns the frame's page buffer. Writes to it are picked up by the next write-back as
// long as the page is unpinned with isDirty set.
func (p *PageFrame) Data() []byte {
	return p.data
}

// PageID returns the id of the page the frame currently holds.
func (p *PageFrame) PageID() uint64 {
	return p.pageId
}

// clear resets the frame to its empty state.
func (p *PageFrame) clear() {
	p.pageId = InvalidPageID
	p.pinCount = 0
	p.dirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}
