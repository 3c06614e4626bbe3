package buffer

/*
	this file couples a pinned frame with the unpin that must follow it, so that the borrow of
	the frame's buffer has an explicit end instead of relying on callers to remember the
	matching Unpin call.
*/

type FrameReleaser struct {
	*PageFrame
	pool *BufferPool
}

// Release gives the pin back. The frame must not be used after this call.
func (r *FrameReleaser) Release(isDirty bool) {
	r.pool.Unpin(r.PageID(), isDirty)
}

func (b *BufferPool) FetchPageWithReleaser(pageId uint64) (*FrameReleaser, error) {
	frame, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}
	return &FrameReleaser{frame, b}, nil
}

func (b *BufferPool) NewPageWithReleaser() (uint64, *FrameReleaser, error) {
	pageId, frame, err := b.NewPage()
	if err != nil {
		return pageId, nil, err
	}
	return pageId, &FrameReleaser{frame, b}, nil
}
