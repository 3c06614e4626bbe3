package buffer

import (
	"container/list"
	"sync"
)

var _ IReplacer = &LruReplacer{}

// LruReplacer orders evictable frames by recency. Most recently touched frames sit at the
// front of the list and victims are popped from the back, so all operations are O(1).
type LruReplacer struct {
	order *list.List
	index map[int]*list.Element
	lock  sync.Mutex // NOTE: is this needed? access to the pool is already synchronized right now.
}

func NewLruReplacer() *LruReplacer {
	return &LruReplacer{
		order: list.New(),
		index: make(map[int]*list.Element),
		lock:  sync.Mutex{},
	}
}

func (l *LruReplacer) Touch(frameId int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	if e, ok := l.index[frameId]; ok {
		l.order.MoveToFront(e)
		return
	}

	l.index[frameId] = l.order.PushFront(frameId)
}

func (l *LruReplacer) Remove(frameId int) {
	l.lock.Lock()
	defer l.lock.Unlock()

	e, ok := l.index[frameId]
	if !ok {
		return
	}

	l.order.Remove(e)
	delete(l.index, frameId)
}

func (l *LruReplacer) ChooseVictim() (int, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	e := l.order.Back()
	if e == nil {
		return 0, ErrNoVictim
	}

	frameId := l.order.Remove(e).(int)
	delete(l.index, frameId)
	return frameId, nil
}

func (l *LruReplacer) Size() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.index)
}
