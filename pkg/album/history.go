package album

import (
	"sync"

	"github.com/samber/lo"

	"kmsctl/pkg/drm"
)

// Entry records which source a framebuffer was uploaded from.
type Entry struct {
	Framebuffer drm.FramebufferHandle
	Source      string
	Width       int
	Height      int
	Format      drm.PixelFormat
}

func NewHistory() *History {
	return &History{}
}

// History is the ordered set of uploaded framebuffers.
type History struct {
	l     sync.RWMutex
	items []Entry
}

// Add records e, replacing any earlier entry for the same framebuffer.
func (h *History) Add(e Entry) {
	h.l.Lock()
	defer h.l.Unlock()

	h.items = append(lo.Filter(h.items, func(it Entry, _ int) bool {
		return it.Framebuffer != e.Framebuffer
	}), e)
}

func (h *History) Remove(fb drm.FramebufferHandle) bool {
	h.l.Lock()
	defer h.l.Unlock()

	n := len(h.items)
	h.items = lo.Filter(h.items, func(it Entry, _ int) bool {
		return it.Framebuffer != fb
	})
	return len(h.items) != n
}

func (h *History) Lookup(fb drm.FramebufferHandle) (Entry, bool) {
	h.l.RLock()
	defer h.l.RUnlock()

	return lo.Find(h.items, func(it Entry) bool {
		return it.Framebuffer == fb
	})
}

func (h *History) Entries() []Entry {
	h.l.RLock()
	defer h.l.RUnlock()

	return append([]Entry(nil), h.items...)
}

// Curr is the most recent upload.
func (h *History) Curr() (Entry, bool) {
	h.l.RLock()
	defer h.l.RUnlock()

	e, err := lo.Last(h.items)
	return e, err == nil
}
