package routing

import (
	domain "github.com/yungbote/route-registry/internal/domain/routing"
)

// HistoryManager rewires the route graph when a live route is superseded.
type HistoryManager struct{}

func NewHistoryManager() *HistoryManager { return &HistoryManager{} }

// Supersede turns old into a history of next and moves every history of old onto next.
// old.Histories must hold the routes currently targeting old. A history whose path equals
// next.Path is restored to live and left out of next.Histories; if it is next itself, next
// is the object restored.
//
// The returned slice holds every route that must be written, next first, without duplicates.
func (m *HistoryManager) Supersede(old, next *domain.Route) []*domain.Route {
	changed := []*domain.Route{next, old}

	previous := old.Histories
	old.Histories = nil
	old.MarkHistory(next)
	next.AddHistory(old)

	for _, h := range previous {
		if h == nil || h.ID == old.ID {
			continue
		}
		if h.Path == next.Path {
			if h.ID == next.ID {
				next.Restore()
				continue
			}
			h.Restore()
			changed = append(changed, h)
			continue
		}
		h.MarkHistory(next)
		next.AddHistory(h)
		changed = append(changed, h)
	}
	// next may be a history route of the same entity that old never owned; it cannot stay a
	// redirect once it is the live target.
	if next.IsHistory {
		next.Restore()
	}
	return changed
}
