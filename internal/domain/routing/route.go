package routing

import (
	"time"

	"github.com/google/uuid"
)

type Route struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Path        string     `gorm:"not null;column:path;index:idx_route_path_locale,priority:1" json:"path"`
	Locale      string     `gorm:"not null;column:locale;index:idx_route_path_locale,priority:2;index:idx_route_entity,priority:3" json:"locale"`
	EntityClass string     `gorm:"not null;column:entity_class;index:idx_route_entity,priority:1" json:"entity_class"`
	EntityID    string     `gorm:"not null;column:entity_id;index:idx_route_entity,priority:2" json:"entity_id"`
	IsHistory   bool       `gorm:"not null;default:false;column:is_history" json:"is_history"`
	TargetID    *uuid.UUID `gorm:"type:uuid;column:target_id;index" json:"target_id,omitempty"`

	Histories []*Route `gorm:"-" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Route) TableName() string { return "route" }

// SameEntity reports whether both routes were generated for the same logical entity.
func (r *Route) SameEntity(other *Route) bool {
	if r == nil || other == nil {
		return false
	}
	return r.EntityClass == other.EntityClass && r.EntityID == other.EntityID
}

// MarkHistory turns r into a redirect to target.
func (r *Route) MarkHistory(target *Route) {
	id := target.ID
	r.IsHistory = true
	r.TargetID = &id
}

// Restore makes a history route live again.
func (r *Route) Restore() {
	r.IsHistory = false
	r.TargetID = nil
}

// AddHistory appends h to the reverse relation unless it is already present.
func (r *Route) AddHistory(h *Route) {
	for _, existing := range r.Histories {
		if existing.ID == h.ID {
			return
		}
	}
	r.Histories = append(r.Histories, h)
}

// Clone copies the record fields. Histories are shallow-copied.
func (r *Route) Clone() *Route {
	if r == nil {
		return nil
	}
	cp := *r
	if r.TargetID != nil {
		id := *r.TargetID
		cp.TargetID = &id
	}
	if r.Histories != nil {
		cp.Histories = append([]*Route(nil), r.Histories...)
	}
	return &cp
}
