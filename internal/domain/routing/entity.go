package routing

// Routable is a caller-owned entity that can be bound to exactly one current route per locale.
type Routable interface {
	RouteEntityClass() string
	RouteEntityID() string
	RouteLocale() string
	CurrentRoute() *Route
	SetRoute(route *Route)
}

// AttributeSource exposes the values a path schema placeholder may reference.
type AttributeSource interface {
	RouteAttributes() map[string]string
}

// EntityRef is a plain Routable used where the caller has no richer entity type.
type EntityRef struct {
	Class      string
	ID         string
	Locale     string
	Route      *Route
	Attributes map[string]string
}

func (e *EntityRef) RouteEntityClass() string { return e.Class }
func (e *EntityRef) RouteEntityID() string    { return e.ID }
func (e *EntityRef) RouteLocale() string      { return e.Locale }
func (e *EntityRef) CurrentRoute() *Route     { return e.Route }
func (e *EntityRef) SetRoute(route *Route)    { e.Route = route }

func (e *EntityRef) RouteAttributes() map[string]string { return e.Attributes }
