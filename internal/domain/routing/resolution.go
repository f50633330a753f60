package routing

// Resolution is the answer to "what serves this path". Live is the route whose entity is
// rendered; it equals Route unless Route is a history entry, in which case Redirect is set.
type Resolution struct {
	Route    *Route `json:"route"`
	Live     *Route `json:"live"`
	Redirect bool   `json:"redirect"`
}
