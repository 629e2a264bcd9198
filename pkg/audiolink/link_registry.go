package audiolink

import (
	"fmt"

	"github.com/thoas/go-funk"
)

// LinkRegistry is the ordered record of links this process created and has not
// removed yet. It never tracks links created by anyone else.
// It does no locking of its own; LinkManager serializes access.
type LinkRegistry struct {
	links []Link
}

func newLinkRegistry() *LinkRegistry {
	return &LinkRegistry{links: []Link{}}
}

// Add appends the link unless the exact pair is already recorded
func (r *LinkRegistry) Add(link Link) bool {
	if r.Contains(link) {
		return false
	}

	r.links = append(r.links, link)

	return true
}

// Erase removes the link if present, preserving the order of the others
func (r *LinkRegistry) Erase(link Link) bool {
	idx := funk.IndexOf(r.links, link)
	if idx < 0 {
		return false
	}

	r.links = append(r.links[:idx], r.links[idx+1:]...)

	return true
}

func (r *LinkRegistry) Contains(link Link) bool {
	return funk.Contains(r.links, link)
}

// Links returns a copy in insertion order
func (r *LinkRegistry) Links() []Link {
	out := make([]Link, len(r.links))
	copy(out, r.links)

	return out
}

func (r *LinkRegistry) Len() int {
	return len(r.links)
}

func (r *LinkRegistry) Clear() {
	r.links = []Link{}
}

func (r *LinkRegistry) String() string {
	return fmt.Sprintf("<%d managed links>", len(r.links))
}
