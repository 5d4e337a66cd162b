package terrain

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
)

// CheckInvariants verifies the consistency of the tree and the registry. It
// returns the first violation found.
func (m *Manager) CheckInvariants() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.checkInvariants()
}

func (m *Manager) checkInvariants() error {
	r := &m.registry
	if len(r.descriptors) != len(r.chunks) {
		return violation("registry arrays have different lengths", "descriptors", len(r.descriptors), "chunks", len(r.chunks))
	}
	if len(m.removals) != 0 {
		return violation("registry has pending removals", "removals", len(m.removals))
	}

	for i, d := range r.descriptors {
		c := r.chunks[i]
		switch {
		case d.Index != i:
			return violation("descriptor index does not match its slot", "slot", i, "index", d.Index)

		case c == nil || c.index != i:
			return violation("chunk index does not match its slot", "slot", i)

		case c.removed:
			return violation("removed chunk is still registered", "slot", i)
		}

		if err := checkChunk(c, d); err != nil {
			return err
		}
	}

	reachable := 0
	var err error
	m.walk(func(c *Chunk) bool {
		reachable++
		if c.removed {
			err = violation("removed chunk is reachable from a root", "depth", c.depth)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if reachable != r.len() {
		return violation("registry does not match the tree", "reachable", reachable, "registered", r.len())
	}

	for i, root := range m.roots {
		if root == nil || root.parent != nil || root.removed {
			return violation("invalid root chunk", "face", Faces[i].Name)
		}
	}
	return nil
}

func checkChunk(c *Chunk, d ChunkDescriptor) error {
	children := 0
	leaves := 0
	for _, child := range c.children {
		if child == nil {
			continue
		}
		children++
		if child.parent != c {
			return violation("child does not point to its parent", "index", c.index)
		}
		if child.IsLeaf() {
			leaves++
		}
	}

	if d.IsLeaf {
		switch {
		case children != 0:
			return violation("leaf chunk has children", "index", c.index, "children", children)

		case c.object == nil:
			return violation("leaf chunk has no visual object", "index", c.index)

		case d.CanMergeChildren:
			return violation("leaf chunk can merge children", "index", c.index)
		}
		return nil
	}

	switch {
	case children != 4:
		return violation("non-leaf chunk does not have 4 children", "index", c.index, "children", children)

	case c.object != nil:
		return violation("non-leaf chunk has a visual object", "index", c.index)

	case d.CanMergeChildren != (leaves == 4):
		return violation("cached merge state is stale", "index", c.index, "can_merge_children", d.CanMergeChildren, "leaf_children", leaves)
	}
	return nil
}

func violation(msg string, tags ...any) error {
	err := errors.New(msg).WithType(ErrTypeContractViolated)
	for i := 0; i+1 < len(tags); i += 2 {
		err = err.WithTag(tags[i].(string), tags[i+1])
	}
	return err
}
