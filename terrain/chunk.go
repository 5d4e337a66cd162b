package terrain

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/jord/models"
)

// Chunk is a quadtree node covering one patch of a cube face. A chunk is
// either a leaf holding a visual object or has exactly 4 children.
type Chunk struct {
	manager  *Manager
	index    int
	parent   *Chunk
	children [4]*Chunk
	object   *models.VisualObject
	face     int
	depth    int
	dirty    bool
	removed  bool
}

// Index returns the registry slot of the chunk, or -1 once the chunk has been
// removed.
func (c *Chunk) Index() int {
	return c.index
}

// Descriptor returns a copy of the chunk descriptor.
func (c *Chunk) Descriptor() ChunkDescriptor {
	if c.removed {
		return ChunkDescriptor{Index: -1}
	}
	return *c.manager.registry.descriptor(c.index)
}

func (c *Chunk) descriptor() *ChunkDescriptor {
	return c.manager.registry.descriptor(c.index)
}

// Parent returns the parent chunk. It is nil for roots.
func (c *Chunk) Parent() *Chunk {
	return c.parent
}

// Children returns the children of the chunk. They are all nil when the chunk
// is a leaf.
func (c *Chunk) Children() [4]*Chunk {
	return c.children
}

// Object returns the visual object of the chunk. It is nil when the chunk is
// not a leaf.
func (c *Chunk) Object() *models.VisualObject {
	return c.object
}

// Face returns the index in Faces of the cube face the chunk belongs to.
func (c *Chunk) Face() int {
	return c.face
}

func (c *Chunk) Depth() int {
	return c.depth
}

func (c *Chunk) IsLeaf() bool {
	return !c.removed && c.descriptor().IsLeaf
}

func (c *Chunk) Removed() bool {
	return c.removed
}

// CanMerge reports whether Merge can be called on the chunk.
func (c *Chunk) CanMerge() bool {
	if c.removed {
		return false
	}
	d := c.descriptor()
	return !d.IsLeaf && d.CanMergeChildren
}

// Split subdivides a leaf into 4 leaves. Calling Split on a chunk that is not
// a leaf panics.
//
// Visual objects for the children are acquired before anything is mutated: an
// error means that the chunk is left untouched.
func (c *Chunk) Split() error {
	if !c.IsLeaf() {
		panic(contractViolation("split called on a non-leaf chunk", c))
	}

	var objects [4]*models.VisualObject
	for i := range objects {
		obj, err := c.manager.pool.Acquire(c.manager.body.Transform)
		if err != nil {
			for _, o := range objects[:i] {
				c.manager.pool.Release(o)
			}
			return errors.New("acquiring child visual object failed").
				WithType(ErrTypePoolExhausted).
				WithTag("index", c.index).
				WithTag("depth", c.depth).
				Wrap(err)
		}
		objects[i] = obj
	}

	for i, d := range c.descriptor().Children() {
		child := &Chunk{
			manager: c.manager,
			parent:  c,
			object:  objects[i],
			face:    c.face,
			depth:   c.depth + 1,
		}
		c.manager.registry.add(child, d)
		c.children[i] = child
		c.manager.markDirty(child)
	}

	c.manager.pool.Release(c.object)
	c.object = nil

	d := c.descriptor()
	d.IsLeaf = false
	d.CanMergeChildren = true

	if c.parent != nil {
		c.parent.descriptor().CanMergeChildren = false
	}
	return nil
}

// Merge collapses the 4 leaf children of the chunk back into it. Calling Merge
// on a chunk whose CanMerge returns false panics.
//
// The children are queued for removal and leave the registry on the next
// compaction.
func (c *Chunk) Merge() {
	if !c.CanMerge() {
		panic(contractViolation("merge called on a chunk whose children cannot be merged", c))
	}
	for _, child := range c.children {
		if child == nil || !child.IsLeaf() {
			panic(contractViolation("merge called on a chunk with non-leaf children", c))
		}
	}

	for i, child := range c.children {
		c.manager.pool.Release(child.object)
		child.object = nil
		child.parent = nil
		c.manager.queueRemoval(child)
		c.children[i] = nil
	}

	// The children objects were just released so acquiring only fails when the
	// pool is used outside of the manager.
	obj, err := c.manager.pool.Acquire(c.manager.body.Transform)
	if err != nil {
		panic(errors.New("acquiring merged chunk visual object failed").
			WithType(ErrTypeContractViolated).
			WithTag("index", c.index).
			Wrap(err))
	}
	c.object = obj

	d := c.descriptor()
	d.IsLeaf = true
	d.CanMergeChildren = false
	c.manager.markDirty(c)

	if c.parent != nil {
		c.parent.updateCanMergeChildren()
	}
}

func (c *Chunk) updateCanMergeChildren() {
	canMerge := true
	for _, child := range c.children {
		if child == nil || !child.IsLeaf() {
			canMerge = false
			break
		}
	}
	c.descriptor().CanMergeChildren = canMerge
}

// moved is called by the registry when the chunk descriptor changes slot.
func (c *Chunk) moved(index int) {
	c.index = index
}

func contractViolation(msg string, c *Chunk) error {
	return errors.New(msg).
		WithType(ErrTypeContractViolated).
		WithTag("index", c.index).
		WithTag("depth", c.depth)
}
