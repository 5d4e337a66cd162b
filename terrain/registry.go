package terrain

// registry keeps the descriptors of every live chunk densely packed, next to
// the chunks owning them. descriptors[i].Index == i and chunks[i].index == i
// hold for every slot outside of remove.
type registry struct {
	descriptors []ChunkDescriptor
	chunks      []*Chunk
}

func (r *registry) len() int {
	return len(r.descriptors)
}

func (r *registry) add(c *Chunk, d ChunkDescriptor) {
	d.Index = len(r.descriptors)
	c.index = d.Index
	r.descriptors = append(r.descriptors, d)
	r.chunks = append(r.chunks, c)
}

// remove frees the slot of the given chunk by moving the last slot into it.
func (r *registry) remove(c *Chunk) {
	i := c.index
	last := len(r.descriptors) - 1

	if i != last {
		moved := r.chunks[last]
		r.descriptors[i] = r.descriptors[last]
		r.descriptors[i].Index = i
		r.chunks[i] = moved
		moved.moved(i)
	}

	r.descriptors[last] = ChunkDescriptor{}
	r.chunks[last] = nil
	r.descriptors = r.descriptors[:last]
	r.chunks = r.chunks[:last]
	c.index = -1
}

func (r *registry) descriptor(i int) *ChunkDescriptor {
	return &r.descriptors[i]
}

// snapshot returns a copy of the descriptors that collaborators may keep.
func (r *registry) snapshot() []ChunkDescriptor {
	s := make([]ChunkDescriptor, len(r.descriptors))
	copy(s, r.descriptors)
	return s
}
