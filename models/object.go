package models

import (
	"sync"

	"github.com/aukilabs/go-tooling/pkg/errors"
)

// ErrTypePoolExhausted is the error type returned when a pool reached its
// capacity and has no free object left.
const ErrTypePoolExhausted = "pool_exhausted"

// VisualObject is a pooled renderable. Its mesh is overwritten by the terrain
// manager whenever the chunk owning the object is regenerated.
type VisualObject struct {
	ID     uint32
	Parent Transform
	Active bool
	Mesh   Mesh
}

// PoolStats describes the objects owned by a pool.
type PoolStats struct {
	Active  int `json:"active"`
	Free    int `json:"free"`
	Created int `json:"created"`
}

// ObjectPool recycles visual objects. Objects are handed out regardless of
// what they were previously used for.
type ObjectPool struct {
	// The name used to label pool metrics.
	Name string

	// The maximum number of objects the pool creates. Zero means unlimited.
	Capacity int

	mutex  sync.Mutex
	ids    SequentialIDGenerator
	free   []*VisualObject
	active int
}

func NewObjectPool(name string, capacity int) *ObjectPool {
	return &ObjectPool{
		Name:     name,
		Capacity: capacity,
	}
}

// Acquire returns a free object when available or creates a new one. The
// returned object is active, parented to the given transform and carries an
// empty mesh.
func (p *ObjectPool) Acquire(parent Transform) (*VisualObject, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var obj *VisualObject
	if n := len(p.free); n != 0 {
		obj = p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		obj.Mesh.Clear()
	} else {
		if p.Capacity > 0 && int(p.ids.Issued()) >= p.Capacity {
			return nil, errors.New("object pool exhausted").
				WithType(ErrTypePoolExhausted).
				WithTag("pool", p.Name).
				WithTag("capacity", p.Capacity)
		}
		obj = &VisualObject{ID: p.ids.New()}
		instrumentObjectCreated(p.Name)
	}

	obj.Parent = parent
	obj.Active = true
	p.active++
	instrumentPoolGauges(p.Name, p.active, len(p.free))
	return obj, nil
}

// Release deactivates the object and returns it to the pool. Releasing nil or
// an already released object does nothing.
func (p *ObjectPool) Release(obj *VisualObject) {
	if obj == nil {
		return
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !obj.Active {
		return
	}
	obj.Active = false
	obj.Mesh.Clear()
	p.free = append(p.free, obj)
	p.active--
	instrumentPoolGauges(p.Name, p.active, len(p.free))
}

func (p *ObjectPool) Stats() PoolStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return PoolStats{
		Active:  p.active,
		Free:    len(p.free),
		Created: int(p.ids.Issued()),
	}
}
