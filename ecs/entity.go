package ecs

import (
	"fmt"
	"slices"

	"github.com/kamstrup/intmap"
)

// EntityId identifies an entity within one scene. Ids are assigned from 1 upwards.
type EntityId uint32

// NoEntity is the parent id of root entities.
const NoEntity EntityId = 0

// Entity records relationships and render state. Entities never own components; the scene's
// component sequence does, and each component points back at its entity.
type Entity struct {
	Id       EntityId
	Parent   EntityId
	Children []EntityId
	Enabled  bool
	Material MaterialId
}

// HasMaterial reports whether the entity has an active material.
func (e *Entity) HasMaterial() bool {
	return e.Material != NoMaterial
}

// EntitySpec describes an entity to create. The zero value is an enabled root entity with no
// material and no components.
type EntitySpec struct {
	Parent     EntityId
	Material   MaterialId
	Disabled   bool
	Components []Component
}

// NewEntitySpec returns an enabled root entity spec without a material.
func NewEntitySpec(components ...Component) EntitySpec {
	return EntitySpec{Components: components}
}

// WithParent returns a copy of the spec attached to parent.
func (s EntitySpec) WithParent(parent EntityId) EntitySpec {
	s.Parent = parent
	return s
}

// WithMaterial returns a copy of the spec drawing with material.
func (s EntitySpec) WithMaterial(material MaterialId) EntitySpec {
	s.Material = material
	return s
}

// Disable returns a copy of the spec that creates the entity disabled.
func (s EntitySpec) Disable() EntitySpec {
	s.Disabled = true
	return s
}

// entityRegistry maps entity ids to their records and keeps creation order for stable walks.
type entityRegistry struct {
	byId  *intmap.Map[EntityId, *Entity]
	order []EntityId
	next  EntityId
}

func newEntityRegistry() *entityRegistry {
	return &entityRegistry{
		byId: intmap.New[EntityId, *Entity](64),
		next: 1,
	}
}

func (r *entityRegistry) create(spec EntitySpec) *Entity {
	if spec.Parent != NoEntity && !r.byId.Has(spec.Parent) {
		panic(fmt.Sprintf("ecs: parent entity %d does not exist", spec.Parent))
	}

	e := &Entity{
		Id:       r.next,
		Parent:   spec.Parent,
		Enabled:  !spec.Disabled,
		Material: spec.Material,
	}
	r.next++

	r.byId.Put(e.Id, e)
	r.order = append(r.order, e.Id)

	if parent, ok := r.byId.Get(spec.Parent); ok {
		parent.Children = append(parent.Children, e.Id)
	}
	return e
}

func (r *entityRegistry) get(id EntityId) (*Entity, bool) {
	return r.byId.Get(id)
}

func (r *entityRegistry) len() int {
	return len(r.order)
}

// ancestors returns the ids from id's parent up to the root.
func (r *entityRegistry) ancestors(id EntityId) []EntityId {
	var out []EntityId
	e, ok := r.byId.Get(id)
	for ok && e.Parent != NoEntity && !slices.Contains(out, e.Parent) {
		out = append(out, e.Parent)
		e, ok = r.byId.Get(e.Parent)
	}
	return out
}
