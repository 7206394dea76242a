package ecs

import "iter"

// SiblingInfo is the frame-start snapshot of one component as seen by the others.
type SiblingInfo struct {
	Id          ComponentId
	Entity      EntityId
	Enabled     bool
	Initialized bool
	RenderOrder int
	// State is the value returned by Snapshot for components implementing Snapshotter.
	State any
}

// Siblings is a read-only view over every component of the scene except the one being
// updated. It is backed by a snapshot taken before the update fan-out, so no sibling's
// mid-frame mutation is ever visible through it.
type Siblings struct {
	infos []SiblingInfo
	self  int
}

func newSiblings(infos []SiblingInfo, self int) Siblings {
	return Siblings{infos: infos, self: self}
}

// Len returns the number of siblings.
func (s Siblings) Len() int {
	if s.self < 0 || s.self >= len(s.infos) {
		return len(s.infos)
	}
	return len(s.infos) - 1
}

// At returns the i-th sibling in sequence order, skipping the component being updated.
func (s Siblings) At(i int) SiblingInfo {
	if s.self >= 0 && i >= s.self {
		i++
	}
	return s.infos[i]
}

// All iterates every sibling in sequence order.
func (s Siblings) All() iter.Seq[SiblingInfo] {
	return func(yield func(SiblingInfo) bool) {
		for i, info := range s.infos {
			if i == s.self {
				continue
			}
			if !yield(info) {
				return
			}
		}
	}
}

// Find returns the sibling with the given id.
func (s Siblings) Find(id ComponentId) (SiblingInfo, bool) {
	for info := range s.All() {
		if info.Id == id {
			return info, true
		}
	}
	return SiblingInfo{}, false
}

// ByEntity iterates the siblings owned by entity.
func (s Siblings) ByEntity(entity EntityId) iter.Seq[SiblingInfo] {
	return func(yield func(SiblingInfo) bool) {
		for info := range s.All() {
			if info.Entity == entity && !yield(info) {
				return
			}
		}
	}
}

// SiblingState returns the snapshot state of sibling id when it is a T.
func SiblingState[T any](s Siblings, id ComponentId) (T, bool) {
	var zero T
	info, ok := s.Find(id)
	if !ok {
		return zero, false
	}
	v, ok := info.State.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

// SiblingsOf iterates the siblings whose snapshot state is a T.
func SiblingsOf[T any](s Siblings) iter.Seq2[SiblingInfo, T] {
	return func(yield func(SiblingInfo, T) bool) {
		for info := range s.All() {
			v, ok := info.State.(T)
			if !ok {
				continue
			}
			if !yield(info, v) {
				return
			}
		}
	}
}

func snapshotComponents(components []Component) []SiblingInfo {
	infos := make([]SiblingInfo, len(components))
	for i, c := range components {
		infos[i] = SiblingInfo{
			Id:          c.Id(),
			Entity:      c.Entity(),
			Enabled:     c.Enabled(),
			Initialized: c.Initialized(),
			RenderOrder: c.RenderOrder(),
		}
		if snap, ok := c.(Snapshotter); ok {
			infos[i].State = snap.Snapshot()
		}
	}
	return infos
}
