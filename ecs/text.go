package ecs

import (
	"fmt"
	"image/color"
)

// TextSpec describes a UI text element.
type TextSpec struct {
	Text  string
	X, Y  float64
	Size  float64
	Color color.RGBA
}

// TextBuffer is a shaped text object owned by the text collaborator.
type TextBuffer interface {
	SetText(text string)
	Text() string
}

// TextSystem creates text buffers. It is supplied by the renderer.
type TextSystem interface {
	NewTextBuffer(spec TextSpec) TextBuffer
}

// UIElement is a registered text element and the component that owns it.
type UIElement struct {
	Component ComponentId
	Spec      TextSpec
	Buffer    TextBuffer
}

func (s *Scene) registerText(id ComponentId, spec TextSpec) {
	if s.text == nil {
		panic(fmt.Sprintf("ecs: scene %d has no text system; cannot register text for component %d", s.index, id))
	}
	if !s.byId.Has(id) {
		s.log.Warn("ecs: text registration for unknown component", "component", id)
		return
	}
	if existing, ok := s.ui.Get(id); ok {
		existing.Spec = spec
		existing.Buffer.SetText(spec.Text)
		return
	}
	el := &UIElement{
		Component: id,
		Spec:      spec,
		Buffer:    s.text.NewTextBuffer(spec),
	}
	s.ui.Put(id, el)
	s.uiOrder = append(s.uiOrder, id)
}

// UIElement returns the text element registered by a component.
func (s *Scene) UIElement(id ComponentId) (*UIElement, bool) {
	return s.ui.Get(id)
}

// EnabledUIComponents returns the text elements whose component and entity are both enabled,
// in registration order.
func (s *Scene) EnabledUIComponents() []*UIElement {
	out := make([]*UIElement, 0, len(s.uiOrder))
	for _, id := range s.uiOrder {
		c, ok := s.byId.Get(id)
		if !ok || !c.Enabled() {
			continue
		}
		if e, ok := s.entities.get(c.Entity()); !ok || !e.Enabled {
			continue
		}
		el, _ := s.ui.Get(id)
		out = append(out, el)
	}
	return out
}
