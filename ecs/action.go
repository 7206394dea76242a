package ecs

// Action is a deferred, one-shot scene mutation. Components queue actions during Initialize
// and Update; the scene applies them after the frame's update barrier, in queue order.
type Action interface {
	apply(s *Scene)
}

// ActionQueue buffers actions for later replay against a scene.
type ActionQueue struct {
	actions []Action
}

// NewActionQueue returns an empty queue.
func NewActionQueue() *ActionQueue {
	return &ActionQueue{}
}

// Push appends actions to the queue.
func (q *ActionQueue) Push(actions ...Action) {
	q.actions = append(q.actions, actions...)
}

// Len returns the number of queued actions.
func (q *ActionQueue) Len() int {
	return len(q.actions)
}

// Actions returns the queued actions in append order.
func (q *ActionQueue) Actions() []Action {
	return q.actions
}

// Reset empties the queue, keeping its capacity.
func (q *ActionQueue) Reset() {
	clear(q.actions)
	q.actions = q.actions[:0]
}

// Append moves every action of other to the end of q and resets other.
func (q *ActionQueue) Append(other *ActionQueue) {
	q.actions = append(q.actions, other.actions...)
	other.Reset()
}

// SetEntityEnabled queues an absolute entity enable-state change.
func (q *ActionQueue) SetEntityEnabled(entity EntityId, enabled bool) {
	q.Push(SetEntityEnabled{Entity: entity, Enabled: enabled})
}

// ToggleEntity queues an entity enable-state flip.
func (q *ActionQueue) ToggleEntity(entity EntityId) {
	q.Push(ToggleEntity{Entity: entity})
}

// SetComponentEnabled queues an absolute component enable-state change.
func (q *ActionQueue) SetComponentEnabled(component ComponentId, enabled bool) {
	q.Push(SetComponentEnabled{Component: component, Enabled: enabled})
}

// ToggleComponent queues a component enable-state flip.
func (q *ActionQueue) ToggleComponent(component ComponentId) {
	q.Push(ToggleComponent{Component: component})
}

// RegisterText queues the registration of a UI text element owned by component.
func (q *ActionQueue) RegisterText(component ComponentId, spec TextSpec) {
	q.Push(RegisterText{Component: component, Spec: spec})
}

// UpdateText queues a text change for a registered UI element.
func (q *ActionQueue) UpdateText(component ComponentId, text string) {
	q.Push(UpdateText{Component: component, Text: text})
}

// AttachWorkload queues a workload submission on behalf of component.
func (q *ActionQueue) AttachWorkload(component ComponentId, workload Workload) {
	q.Push(AttachWorkload{Component: component, Workload: workload})
}

// FreeWorkloadOutput queues the release of one of component's workload outputs.
func (q *ActionQueue) FreeWorkloadOutput(component ComponentId, index int) {
	q.Push(FreeWorkloadOutput{Component: component, Index: index})
}

// CreateEntity queues the creation of an entity.
func (q *ActionQueue) CreateEntity(spec EntitySpec) {
	q.Push(CreateEntity{Spec: spec})
}

// SetActiveCamera queues a camera switch.
func (q *ActionQueue) SetActiveCamera(component ComponentId) {
	q.Push(SetActiveCamera{Component: component})
}

// ClearActiveCamera queues the removal of the active camera.
func (q *ActionQueue) ClearActiveCamera() {
	q.Push(ClearActiveCamera{})
}

// SetEntityMaterial queues a change of an entity's active material.
func (q *ActionQueue) SetEntityMaterial(entity EntityId, material MaterialId) {
	q.Push(SetEntityMaterial{Entity: entity, Material: material})
}

// Defer queues an arbitrary function run with exclusive access to the scene.
func (q *ActionQueue) Defer(fn func(s *Scene)) {
	q.Push(Defer{Fn: fn})
}

// SetEntityEnabled sets an entity's enabled flag. Children keep their own flags.
type SetEntityEnabled struct {
	Entity  EntityId
	Enabled bool
}

func (a SetEntityEnabled) apply(s *Scene) {
	e, ok := s.entities.get(a.Entity)
	if !ok {
		s.log.Warn("ecs: set enabled on unknown entity", "entity", a.Entity)
		return
	}
	e.Enabled = a.Enabled
}

// ToggleEntity flips an entity's enabled flag.
type ToggleEntity struct {
	Entity EntityId
}

func (a ToggleEntity) apply(s *Scene) {
	e, ok := s.entities.get(a.Entity)
	if !ok {
		s.log.Warn("ecs: toggle on unknown entity", "entity", a.Entity)
		return
	}
	e.Enabled = !e.Enabled
}

// SetComponentEnabled sets a component's enabled flag.
type SetComponentEnabled struct {
	Component ComponentId
	Enabled   bool
}

func (a SetComponentEnabled) apply(s *Scene) {
	c, ok := s.byId.Get(a.Component)
	if !ok {
		s.log.Warn("ecs: set enabled on unknown component", "component", a.Component)
		return
	}
	c.base().setEnabled(a.Enabled)
}

// ToggleComponent flips a component's enabled flag.
type ToggleComponent struct {
	Component ComponentId
}

func (a ToggleComponent) apply(s *Scene) {
	c, ok := s.byId.Get(a.Component)
	if !ok {
		s.log.Warn("ecs: toggle on unknown component", "component", a.Component)
		return
	}
	c.base().setEnabled(!c.Enabled())
}

// RegisterText adds a UI text element owned by a component.
type RegisterText struct {
	Component ComponentId
	Spec      TextSpec
}

func (a RegisterText) apply(s *Scene) {
	s.registerText(a.Component, a.Spec)
}

// UpdateText replaces the text of a component's registered UI element.
type UpdateText struct {
	Component ComponentId
	Text      string
}

func (a UpdateText) apply(s *Scene) {
	el, ok := s.ui.Get(a.Component)
	if !ok {
		s.log.Warn("ecs: text update for unregistered component", "component", a.Component)
		return
	}
	el.Spec.Text = a.Text
	el.Buffer.SetText(a.Text)
}

// AttachWorkload submits a workload on behalf of a component.
type AttachWorkload struct {
	Component ComponentId
	Workload  Workload
}

func (a AttachWorkload) apply(s *Scene) {
	s.AttachWorkload(a.Component, a.Workload)
}

// FreeWorkloadOutput removes one finished output from a component's list.
type FreeWorkloadOutput struct {
	Component ComponentId
	Index     int
}

func (a FreeWorkloadOutput) apply(s *Scene) {
	s.FreeWorkloadOutput(a.Component, a.Index)
}

// CreateEntity creates an entity from a spec. Its components initialize on the next frame.
type CreateEntity struct {
	Spec EntitySpec
}

func (a CreateEntity) apply(s *Scene) {
	s.CreateEntity(a.Spec)
}

// SetActiveCamera makes a component the scene's camera.
type SetActiveCamera struct {
	Component ComponentId
}

func (a SetActiveCamera) apply(s *Scene) {
	if !s.byId.Has(a.Component) {
		s.log.Warn("ecs: camera component not found", "component", a.Component)
		return
	}
	s.camera = a.Component
}

// ClearActiveCamera leaves the scene without a camera, so vertices are screen pixels.
type ClearActiveCamera struct{}

func (ClearActiveCamera) apply(s *Scene) {
	s.camera = NoComponent
}

// SetEntityMaterial changes the material an entity draws with. NoMaterial stops drawing it.
type SetEntityMaterial struct {
	Entity   EntityId
	Material MaterialId
}

func (a SetEntityMaterial) apply(s *Scene) {
	e, ok := s.entities.get(a.Entity)
	if !ok {
		s.log.Warn("ecs: material change on unknown entity", "entity", a.Entity)
		return
	}
	if a.Material != NoMaterial {
		if _, ok := s.materials.get(a.Material); !ok {
			s.log.Warn("ecs: unknown material", "entity", a.Entity, "material", a.Material)
			return
		}
	}
	e.Material = a.Material
}

// Defer runs a function with exclusive access to the scene.
type Defer struct {
	Fn func(s *Scene)
}

func (a Defer) apply(s *Scene) {
	a.Fn(s)
}
