package ecs

// ComponentId identifies a component for the lifetime of its scene. Zero is never assigned.
type ComponentId uint64

// NoComponent is the zero ComponentId.
const NoComponent ComponentId = 0

// Component is a per-entity unit of behavior and state.
//
// Initialize is called exactly once, before the first Update, and must call MarkInitialized.
// Update is called once per frame while the component is enabled. Updates of different
// components run concurrently: a component may freely mutate itself, but reaches siblings and
// the scene only through the read-only frame.Siblings view and the actions it queues.
// Render is called for each enabled component whose entity is enabled and draws with the
// material currently being rendered.
//
// Every component embeds Base, which supplies the identity accessors.
type Component interface {
	Id() ComponentId
	Entity() EntityId
	Enabled() bool
	Initialized() bool
	RenderOrder() int
	MarkInitialized()

	Initialize(ctx *InitContext)
	Update(frame *UpdateFrame)
	Render(ctx *RenderContext)

	base() *Base
}

// Snapshotter is implemented by components that publish state to their siblings. Snapshot is
// called on the frame goroutine before the update fan-out; the returned value must not be
// mutated afterwards.
type Snapshotter interface {
	Snapshot() any
}

// Base holds the identity and lifecycle flags shared by every component.
// The zero value is an enabled component with rendering order 0.
type Base struct {
	id          ComponentId
	entity      EntityId
	disabled    bool
	initialized bool
	order       int
}

// NewBase returns a Base with the given rendering order and initial enabled state.
func NewBase(order int, enabled bool) Base {
	return Base{order: order, disabled: !enabled}
}

func (b *Base) Id() ComponentId   { return b.id }
func (b *Base) Entity() EntityId  { return b.entity }
func (b *Base) Enabled() bool     { return !b.disabled }
func (b *Base) Initialized() bool { return b.initialized }
func (b *Base) RenderOrder() int  { return b.order }
func (b *Base) MarkInitialized()  { b.initialized = true }
func (b *Base) base() *Base       { return b }

// Render is a no-op; components that draw override it.
func (b *Base) Render(*RenderContext) {}

func (b *Base) setEnabled(on bool) { b.disabled = !on }

// InitContext is handed to Component.Initialize.
type InitContext struct {
	Scene   SceneIndex
	Device  Device
	Actions *ActionQueue
}
