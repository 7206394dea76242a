package ecs

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"golang.org/x/sync/errgroup"
)

// SceneIndex identifies a scene within an engine.
type SceneIndex uint64

// SceneSequence hands out increasing scene indices. The engine owns one and injects the
// next value into each scene it creates.
type SceneSequence struct {
	last atomic.Uint64
}

// Next returns the next index, starting at 1.
func (q *SceneSequence) Next() SceneIndex {
	return SceneIndex(q.last.Add(1))
}

// SceneOptions configures a Scene.
type SceneOptions struct {
	Name string
	// UpdateWorkers bounds how many component updates run at once. Zero means one per
	// component.
	UpdateWorkers int
	// Workloads receives workload requests. A scene without one panics on AttachWorkload.
	Workloads WorkloadSubmitter
	// Completions delivers finished workloads for this scene.
	Completions <-chan WorkloadResult
	// Text creates UI text buffers. A scene without one panics on RegisterText.
	Text TextSystem
}

// Scene owns one frame-updatable world: entities, components, materials, UI elements,
// workload outputs and the active camera.
type Scene struct {
	index SceneIndex
	name  string
	opts  SceneOptions

	components []Component
	byId       *intmap.Map[ComponentId, Component]
	nextId     ComponentId

	entities  *entityRegistry
	materials *materialBinder

	ui      *intmap.Map[ComponentId, *UIElement]
	uiOrder []ComponentId
	text    TextSystem

	camera ComponentId

	outputs     *WorkloadOutputCollection
	workloads   WorkloadSubmitter
	completions <-chan WorkloadResult

	frame uint64
	stats frameStats
	log   *slog.Logger
}

// NewScene creates an empty scene with the given index. Most callers use Engine.NewScene,
// which allocates the index and wires the workload lane.
func NewScene(index SceneIndex, opts SceneOptions) *Scene {
	return &Scene{
		index:       index,
		name:        opts.Name,
		opts:        opts,
		byId:        intmap.New[ComponentId, Component](64),
		nextId:      1,
		entities:    newEntityRegistry(),
		materials:   newMaterialBinder(),
		ui:          intmap.New[ComponentId, *UIElement](16),
		text:        opts.Text,
		outputs:     NewWorkloadOutputCollection(),
		workloads:   opts.Workloads,
		completions: opts.Completions,
		stats:       newFrameStats(),
		log:         Logger().With("scene", uint64(index), "name", opts.Name),
	}
}

// Index returns the scene's index.
func (s *Scene) Index() SceneIndex { return s.index }

// Name returns the scene's name.
func (s *Scene) Name() string { return s.name }

// Frame returns the number of completed update passes.
func (s *Scene) Frame() uint64 { return s.frame }

// SetTextSystem installs the text collaborator.
func (s *Scene) SetTextSystem(t TextSystem) { s.text = t }

// CreateEntity registers an entity and splices its components into the sequence.
// A parent that does not exist, an unknown material or a component that already belongs to a
// scene is a protocol violation and panics before the scene is changed.
func (s *Scene) CreateEntity(spec EntitySpec) EntityId {
	if spec.Material != NoMaterial {
		if _, ok := s.materials.get(spec.Material); !ok {
			panic(fmt.Sprintf("ecs: material %d does not exist", spec.Material))
		}
	}
	for i, c := range spec.Components {
		if id := c.base().id; id != NoComponent {
			panic(fmt.Sprintf("ecs: component %d is already part of a scene", id))
		}
		if slices.Contains(spec.Components[:i], c) {
			panic(fmt.Sprintf("ecs: component %T appears twice in one entity", c))
		}
	}

	e := s.entities.create(spec)
	for _, c := range spec.Components {
		s.insertComponent(e.Id, c)
	}

	s.log.Debug("ecs: entity created", "entity", e.Id, "parent", e.Parent, "components", len(spec.Components))
	return e.Id
}

// insertComponent assigns an id and places c after every component whose rendering order is
// less than or equal to its own, which keeps equal orders in insertion order.
func (s *Scene) insertComponent(entity EntityId, c Component) {
	b := c.base()
	if b.id != NoComponent {
		panic(fmt.Sprintf("ecs: component %d is already part of a scene", b.id))
	}
	b.id = s.nextId
	s.nextId++
	b.entity = entity

	at := sort.Search(len(s.components), func(i int) bool {
		return s.components[i].RenderOrder() > b.order
	})
	s.components = append(s.components, nil)
	copy(s.components[at+1:], s.components[at:])
	s.components[at] = c
	s.byId.Put(b.id, c)
}

// Entity returns the entity record for id.
func (s *Scene) Entity(id EntityId) (*Entity, bool) {
	return s.entities.get(id)
}

// MustEntity returns the entity record for id and panics when it does not exist.
func (s *Scene) MustEntity(id EntityId) *Entity {
	e, ok := s.entities.get(id)
	if !ok {
		panic(fmt.Sprintf("ecs: entity %d does not exist", id))
	}
	return e
}

// Entities returns the entity records in creation order.
func (s *Scene) Entities() []*Entity {
	out := make([]*Entity, 0, s.entities.len())
	for _, id := range s.entities.order {
		e, _ := s.entities.get(id)
		out = append(out, e)
	}
	return out
}

// EntityDepth returns how many ancestors an entity has.
func (s *Scene) EntityDepth(id EntityId) int {
	return len(s.entities.ancestors(id))
}

// EntityComponents returns the components owned by entity in sequence order.
func (s *Scene) EntityComponents(id EntityId) []Component {
	var out []Component
	for _, c := range s.components {
		if c.Entity() == id {
			out = append(out, c)
		}
	}
	return out
}

// Component returns the component with the given id.
func (s *Scene) Component(id ComponentId) (Component, bool) {
	return s.byId.Get(id)
}

// MustComponent returns the component with the given id and panics when it does not exist.
func (s *Scene) MustComponent(id ComponentId) Component {
	c, ok := s.byId.Get(id)
	if !ok {
		panic(fmt.Sprintf("ecs: component %d does not exist", id))
	}
	return c
}

// Components returns the component sequence in rendering order. The slice must not be
// modified.
func (s *Scene) Components() []Component {
	return s.components
}

// ActiveCamera returns the active camera component, if one is set and still exists.
func (s *Scene) ActiveCamera() (Component, bool) {
	if s.camera == NoComponent {
		return nil, false
	}
	return s.byId.Get(s.camera)
}

// CreateMaterial registers a material. The first material for a pipeline identity marks that
// pipeline as needing a build.
func (s *Scene) CreateMaterial(pipeline PipelineId, attachments ...Attachment) MaterialId {
	m := s.materials.create(pipeline, attachments)
	s.log.Debug("ecs: material created", "material", m.Id, "pipeline", pipeline.String())
	return m.Id
}

// Material returns the material with the given id.
func (s *Scene) Material(id MaterialId) (*Material, bool) {
	return s.materials.get(id)
}

// Materials returns every material in creation order.
func (s *Scene) Materials() []*Material {
	return s.materials.materials
}

// PipelineIds returns the distinct pipeline identities in first-registration order.
func (s *Scene) PipelineIds() []PipelineId {
	return s.materials.pipelines
}

// PipelineMaterials returns the materials drawn with pipeline.
func (s *Scene) PipelineMaterials(pipeline PipelineId) []MaterialId {
	return s.materials.byPipeline[pipeline]
}

// NewPipelinesNeeded reports whether a pipeline was registered since the last
// TakeNewPipelines call.
func (s *Scene) NewPipelinesNeeded() bool {
	return s.materials.newNeeded
}

// TakeNewPipelines returns the pipelines awaiting a build and clears the flag.
func (s *Scene) TakeNewPipelines() []PipelineId {
	return s.materials.take()
}

// ComponentsPerMaterial returns, for every material in creation order, the enabled components
// whose entity is enabled and draws with that material. It is recomputed on every call.
func (s *Scene) ComponentsPerMaterial() []MaterialBatch {
	batches := make([]MaterialBatch, len(s.materials.materials))
	for i, m := range s.materials.materials {
		batches[i].Material = m
	}
	for _, c := range s.components {
		if !c.Enabled() {
			continue
		}
		e, ok := s.entities.get(c.Entity())
		if !ok || !e.Enabled || e.Material == NoMaterial {
			continue
		}
		idx := int(e.Material) - 1
		batches[idx].Components = append(batches[idx].Components, c)
	}
	return batches
}

// AttachWorkload submits a workload on behalf of a component. A scene without a workload
// lane is misconfigured and panics.
func (s *Scene) AttachWorkload(component ComponentId, w Workload) uuid.UUID {
	if s.workloads == nil {
		panic(fmt.Sprintf("ecs: scene %d has no workload lane; cannot run %q", s.index, w.Name))
	}
	req := WorkloadRequest{
		Scene:     s.index,
		Component: component,
		Ticket:    uuid.New(),
		Submitted: time.Now(),
		Workload:  w,
	}
	s.workloads.Submit(req)
	s.log.Debug("ecs: workload attached", "component", component, "workload", w.Name, "ticket", req.Ticket)
	return req.Ticket
}

// FreeWorkloadOutput removes one output of a component. Freeing an output that does not exist
// panics.
func (s *Scene) FreeWorkloadOutput(component ComponentId, index int) {
	s.outputs.Free(component, index)
}

// WorkloadOutputs returns a component's current outputs.
func (s *Scene) WorkloadOutputs(component ComponentId) WorkloadOutputs {
	return s.outputs.Outputs(component)
}

// drainCompletions moves every finished workload into the output collection without
// blocking.
func (s *Scene) drainCompletions() int {
	if s.completions == nil {
		return 0
	}
	n := 0
	for {
		select {
		case res, ok := <-s.completions:
			if !ok {
				s.completions = nil
				return n
			}
			if res.Scene != s.index {
				s.log.Warn("ecs: workload result for another scene", "target", uint64(res.Scene))
				continue
			}
			s.outputs.Append(res.Component, res.Output)
			n++
		default:
			return n
		}
	}
}

// ExecuteActionQueue applies every queued action in order and empties the queue.
func (s *Scene) ExecuteActionQueue(q *ActionQueue) {
	for _, a := range q.actions {
		a.apply(s)
	}
	q.Reset()
}

// initializePending initializes every component that has not been initialized yet, in
// sequence order, and replays the actions they queued.
func (s *Scene) initializePending(in *FrameInput) int {
	queue := NewActionQueue()
	var pending []Component
	for _, c := range s.components {
		if !c.Initialized() {
			pending = append(pending, c)
		}
	}
	for _, c := range pending {
		c.Initialize(&InitContext{Scene: s.index, Device: in.Device, Actions: queue})
		if !c.Initialized() {
			panic(fmt.Sprintf("ecs: component %d (%T) did not mark itself initialized", c.Id(), c))
		}
	}
	s.ExecuteActionQueue(queue)
	return len(pending)
}

type updatePanic struct {
	component ComponentId
	typ       string
	value     any
	stack     []byte
}

// Update runs one frame: drain workload completions, initialize new components, run the
// concurrent update pass over enabled components, then apply the collected actions in
// sequence order.
func (s *Scene) Update(in FrameInput) {
	start := time.Now()

	delivered := s.drainCompletions()
	initialized := s.initializePending(&in)

	components := s.components
	infos := snapshotComponents(components)
	frames := make([]*UpdateFrame, len(components))
	panics := make([]*updatePanic, len(components))

	var g errgroup.Group
	if s.opts.UpdateWorkers > 0 {
		g.SetLimit(s.opts.UpdateWorkers)
	}

	updated := 0
	for i, c := range components {
		if !infos[i].Enabled || !infos[i].Initialized {
			continue
		}
		updated++
		frame := newUpdateFrame(s, &in, newSiblings(infos, i), s.outputs.Outputs(c.Id()))
		frames[i] = frame

		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panics[i] = &updatePanic{component: c.Id(), typ: fmt.Sprintf("%T", c), value: r, stack: debug.Stack()}
				}
			}()
			c.Update(frame)
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range panics {
		if p != nil {
			panic(fmt.Sprintf("ecs: component %d (%s) panicked during update: %v\n%s", p.component, p.typ, p.value, p.stack))
		}
	}

	queue := NewActionQueue()
	for _, f := range frames {
		if f != nil {
			queue.Append(f.Actions)
		}
	}
	actions := queue.Len()
	s.ExecuteActionQueue(queue)

	s.frame++
	s.stats.record(time.Since(start), updated, actions, initialized, delivered)
	s.log.Debug("ecs: frame complete", "frame", s.frame, "updated", updated, "actions", actions)
}
