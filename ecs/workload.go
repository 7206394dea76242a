package ecs

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Workload is an asynchronous computation that may span many frames. Its result is delivered
// to the requesting component's output list at the start of a later frame.
type Workload struct {
	Name string
	Run  func(ctx context.Context) (any, error)
}

// WorkloadRequest is what the scene sends to the workload lane.
type WorkloadRequest struct {
	Scene     SceneIndex
	Component ComponentId
	Ticket    uuid.UUID
	Submitted time.Time
	Workload  Workload
}

// WorkloadOutput is the type-erased result of a finished workload.
type WorkloadOutput struct {
	Ticket    uuid.UUID
	Name      string
	Value     any
	Err       error
	Submitted time.Time
	Completed time.Time
}

// OutputAs returns the output value as T when the workload succeeded with a T.
func OutputAs[T any](o WorkloadOutput) (T, bool) {
	if o.Err != nil {
		var zero T
		return zero, false
	}
	v, ok := o.Value.(T)
	return v, ok
}

// WorkloadResult is what the lane sends back for a finished workload.
type WorkloadResult struct {
	Scene     SceneIndex
	Component ComponentId
	Output    WorkloadOutput
}

// WorkloadSubmitter accepts workload requests. *WorkloadLane is the standard implementation.
type WorkloadSubmitter interface {
	Submit(req WorkloadRequest)
}

// WorkloadOutputCollection holds each component's finished workload outputs in completion
// order. Entries are appended only by the scene's completion drain and removed only by an
// explicit free.
type WorkloadOutputCollection struct {
	byComponent *intmap.Map[ComponentId, []WorkloadOutput]
	total       int
}

// NewWorkloadOutputCollection returns an empty collection.
func NewWorkloadOutputCollection() *WorkloadOutputCollection {
	return &WorkloadOutputCollection{
		byComponent: intmap.New[ComponentId, []WorkloadOutput](16),
	}
}

// Append adds an output to the end of a component's list.
func (c *WorkloadOutputCollection) Append(id ComponentId, out WorkloadOutput) {
	list, _ := c.byComponent.Get(id)
	c.byComponent.Put(id, append(list, out))
	c.total++
}

// Outputs returns a read-only view of a component's outputs.
func (c *WorkloadOutputCollection) Outputs(id ComponentId) WorkloadOutputs {
	list, _ := c.byComponent.Get(id)
	return WorkloadOutputs{items: list}
}

// Free removes the output at index from a component's list. Freeing an output that does not
// exist is a protocol violation and panics.
func (c *WorkloadOutputCollection) Free(id ComponentId, index int) WorkloadOutput {
	list, ok := c.byComponent.Get(id)
	if !ok {
		panic(fmt.Sprintf("ecs: component %d has no workload outputs to free", id))
	}
	if index < 0 || index >= len(list) {
		panic(fmt.Sprintf("ecs: workload output index %d out of range for component %d (len %d)", index, id, len(list)))
	}
	out := list[index]
	list = slices.Delete(slices.Clone(list), index, index+1)
	if len(list) == 0 {
		c.byComponent.Del(id)
	} else {
		c.byComponent.Put(id, list)
	}
	c.total--
	return out
}

// Len returns the number of outputs held across all components.
func (c *WorkloadOutputCollection) Len() int {
	return c.total
}

// Components returns how many components currently hold outputs.
func (c *WorkloadOutputCollection) Components() int {
	return c.byComponent.Len()
}

// WorkloadOutputs is a read-only view of one component's outputs for the current frame.
type WorkloadOutputs struct {
	items []WorkloadOutput
}

func (w WorkloadOutputs) Len() int { return len(w.items) }

// At returns the output at index i.
func (w WorkloadOutputs) At(i int) WorkloadOutput { return w.items[i] }

// All iterates outputs with their indices, which are valid for FreeWorkloadOutput.
func (w WorkloadOutputs) All() iter.Seq2[int, WorkloadOutput] {
	return func(yield func(int, WorkloadOutput) bool) {
		for i, o := range w.items {
			if !yield(i, o) {
				return
			}
		}
	}
}

// Find returns the index of the output produced for ticket.
func (w WorkloadOutputs) Find(ticket uuid.UUID) (int, bool) {
	for i, o := range w.items {
		if o.Ticket == ticket {
			return i, true
		}
	}
	return -1, false
}

// LaneOptions configures a WorkloadLane.
type LaneOptions struct {
	// Workers bounds how many workloads run at once. Zero means unbounded.
	Workers int
	// RequestBuffer is the capacity of the request channel.
	RequestBuffer int
	// CompletionBuffer is the capacity of each scene's completion channel.
	CompletionBuffer int
}

// LaneStats is a snapshot of lane counters.
type LaneStats struct {
	Submitted int64
	Running   int64
	Completed int64
	Failed    int64
	Dropped   int64
}

// WorkloadLane runs workloads concurrently with the frame loop. Requests arrive on a channel
// consumed by a dispatcher goroutine; results are routed to the completion channel of the
// scene that asked for them. A scene that is not draining its channel never holds up workers
// or other scenes: its results wait in that scene's sink.
type WorkloadLane struct {
	requests chan WorkloadRequest
	opts     LaneOptions

	sinksMu sync.RWMutex
	sinks   map[SceneIndex]*sceneSink

	submitMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	sem    *semaphore.Weighted
	done   chan struct{}

	closed    atomic.Bool
	submitted atomic.Int64
	running   atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	log *slog.Logger
}

// NewWorkloadLane starts a lane.
func NewWorkloadLane(opts LaneOptions) *WorkloadLane {
	if opts.RequestBuffer <= 0 {
		opts.RequestBuffer = 256
	}
	if opts.CompletionBuffer <= 0 {
		opts.CompletionBuffer = 256
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	l := &WorkloadLane{
		requests: make(chan WorkloadRequest, opts.RequestBuffer),
		opts:     opts,
		sinks:    make(map[SceneIndex]*sceneSink),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
		done:     make(chan struct{}),
		log:      Logger().With("subsystem", "workloads"),
	}
	if opts.Workers > 0 {
		l.sem = semaphore.NewWeighted(int64(opts.Workers))
	}

	go l.dispatch()
	l.log.Info("ecs: workload lane started", "workers", opts.Workers)
	return l
}

// Attach registers a scene and returns the channel its results are delivered on.
func (l *WorkloadLane) Attach(scene SceneIndex) <-chan WorkloadResult {
	l.sinksMu.Lock()
	defer l.sinksMu.Unlock()

	if sink, ok := l.sinks[scene]; ok {
		return sink.ch
	}
	sink := newSceneSink(l.opts.CompletionBuffer)
	l.sinks[scene] = sink
	go sink.forward(l)
	return sink.ch
}

// Detach stops delivery to a scene. Results waiting for it and results for it from then on
// are dropped.
func (l *WorkloadLane) Detach(scene SceneIndex) {
	l.sinksMu.Lock()
	sink, ok := l.sinks[scene]
	delete(l.sinks, scene)
	l.sinksMu.Unlock()

	if ok {
		l.dropped.Add(int64(sink.stop()))
	}
}

// Submit queues a request. Submitting to a closed lane is a configuration error and panics.
func (l *WorkloadLane) Submit(req WorkloadRequest) {
	l.submitMu.RLock()
	defer l.submitMu.RUnlock()

	if l.closed.Load() {
		panic(fmt.Sprintf("ecs: workload %q submitted to a closed lane", req.Workload.Name))
	}
	select {
	case l.requests <- req:
		l.submitted.Add(1)
	case <-l.ctx.Done():
		panic(fmt.Sprintf("ecs: workload %q submitted to a closed lane", req.Workload.Name))
	}
}

// Stats returns the lane counters.
func (l *WorkloadLane) Stats() LaneStats {
	return LaneStats{
		Submitted: l.submitted.Load(),
		Running:   l.running.Load(),
		Completed: l.completed.Load(),
		Failed:    l.failed.Load(),
		Dropped:   l.dropped.Load(),
	}
}

// Close stops accepting requests, cancels the lane context, waits for running workloads and
// closes every completion channel. Queued requests and results that cannot be delivered are
// dropped.
func (l *WorkloadLane) Close() {
	if l.closed.Swap(true) {
		return
	}
	l.cancel()

	// Submits already past the closed check unblock on the cancelled context.
	l.submitMu.Lock()
	l.submitMu.Unlock()

	<-l.done
	_ = l.group.Wait()

	for queued := true; queued; {
		select {
		case req := <-l.requests:
			l.dropped.Add(1)
			l.log.Debug("ecs: queued workload dropped", "workload", req.Workload.Name, "ticket", req.Ticket)
		default:
			queued = false
		}
	}

	l.sinksMu.Lock()
	for scene, sink := range l.sinks {
		l.dropped.Add(int64(sink.stop()))
		close(sink.ch)
		delete(l.sinks, scene)
	}
	l.sinksMu.Unlock()

	l.log.Info("ecs: workload lane closed", "completed", l.completed.Load(), "dropped", l.dropped.Load())
}

func (l *WorkloadLane) dispatch() {
	defer close(l.done)
	for {
		select {
		case <-l.ctx.Done():
			return
		case req := <-l.requests:
			l.group.Go(func() error {
				l.execute(req)
				return nil
			})
		}
	}
}

func (l *WorkloadLane) execute(req WorkloadRequest) {
	out := WorkloadOutput{
		Ticket:    req.Ticket,
		Name:      req.Workload.Name,
		Submitted: req.Submitted,
	}

	if l.sem != nil {
		if err := l.sem.Acquire(l.ctx, 1); err != nil {
			l.dropped.Add(1)
			return
		}
	}

	l.running.Add(1)
	out.Value, out.Err = l.run(req)
	l.running.Add(-1)
	out.Completed = time.Now()

	// The slot is free before delivery so a slow consumer cannot hold it.
	if l.sem != nil {
		l.sem.Release(1)
	}

	if out.Err != nil {
		l.failed.Add(1)
		l.log.Debug("ecs: workload failed", "workload", out.Name, "ticket", out.Ticket, "err", out.Err)
	}
	l.deliver(WorkloadResult{Scene: req.Scene, Component: req.Component, Output: out})
}

func (l *WorkloadLane) run(req WorkloadRequest) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("ecs: workload %q panicked: %v", req.Workload.Name, r)
		}
	}()
	if req.Workload.Run == nil {
		return nil, fmt.Errorf("ecs: workload %q has no Run function", req.Workload.Name)
	}
	return req.Workload.Run(l.ctx)
}

// deliver hands a result to its scene's sink. It never blocks on the scene.
func (l *WorkloadLane) deliver(res WorkloadResult) {
	l.sinksMu.RLock()
	sink, ok := l.sinks[res.Scene]
	l.sinksMu.RUnlock()
	if !ok || !sink.push(res) {
		l.dropped.Add(1)
		l.log.Debug("ecs: workload result for detached scene", "scene", res.Scene, "ticket", res.Output.Ticket)
	}
}

// sceneSink queues one scene's results without bound and forwards them to the scene's
// completion channel in completion order.
type sceneSink struct {
	ch chan WorkloadResult

	mu      sync.Mutex
	pending []WorkloadResult
	stopped bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func newSceneSink(buffer int) *sceneSink {
	return &sceneSink{
		ch:   make(chan WorkloadResult, buffer),
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (s *sceneSink) push(res WorkloadResult) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, res)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *sceneSink) forward(l *WorkloadLane) {
	defer close(s.done)
	for {
		s.mu.Lock()
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for i, res := range batch {
			select {
			case s.ch <- res:
				l.completed.Add(1)
			case <-s.quit:
				l.dropped.Add(int64(len(batch) - i))
				return
			}
		}

		select {
		case <-s.wake:
		case <-s.quit:
			return
		}
	}
}

// stop ends forwarding and returns how many queued results were discarded. Results the
// forwarder was holding are counted by the forwarder itself.
func (s *sceneSink) stop() int {
	s.mu.Lock()
	s.stopped = true
	n := len(s.pending)
	s.pending = nil
	s.mu.Unlock()

	close(s.quit)
	<-s.done
	return n
}
