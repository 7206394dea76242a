package ecs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/plus3/scenery/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLane records submissions; tests deliver results by hand.
type fakeLane struct {
	mu       sync.Mutex
	requests []ecs.WorkloadRequest
}

func (l *fakeLane) Submit(req ecs.WorkloadRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
}

func (l *fakeLane) taken() []ecs.WorkloadRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ecs.WorkloadRequest(nil), l.requests...)
}

func output(name string, value any) ecs.WorkloadOutput {
	return ecs.WorkloadOutput{Ticket: uuid.New(), Name: name, Value: value, Completed: time.Now()}
}

func TestWorkloadOutputCollection(t *testing.T) {
	t.Run("free removes exactly one entry", func(t *testing.T) {
		c := ecs.NewWorkloadOutputCollection()
		c.Append(7, output("a", 1))
		c.Append(7, output("b", 2))
		c.Append(7, output("c", 3))
		c.Append(8, output("other", 4))

		view := c.Outputs(7)
		freed := c.Free(7, 1)
		assert.Equal(t, "b", freed.Name)

		var names []string
		for _, o := range c.Outputs(7).All() {
			names = append(names, o.Name)
		}
		assert.Equal(t, []string{"a", "c"}, names)
		assert.Equal(t, 1, c.Outputs(8).Len())
		assert.Equal(t, 3, c.Len())

		// Views handed out before the free keep their contents.
		assert.Equal(t, 3, view.Len())
		assert.Equal(t, "b", view.At(1).Name)
	})

	t.Run("freeing the last entry removes the component", func(t *testing.T) {
		c := ecs.NewWorkloadOutputCollection()
		c.Append(1, output("only", nil))
		c.Free(1, 0)
		assert.Equal(t, 0, c.Components())
		assert.Equal(t, 0, c.Outputs(1).Len())
	})

	t.Run("free faults", func(t *testing.T) {
		c := ecs.NewWorkloadOutputCollection()
		assert.Panics(t, func() { c.Free(1, 0) }, "no outputs yet")

		c.Append(1, output("x", nil))
		assert.Panics(t, func() { c.Free(1, 1) })
		assert.Panics(t, func() { c.Free(1, -1) })
		assert.Panics(t, func() { c.Free(2, 0) })
		assert.Equal(t, 1, c.Len())
	})

	t.Run("find by ticket", func(t *testing.T) {
		c := ecs.NewWorkloadOutputCollection()
		a, b := output("a", nil), output("b", nil)
		c.Append(1, a)
		c.Append(1, b)
		i, ok := c.Outputs(1).Find(b.Ticket)
		assert.True(t, ok)
		assert.Equal(t, 1, i)
		_, ok = c.Outputs(1).Find(uuid.New())
		assert.False(t, ok)
	})
}

func TestOutputAs(t *testing.T) {
	v, ok := ecs.OutputAs[int](output("n", 42))
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = ecs.OutputAs[string](output("n", 42))
	assert.False(t, ok)

	failed := output("n", 42)
	failed.Err = errors.New("nope")
	_, ok = ecs.OutputAs[int](failed)
	assert.False(t, ok)
}

// requester attaches one workload on its first update and records how many outputs it sees.
type requester struct {
	ecs.Base
	Observed []int
	FreeWhen func(outputs ecs.WorkloadOutputs) (int, bool)
	attached bool
}

func (r *requester) Initialize(ctx *ecs.InitContext) { r.MarkInitialized() }

func (r *requester) Update(frame *ecs.UpdateFrame) {
	if !r.attached {
		r.attached = true
		frame.Actions.AttachWorkload(r.Id(), ecs.Workload{
			Name: "answer",
			Run:  func(context.Context) (any, error) { return 42, nil },
		})
	}
	r.Observed = append(r.Observed, frame.Outputs.Len())
	if r.FreeWhen != nil {
		if i, ok := r.FreeWhen(frame.Outputs); ok {
			frame.Actions.FreeWorkloadOutput(r.Id(), i)
		}
	}
}

func TestWorkloadDeliveryAfterKFrames(t *testing.T) {
	const k = 4

	lane := &fakeLane{}
	completions := make(chan ecs.WorkloadResult, 1)
	scene := ecs.NewScene(3, ecs.SceneOptions{Workloads: lane, Completions: completions})

	r := &requester{}
	scene.CreateEntity(ecs.NewEntitySpec(r))

	for i := 0; i < k; i++ {
		scene.Update(ecs.FrameInput{})
	}
	reqs := lane.taken()
	require.Len(t, reqs, 1)
	assert.Equal(t, ecs.SceneIndex(3), reqs[0].Scene)
	assert.Equal(t, r.Id(), reqs[0].Component)
	assert.NotEqual(t, uuid.Nil, reqs[0].Ticket)

	// The lane finishes after frame k.
	completions <- ecs.WorkloadResult{
		Scene:     reqs[0].Scene,
		Component: reqs[0].Component,
		Output:    ecs.WorkloadOutput{Ticket: reqs[0].Ticket, Name: "answer", Value: 42},
	}

	scene.Update(ecs.FrameInput{})
	scene.Update(ecs.FrameInput{})

	assert.Equal(t, []int{0, 0, 0, 0, 1, 1}, r.Observed)
	out := scene.WorkloadOutputs(r.Id()).At(0)
	v, ok := ecs.OutputAs[int](out)
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, 1, scene.Stats().PendingOutputs)
}

func TestWorkloadFreeThroughAction(t *testing.T) {
	completions := make(chan ecs.WorkloadResult, 4)
	scene := ecs.NewScene(1, ecs.SceneOptions{Workloads: &fakeLane{}, Completions: completions})

	r := &requester{FreeWhen: func(o ecs.WorkloadOutputs) (int, bool) { return 0, o.Len() > 0 }}
	scene.CreateEntity(ecs.NewEntitySpec(r))
	scene.Update(ecs.FrameInput{})

	completions <- ecs.WorkloadResult{Scene: 1, Component: r.Id(), Output: output("answer", 42)}
	scene.Update(ecs.FrameInput{})
	scene.Update(ecs.FrameInput{})

	assert.Equal(t, []int{0, 1, 0}, r.Observed)
	assert.Equal(t, 0, scene.Stats().PendingOutputs)
}

func TestWorkloadFaults(t *testing.T) {
	t.Run("no lane configured", func(t *testing.T) {
		scene := newTestScene()
		scene.CreateEntity(ecs.NewEntitySpec(&requester{}))
		assert.Panics(t, func() { scene.Update(ecs.FrameInput{}) })
	})

	t.Run("free before completion", func(t *testing.T) {
		scene := ecs.NewScene(1, ecs.SceneOptions{Workloads: &fakeLane{}})
		r := &requester{FreeWhen: func(ecs.WorkloadOutputs) (int, bool) { return 0, true }}
		scene.CreateEntity(ecs.NewEntitySpec(r))
		assert.Panics(t, func() { scene.Update(ecs.FrameInput{}) })
	})

	t.Run("free out of range", func(t *testing.T) {
		completions := make(chan ecs.WorkloadResult, 1)
		scene := ecs.NewScene(1, ecs.SceneOptions{Workloads: &fakeLane{}, Completions: completions})
		r := &requester{FreeWhen: func(o ecs.WorkloadOutputs) (int, bool) { return o.Len(), o.Len() > 0 }}
		scene.CreateEntity(ecs.NewEntitySpec(r))
		scene.Update(ecs.FrameInput{})

		completions <- ecs.WorkloadResult{Scene: 1, Component: r.Id(), Output: output("answer", 42)}
		assert.Panics(t, func() { scene.Update(ecs.FrameInput{}) })
	})

	t.Run("results for other scenes are ignored", func(t *testing.T) {
		completions := make(chan ecs.WorkloadResult, 1)
		scene := ecs.NewScene(1, ecs.SceneOptions{Completions: completions})
		completions <- ecs.WorkloadResult{Scene: 2, Component: 1, Output: output("x", nil)}
		scene.Update(ecs.FrameInput{})
		assert.Equal(t, 0, scene.Stats().PendingOutputs)
	})

	t.Run("closed completion channel", func(t *testing.T) {
		completions := make(chan ecs.WorkloadResult)
		close(completions)
		scene := ecs.NewScene(1, ecs.SceneOptions{Completions: completions})
		assert.NotPanics(t, func() {
			scene.Update(ecs.FrameInput{})
			scene.Update(ecs.FrameInput{})
		})
	})
}

func TestWorkloadLane(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{Workers: 2})
		defer lane.Close()

		results := lane.Attach(5)
		ticket := uuid.New()
		lane.Submit(ecs.WorkloadRequest{
			Scene:     5,
			Component: 9,
			Ticket:    ticket,
			Workload: ecs.Workload{
				Name: "sum",
				Run:  func(context.Context) (any, error) { return 1 + 2, nil },
			},
		})

		select {
		case res := <-results:
			assert.Equal(t, ecs.ComponentId(9), res.Component)
			assert.Equal(t, ticket, res.Output.Ticket)
			assert.Equal(t, 3, res.Output.Value)
			assert.NoError(t, res.Output.Err)
		case <-time.After(time.Second):
			t.Fatal("workload result not delivered")
		}
	})

	t.Run("errors and panics become output errors", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{})
		defer lane.Close()
		results := lane.Attach(1)

		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: ecs.Workload{
			Name: "fails",
			Run:  func(context.Context) (any, error) { return nil, errors.New("bad input") },
		}})
		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: ecs.Workload{
			Name: "panics",
			Run:  func(context.Context) (any, error) { panic("kaboom") },
		}})
		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: ecs.Workload{Name: "empty"}})

		errs := map[string]error{}
		for i := 0; i < 3; i++ {
			select {
			case res := <-results:
				errs[res.Output.Name] = res.Output.Err
			case <-time.After(time.Second):
				t.Fatal("workload result not delivered")
			}
		}
		assert.ErrorContains(t, errs["fails"], "bad input")
		assert.ErrorContains(t, errs["panics"], "kaboom")
		assert.Error(t, errs["empty"])
		assert.Equal(t, int64(3), lane.Stats().Failed)
	})

	t.Run("worker limit", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{Workers: 1})
		defer lane.Close()
		results := lane.Attach(1)

		release := make(chan struct{})
		block := ecs.Workload{Name: "block", Run: func(context.Context) (any, error) {
			<-release
			return nil, nil
		}}
		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: block})
		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: block})

		assert.Eventually(t, func() bool { return lane.Stats().Running == 1 }, time.Second, time.Millisecond)
		assert.Never(t, func() bool { return lane.Stats().Running > 1 }, 20*time.Millisecond, time.Millisecond)
		close(release)
		for i := 0; i < 2; i++ {
			<-results
		}
	})

	t.Run("detached scenes drop results", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{})
		defer lane.Close()
		lane.Attach(1)
		lane.Detach(1)

		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: ecs.Workload{
			Name: "lost",
			Run:  func(context.Context) (any, error) { return nil, nil },
		}})
		assert.Eventually(t, func() bool { return lane.Stats().Dropped == 1 }, time.Second, time.Millisecond)
	})

	t.Run("close", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{})
		results := lane.Attach(1)

		started := make(chan struct{})
		lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: ecs.Workload{
			Name: "long",
			Run: func(ctx context.Context) (any, error) {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}})
		<-started
		lane.Close()

		for range results {
		}
		assert.Panics(t, func() {
			lane.Submit(ecs.WorkloadRequest{Workload: ecs.Workload{Name: "late"}})
		})
		lane.Close()
	})

	t.Run("close accounts for every submission", func(t *testing.T) {
		lane := ecs.NewWorkloadLane(ecs.LaneOptions{Workers: 1, RequestBuffer: 4})
		lane.Attach(1)

		wait := ecs.Workload{Name: "wait", Run: func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		for i := 0; i < 8; i++ {
			lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: wait})
		}
		assert.Eventually(t, func() bool { return lane.Stats().Running == 1 }, time.Second, time.Millisecond)

		// Submits racing Close either land or panic; none may hang.
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { _ = recover() }()
				lane.Submit(ecs.WorkloadRequest{Scene: 1, Workload: wait})
			}()
		}
		lane.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("submit blocked on a closed lane")
		}

		stats := lane.Stats()
		assert.Equal(t, int64(0), stats.Running)
		assert.Equal(t, stats.Submitted, stats.Completed+stats.Dropped)
	})
}

func TestStagedSceneDoesNotStarveLane(t *testing.T) {
	engine := ecs.NewEngine(ecs.EngineOptions{Lane: ecs.LaneOptions{Workers: 1, CompletionBuffer: 1}})
	defer engine.Close()

	active := engine.NewScene("active")
	staged := engine.NewScene("staged")
	require.Same(t, active, engine.Active())

	idle := NewCounter("idle", 0)
	staged.CreateEntity(ecs.NewEntitySpec(idle))
	quick := ecs.Workload{Name: "quick", Run: func(context.Context) (any, error) { return 1, nil }}
	first := staged.AttachWorkload(idle.Id(), quick)
	second := staged.AttachWorkload(idle.Id(), quick)
	assert.Eventually(t, func() bool { return engine.Stats().Lane.Completed >= 1 }, time.Second, time.Millisecond)

	r := &requester{}
	active.CreateEntity(ecs.NewEntitySpec(r))
	assert.Eventually(t, func() bool {
		engine.Once(1.0/60, ecs.InputState{})
		return active.WorkloadOutputs(r.Id()).Len() == 1
	}, time.Second, time.Millisecond, "the active scene's workload runs while the staged scene is not drained")

	engine.SetActive(staged.Index())
	assert.Eventually(t, func() bool {
		engine.Once(1.0/60, ecs.InputState{})
		return staged.WorkloadOutputs(idle.Id()).Len() == 2
	}, time.Second, time.Millisecond)

	outputs := staged.WorkloadOutputs(idle.Id())
	_, ok := outputs.Find(first)
	assert.True(t, ok)
	_, ok = outputs.Find(second)
	assert.True(t, ok)
	assert.Equal(t, int64(0), engine.Stats().Lane.Dropped)
}

func TestEngineWorkloads(t *testing.T) {
	engine := ecs.NewEngine(ecs.EngineOptions{})
	defer engine.Close()
	scene := engine.NewScene("main")

	r := &requester{}
	scene.CreateEntity(ecs.NewEntitySpec(r))

	assert.Eventually(t, func() bool {
		engine.Once(1.0/60, ecs.InputState{})
		return scene.WorkloadOutputs(r.Id()).Len() == 1
	}, time.Second, time.Millisecond)

	v, ok := ecs.OutputAs[int](scene.WorkloadOutputs(r.Id()).At(0))
	assert.True(t, ok)
	assert.Equal(t, 42, v)
	assert.Equal(t, int64(1), engine.Stats().Lane.Completed)
}
