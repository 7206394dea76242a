package ecs

import "time"

// SceneStats describes the contents of a scene and the cost of its update passes.
type SceneStats struct {
	Index          SceneIndex
	Name           string
	Frames         uint64
	EntityCount    int
	ComponentCount int
	EnabledCount   int
	MaterialCount  int
	PipelineCount  int
	UIElementCount int
	PendingOutputs int

	LastUpdated     int
	LastActions     int
	LastInitialized int
	LastDelivered   int
	TotalActions    int64

	MinUpdate  time.Duration
	MaxUpdate  time.Duration
	AvgUpdate  time.Duration
	LastUpdate time.Duration
	TotalTime  time.Duration
}

type frameStats struct {
	frames          int64
	lastUpdated     int
	lastActions     int
	lastInitialized int
	lastDelivered   int
	totalActions    int64
	minDuration     time.Duration
	maxDuration     time.Duration
	lastDuration    time.Duration
	totalDuration   time.Duration
}

func newFrameStats() frameStats {
	return frameStats{minDuration: time.Duration(1<<63 - 1)}
}

func (f *frameStats) record(d time.Duration, updated, actions, initialized, delivered int) {
	f.frames++
	f.lastUpdated = updated
	f.lastActions = actions
	f.lastInitialized = initialized
	f.lastDelivered = delivered
	f.totalActions += int64(actions)
	f.lastDuration = d
	f.totalDuration += d
	if d < f.minDuration {
		f.minDuration = d
	}
	if d > f.maxDuration {
		f.maxDuration = d
	}
}

// Stats collects the scene's current statistics.
func (s *Scene) Stats() SceneStats {
	stats := SceneStats{
		Index:           s.index,
		Name:            s.name,
		Frames:          s.frame,
		EntityCount:     s.entities.len(),
		ComponentCount:  len(s.components),
		MaterialCount:   len(s.materials.materials),
		PipelineCount:   len(s.materials.pipelines),
		UIElementCount:  len(s.uiOrder),
		PendingOutputs:  s.outputs.Len(),
		LastUpdated:     s.stats.lastUpdated,
		LastActions:     s.stats.lastActions,
		LastInitialized: s.stats.lastInitialized,
		LastDelivered:   s.stats.lastDelivered,
		TotalActions:    s.stats.totalActions,
		LastUpdate:      s.stats.lastDuration,
		TotalTime:       s.stats.totalDuration,
	}
	for _, c := range s.components {
		if c.Enabled() {
			stats.EnabledCount++
		}
	}
	if s.stats.frames > 0 {
		stats.MinUpdate = s.stats.minDuration
		stats.MaxUpdate = s.stats.maxDuration
		stats.AvgUpdate = s.stats.totalDuration / time.Duration(s.stats.frames)
	}
	return stats
}
