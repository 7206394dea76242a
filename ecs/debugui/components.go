package debugui

import (
	"github.com/plus3/scenery/ecs"
)

type EntityBrowser struct {
	cache              *EntityBrowserCache
	selectedEntityId   ecs.EntityId
	filterText         string
	showDisabled       bool
	maxEntitiesPerPage int
	currentPage        int
}

type ComponentInspector struct {
	selectedEntityId ecs.EntityId
}

type MaterialViewer struct {
	cache            *MaterialViewerCache
	selectedPipeline int
	sortColumn       int
	sortAscending    bool
}

type PerformanceStats struct {
	historyFrames int
	frameHistory  []float32
	updateHistory []float32
	frameIndex    int
}

type WorkloadMonitor struct {
	lane                   *ecs.WorkloadLane
	selectedComponentTypes map[string]bool
	cache                  *WorkloadMonitorCache
}
