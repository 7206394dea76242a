package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

type EntityInfo struct {
	ID             ecs.EntityId
	Parent         ecs.EntityId
	Depth          int
	Enabled        bool
	Material       ecs.MaterialId
	ComponentTypes []string
	ComponentCount int
}

type EntityBrowserCache struct {
	entities           []EntityInfo
	lastEntityCount    int
	lastComponentCount int
	lastFrame          uint64
	sortColumn         int
	sortAscending      bool
}

func NewEntityBrowser(maxEntitiesPerPage int) *EntityBrowser {
	if maxEntitiesPerPage <= 0 {
		maxEntitiesPerPage = 100
	}
	return &EntityBrowser{
		cache: &EntityBrowserCache{
			sortColumn:    0,
			sortAscending: true,
		},
		showDisabled:       true,
		maxEntitiesPerPage: maxEntitiesPerPage,
	}
}

func (eb *EntityBrowser) Render(scene *ecs.Scene) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildCacheIfNeeded(scene)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
	}
	imgui.SameLine()
	imgui.Checkbox("Show disabled", &eb.showDisabled)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity ID")
		imgui.TableSetupColumn("Parent")
		imgui.TableSetupColumn("Material")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.cache.sortColumn = int(spec.ColumnIndex())
			eb.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			eb.sortEntities()
			sortSpecs.SetSpecsDirty(false)
		}

		filteredEntities := eb.filteredEntities()

		startIdx := eb.currentPage * eb.maxEntitiesPerPage
		endIdx := min(startIdx+eb.maxEntitiesPerPage, len(filteredEntities))

		for i := startIdx; i < endIdx; i++ {
			entity := filteredEntities[i]
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.selectedEntityId == entity.ID
			label := strings.Repeat("  ", entity.Depth) + fmt.Sprintf("%d", entity.ID)
			if !entity.Enabled {
				label += " (off)"
			}
			if imgui.SelectableBoolV(label, isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				eb.selectedEntityId = entity.ID
			}

			imgui.TableNextColumn()
			if entity.Parent == ecs.NoEntity {
				imgui.Text("-")
			} else {
				imgui.Text(fmt.Sprintf("%d", entity.Parent))
			}

			imgui.TableNextColumn()
			if entity.Material == ecs.NoMaterial {
				imgui.Text("-")
			} else {
				imgui.Text(fmt.Sprintf("%d", entity.Material))
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.ComponentCount))
		}

		imgui.EndTable()
	}

	filteredEntities := eb.filteredEntities()

	if len(filteredEntities) > eb.maxEntitiesPerPage {
		totalPages := (len(filteredEntities) + eb.maxEntitiesPerPage - 1) / eb.maxEntitiesPerPage
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

// rebuildCacheIfNeeded refreshes the rows when entities or components were added. Enable
// state can change through actions on any frame, so it is refreshed once per frame.
func (eb *EntityBrowser) rebuildCacheIfNeeded(scene *ecs.Scene) {
	entityCount := len(scene.Entities())
	componentCount := len(scene.Components())
	if eb.cache.lastEntityCount != entityCount || eb.cache.lastComponentCount != componentCount {
		eb.cache.entities = nil
		eb.cache.lastEntityCount = entityCount
		eb.cache.lastComponentCount = componentCount
	}

	if eb.cache.entities == nil {
		eb.rebuildCache(scene)
	} else if eb.cache.lastFrame != scene.Frame() {
		eb.refreshState(scene)
	}
	eb.cache.lastFrame = scene.Frame()
}

// rebuildCache lists entities depth-first so children follow their parent.
func (eb *EntityBrowser) rebuildCache(scene *ecs.Scene) {
	eb.cache.entities = make([]EntityInfo, 0, len(scene.Entities()))

	var visit func(e *ecs.Entity, depth int)
	visit = func(e *ecs.Entity, depth int) {
		components := scene.EntityComponents(e.Id)
		componentTypes := make([]string, len(components))
		for i, c := range components {
			componentTypes[i] = fmt.Sprintf("%T", c)
		}

		eb.cache.entities = append(eb.cache.entities, EntityInfo{
			ID:             e.Id,
			Parent:         e.Parent,
			Depth:          depth,
			Enabled:        e.Enabled,
			Material:       e.Material,
			ComponentTypes: componentTypes,
			ComponentCount: len(componentTypes),
		})
		for _, child := range e.Children {
			if ce, ok := scene.Entity(child); ok {
				visit(ce, depth+1)
			}
		}
	}

	for _, e := range scene.Entities() {
		if e.Parent == ecs.NoEntity {
			visit(e, 0)
		}
	}

	if eb.cache.sortColumn != 0 || !eb.cache.sortAscending {
		eb.sortEntities()
	}
}

func (eb *EntityBrowser) refreshState(scene *ecs.Scene) {
	for i := range eb.cache.entities {
		info := &eb.cache.entities[i]
		if e, ok := scene.Entity(info.ID); ok {
			info.Enabled = e.Enabled
			info.Material = e.Material
		}
	}
}

// sortEntities orders rows by the selected column. Column 0 in ascending order keeps the
// tree order built by rebuildCache.
func (eb *EntityBrowser) sortEntities() {
	less := func(a, b EntityInfo) bool {
		switch eb.cache.sortColumn {
		case 1:
			return a.Parent < b.Parent
		case 2:
			return a.Material < b.Material
		case 3:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case 4:
			return a.ComponentCount < b.ComponentCount
		default:
			return a.ID < b.ID
		}
	}

	sort.SliceStable(eb.cache.entities, func(i, j int) bool {
		a, b := eb.cache.entities[i], eb.cache.entities[j]
		if !eb.cache.sortAscending {
			return less(b, a)
		}
		return less(a, b)
	})
}

func (eb *EntityBrowser) filteredEntities() []EntityInfo {
	if eb.filterText == "" && eb.showDisabled {
		return eb.cache.entities
	}

	filtered := make([]EntityInfo, 0, len(eb.cache.entities))
	filterLower := strings.ToLower(eb.filterText)

	for _, entity := range eb.cache.entities {
		if !eb.showDisabled && !entity.Enabled {
			continue
		}

		if eb.filterText != "" {
			idStr := fmt.Sprintf("%d", entity.ID)
			componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))

			if !strings.Contains(idStr, filterLower) &&
				!strings.Contains(componentsStr, filterLower) {
				continue
			}
		}

		filtered = append(filtered, entity)
	}

	return filtered
}

func (eb *EntityBrowser) SelectedEntity() ecs.EntityId {
	return eb.selectedEntityId
}
