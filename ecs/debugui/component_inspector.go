package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/scenery/ecs"
)

func NewComponentInspector() *ComponentInspector {
	return &ComponentInspector{}
}

// Render draws the selected entity's components. It runs inside a deferred action, so edits
// are applied to the live components directly.
func (ci *ComponentInspector) Render(scene *ecs.Scene, selectedEntityId ecs.EntityId) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	ci.selectedEntityId = selectedEntityId

	if ci.selectedEntityId == ecs.NoEntity {
		imgui.Text("No entity selected")
		imgui.End()
		return
	}

	entity, ok := scene.Entity(ci.selectedEntityId)
	if !ok {
		imgui.Text(fmt.Sprintf("Entity %d not found", ci.selectedEntityId))
		imgui.End()
		return
	}

	imgui.Text(fmt.Sprintf("Entity ID: %d", entity.Id))
	imgui.Text(fmt.Sprintf("Depth: %d, Children: %d", scene.EntityDepth(entity.Id), len(entity.Children)))

	actions := ecs.NewActionQueue()
	enabled := entity.Enabled
	if imgui.Checkbox("Entity enabled", &enabled) {
		actions.SetEntityEnabled(entity.Id, enabled)
	}
	if mat, ok := scene.Material(entity.Material); ok {
		imgui.Text(fmt.Sprintf("Material: %d (%s)", mat.Id, mat.Pipeline))
	}
	imgui.Separator()

	for _, c := range scene.EntityComponents(entity.Id) {
		label := fmt.Sprintf("%T #%d", c, c.Id())
		if imgui.TreeNodeStr(label) {
			on := c.Enabled()
			if imgui.Checkbox(fmt.Sprintf("Enabled##%d", c.Id()), &on) {
				actions.SetComponentEnabled(c.Id(), on)
			}
			imgui.Text(fmt.Sprintf("Render order: %d", c.RenderOrder()))
			if n := scene.WorkloadOutputs(c.Id()).Len(); n > 0 {
				imgui.Text(fmt.Sprintf("Pending outputs: %d", n))
			}
			ci.renderComponent(c)
			imgui.TreePop()
		}
	}

	scene.ExecuteActionQueue(actions)
	imgui.End()
}

func (ci *ComponentInspector) renderComponent(component ecs.Component) {
	val := reflect.ValueOf(component)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		imgui.Text(fmt.Sprintf("%v", component))
		return
	}

	for _, field := range globalReflectionCache.GetFields(val.Type()) {
		fieldVal := val.FieldByIndex(field.Index)
		if field.IsPointer && !fieldVal.IsNil() {
			fieldVal = fieldVal.Elem()
		}

		ci.renderField(fmt.Sprintf("%d.%s", component.Id(), field.Name), field.Name, fieldVal, field, 0)
	}
}

// maxInspectDepth bounds nested struct expansion so pointer cycles terminate.
const maxInspectDepth = 4

// renderField draws one field. id is the ImGui widget id, which must be unique per window.
func (ci *ComponentInspector) renderField(id, name string, val reflect.Value, field FieldInfo, depth int) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	if field.IsPointer && val.Kind() == reflect.Ptr && val.IsNil() {
		imgui.Text(fmt.Sprintf("%s: nil", name))
		return
	}

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int32(val.Int())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", id), &v) && val.CanSet() {
			val.SetInt(int64(v))
		}

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(val.Uint())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(fmt.Sprintf("##%s", id), &v) && v >= 0 && val.CanSet() {
			val.SetUint(uint64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(fmt.Sprintf("##%s", id), &v) && val.CanSet() {
			val.SetFloat(float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(fmt.Sprintf("%s##%s", name, id), &v) && val.CanSet() {
			val.SetBool(v)
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(fmt.Sprintf("##%s", id), "", &v, imgui.InputTextFlagsNone, nil) && val.CanSet() {
			val.SetString(v)
		}

	case reflect.Array:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))

	case reflect.Struct:
		if depth >= maxInspectDepth {
			imgui.Text(fmt.Sprintf("%s: %s", name, val.Type()))
			return
		}
		if imgui.TreeNodeStr(fmt.Sprintf("%s##%s", name, id)) {
			for _, nf := range globalReflectionCache.GetFields(val.Type()) {
				nestedVal := val.FieldByIndex(nf.Index)
				if nf.IsPointer && !nestedVal.IsNil() {
					nestedVal = nestedVal.Elem()
				}
				ci.renderField(id+"."+nf.Name, nf.Name, nestedVal, nf, depth+1)
			}
			imgui.TreePop()
		}

	case reflect.Slice:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	case reflect.Func, reflect.Chan, reflect.Interface:
		imgui.Text(fmt.Sprintf("%s: %s", name, val.Type()))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val.Interface()))
	}
}
