package waypointconv

import (
	"fmt"
	"log"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// FilterExpr keeps only the waypoints for which the Lua guard expression expr evaluates to true.
// An empty expression keeps everything.
//
// The expression sees the globals id, x and y (pixel coordinates), width and height (the image
// extent) and scene. For example: x < width / 2 and id ~= "exit".
func (data WaypointSets) FilterExpr(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}

	L := lua.NewState()
	defer L.Close()

	chunk := expr
	if !strings.HasPrefix(strings.TrimSpace(expr), "return") {
		chunk = "return " + expr
	}
	fn, err := L.LoadString(chunk)
	if err != nil {
		return fmt.Errorf("invalid filter expression %q: %v", expr, err)
	}

	removed := 0
	for i := range data {
		s := &data[i]
		L.SetGlobal("scene", lua.LString(s.SceneID))
		L.SetGlobal("width", lua.LNumber(s.Width))
		L.SetGlobal("height", lua.LNumber(s.Height))

		waypoints := s.Waypoints[:0]
		for _, w := range s.Waypoints {
			keep, err := evalGuard(L, fn, w)
			if err != nil {
				return fmt.Errorf("failed to evaluate filter expression %q for %q: %v", expr, w.ID, err)
			}
			if keep {
				waypoints = append(waypoints, w)
			} else {
				removed++
			}
		}
		s.Waypoints = waypoints
	}

	log.Printf("The filter expression removed %d waypoints", removed)
	return nil
}

// evalGuard calls the compiled guard fn with the globals of waypoint w and returns its boolean
// result.
func evalGuard(L *lua.LState, fn *lua.LFunction, w Waypoint) (bool, error) {
	L.SetGlobal("id", lua.LString(w.ID))
	L.SetGlobal("x", lua.LNumber(w.Coords.X))
	L.SetGlobal("y", lua.LNumber(w.Coords.Y))

	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return false, err
	}
	result := L.Get(-1)
	L.Pop(1)

	b, ok := result.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("expression did not return a boolean value, got %s", result.Type())
	}
	return bool(b), nil
}
