package sandbox

import (
	"fmt"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// maxTableDepth bounds table conversion so cyclic tables cannot recurse
// forever when harvested back into Go values.
const maxTableDepth = 8

// removedGlobals are base-library entries stripped from every interpreter
// state. The static checker already rejects them; removing them as well
// means a checker miss still cannot reach them.
var removedGlobals = []string{
	"require", "dofile", "loadfile", "load", "loadstring",
	"getfenv", "setfenv", "rawget", "rawset", "rawequal",
	"getmetatable", "setmetatable", "collectgarbage",
	"module", "newproxy", "package", "io", "os", "debug", "coroutine",
}

// Exec runs an action snippet against a seed of variables and returns the
// resulting user globals. Every evaluation gets a fresh interpreter
// state, so nothing leaks between snippets except through the returned
// map. Output of the snippet's print calls is routed through emit.
func Exec(code string, vars map[string]any, emit func(string)) (map[string]any, error) {
	ls, baseline, err := newState(emit)
	if err != nil {
		return nil, err
	}
	defer ls.Close()

	for name, value := range vars {
		ls.SetGlobal(name, toLua(ls, value))
	}
	if err := ls.DoString(code); err != nil {
		return nil, fmt.Errorf("evaluation failed: %w", err)
	}

	out := make(map[string]any)
	ls.G.Global.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if _, builtin := baseline[string(name)]; builtin {
			// Seeded names are harvested even when they shadow a builtin.
			if _, seeded := vars[string(name)]; !seeded {
				return
			}
		}
		if v.Type() == lua.LTFunction {
			return
		}
		if value, ok := fromLua(v, 0); ok {
			out[string(name)] = value
		}
	})
	return out, nil
}

// Eval evaluates a condition snippet as a single expression against a
// snapshot of the variables and returns its truthiness. The snapshot is
// copied into the interpreter; the caller's map is never written, so a
// condition cannot mutate machine state.
func Eval(code string, vars map[string]any, emit func(string)) (bool, error) {
	ls, _, err := newState(emit)
	if err != nil {
		return false, err
	}
	defer ls.Close()

	for name, value := range vars {
		ls.SetGlobal(name, toLua(ls, value))
	}
	if err := ls.DoString("return (\n" + code + "\n)"); err != nil {
		return false, fmt.Errorf("evaluation failed: %w", err)
	}
	return lua.LVAsBool(ls.Get(-1)), nil
}

// newState builds a restricted interpreter: selected libraries only, the
// dangerous base globals removed, and print rebound to emit. It returns
// the set of global names present before any user variable is seeded.
func newState(emit func(string)) (*lua.LState, map[string]struct{}, error) {
	ls := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage}, // must precede OpenBase
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := ls.CallByParam(lua.P{
			Fn:      ls.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			ls.Close()
			return nil, nil, fmt.Errorf("opening %s library: %w", lib.name, err)
		}
	}
	for _, name := range removedGlobals {
		ls.SetGlobal(name, lua.LNil)
	}
	ls.SetGlobal("print", ls.NewFunction(printTo(emit)))

	baseline := make(map[string]struct{})
	ls.G.Global.ForEach(func(k, _ lua.LValue) {
		if name, ok := k.(lua.LString); ok {
			baseline[string(name)] = struct{}{}
		}
	})
	return ls, baseline, nil
}

func printTo(emit func(string)) lua.LGFunction {
	return func(L *lua.LState) int {
		top := L.GetTop()
		parts := make([]string, 0, top)
		for i := 1; i <= top; i++ {
			parts = append(parts, L.Get(i).String())
		}
		if emit != nil {
			emit(strings.Join(parts, "\t"))
		}
		return 0
	}
}

func toLua(ls *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []any:
		tbl := ls.NewTable()
		for _, item := range x {
			tbl.Append(toLua(ls, item))
		}
		return tbl
	case map[string]any:
		tbl := ls.NewTable()
		for key, item := range x {
			tbl.RawSetString(key, toLua(ls, item))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", x))
	}
}

func fromLua(v lua.LValue, depth int) (any, bool) {
	if depth > maxTableDepth {
		return nil, false
	}
	switch x := v.(type) {
	case *lua.LNilType:
		return nil, true
	case lua.LBool:
		return bool(x), true
	case lua.LNumber:
		return float64(x), true
	case lua.LString:
		return string(x), true
	case *lua.LTable:
		if n := x.MaxN(); n > 0 {
			arr := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				if item, ok := fromLua(x.RawGetInt(i), depth+1); ok {
					arr = append(arr, item)
				}
			}
			return arr, true
		}
		m := make(map[string]any)
		x.ForEach(func(k, value lua.LValue) {
			key, ok := k.(lua.LString)
			if !ok {
				return
			}
			if item, ok := fromLua(value, depth+1); ok {
				m[string(key)] = item
			}
		})
		return m, true
	default:
		return nil, false
	}
}
