package landrules

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// classifyFunc is the global function a land script must define. It gets
// the tags of a way and returns nil or a table with the boolean fields land,
// ignore_sea_land, bridge, tunnel, embankment and area.
const classifyFunc = "classify_way"

// LuaClassifier runs a Lua script per way. Calls are serialized.
type LuaClassifier struct {
	mu sync.Mutex
	L  *lua.LState
	fn lua.LValue
}

func newLuaClassifier(load func(*lua.LState) error) (*LuaClassifier, error) {
	L := lua.NewState()
	if err := load(L); err != nil {
		L.Close()
		return nil, err
	}

	fn := L.GetGlobal(classifyFunc)
	if fn.Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("land script does not define %s", classifyFunc)
	}
	return &LuaClassifier{L: L, fn: fn}, nil
}

// LoadLua loads a land script file.
func LoadLua(path string) (*LuaClassifier, error) {
	return newLuaClassifier(func(L *lua.LState) error {
		if err := L.DoFile(path); err != nil {
			return fmt.Errorf("failed to load Lua file: %w", err)
		}
		return nil
	})
}

// LoadLuaString loads a land script from code.
func LoadLuaString(code string) (*LuaClassifier, error) {
	return newLuaClassifier(func(L *lua.LState) error {
		if err := L.DoString(code); err != nil {
			return fmt.Errorf("failed to load Lua code: %w", err)
		}
		return nil
	})
}

// Close releases the Lua state.
func (c *LuaClassifier) Close() {
	c.L.Close()
}

func (c *LuaClassifier) Classify(tags map[string]string) (Flags, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	L := c.L
	tbl := L.NewTable()
	for k, v := range tags {
		tbl.RawSetString(k, lua.LString(v))
	}

	if err := L.CallByParam(lua.P{
		Fn:      c.fn,
		NRet:    1,
		Protect: true,
	}, tbl); err != nil {
		return Flags{}, fmt.Errorf("lua callback error: %w", err)
	}

	ret := L.Get(-1)
	L.Pop(1)

	result, ok := ret.(*lua.LTable)
	if !ok {
		return Flags{}, nil
	}

	flag := func(name string) bool {
		return lua.LVAsBool(result.RawGetString(name))
	}
	return Flags{
		Land:          flag("land"),
		IgnoreSeaLand: flag("ignore_sea_land"),
		Bridge:        flag("bridge"),
		Tunnel:        flag("tunnel"),
		Embankment:    flag("embankment"),
		Area:          flag("area"),
	}, nil
}
