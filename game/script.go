package game

import (
	"fmt"
	"log"

	lua "github.com/yuin/gopher-lua"
)

// CueError is emitted when a script fails at runtime
const CueError = "error"

// DefaultScript beats on every game second and never quits on its own
const DefaultScript = `
local next_beat = 1000
function cycle(delta_ms, frame)
  if elapsed() >= next_beat then
    emit("beat")
    next_beat = next_beat + 1000
  end
  return true
end
`

// Script is a game state whose logic lives in a Lua chunk
//
// The chunk may define a global cycle(delta_ms, frame); returning false
// requests shutdown, returning nothing continues. A runtime error emits
// the error cue and stops. Host functions: emit(cue), switch(tag),
// elapsed() -> game clock milliseconds, keys() -> array of key names
// published this cycle.
type Script struct {
	tag    string
	source string
	L      *lua.LState
	ctx    *Context
}

// ScriptFactory returns a registry factory running source under tag
func ScriptFactory(tag, source string) Factory {
	return func() (State, error) {
		if source == "" {
			return nil, fmt.Errorf("empty script")
		}
		return &Script{tag: tag, source: source}, nil
	}
}

func (s *Script) Name() string { return s.tag }

func (s *Script) Enter(ctx *Context) error {
	s.ctx = ctx
	s.L = lua.NewState()

	s.L.SetGlobal("emit", s.L.NewFunction(s.luaEmit))
	s.L.SetGlobal("switch", s.L.NewFunction(s.luaSwitch))
	s.L.SetGlobal("elapsed", s.L.NewFunction(s.luaElapsed))
	s.L.SetGlobal("keys", s.L.NewFunction(s.luaKeys))

	if err := s.L.DoString(s.source); err != nil {
		s.L.Close()
		s.L = nil
		return fmt.Errorf("load script: %w", err)
	}
	return nil
}

func (s *Script) Cycle(ctx *Context) bool {
	fn := s.L.GetGlobal("cycle")
	if fn == lua.LNil {
		return true
	}

	err := s.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		lua.LNumber(ctx.Delta.Milliseconds()), lua.LNumber(ctx.Frame))
	if err != nil {
		log.Printf("[game] script %s: %v", s.tag, err)
		ctx.Emit(CueError)
		return false
	}

	ret := s.L.Get(-1)
	s.L.Pop(1)
	return ret != lua.LFalse
}

func (s *Script) Exit(ctx *Context) {
	if s.L != nil {
		s.L.Close()
		s.L = nil
	}
}

func (s *Script) luaEmit(L *lua.LState) int {
	L.Push(lua.LBool(s.ctx.Emit(L.CheckString(1))))
	return 1
}

func (s *Script) luaSwitch(L *lua.LState) int {
	if err := s.ctx.Switch(L.CheckString(1)); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

func (s *Script) luaElapsed(L *lua.LState) int {
	L.Push(lua.LNumber(s.ctx.Clock.Elapsed().Milliseconds()))
	return 1
}

func (s *Script) luaKeys(L *lua.LState) int {
	keys := s.ctx.Keys()
	tbl := L.CreateTable(len(keys), 0)
	for _, k := range keys {
		tbl.Append(lua.LString(k))
	}
	L.Push(tbl)
	return 1
}
