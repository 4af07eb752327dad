package scripting

import (
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/partydamage/internal/game/report"
)

// HookName is the Lua global a report script must define.
const HookName = "format_line"

// LineScript is a report.LineHook backed by a Lua script.
//
// The script's format_line(line) receives a table with the fields rank,
// percent, primary, secondary, name, damage and default. A non-empty string
// result replaces the line; nil keeps the default. Other results keep the
// default too and are logged at Warn level, as are runtime errors and
// exhausted opcode budgets.
//
// LineScript is safe for concurrent use.
type LineScript struct {
	mu     sync.Mutex
	state  *lua.LState
	name   string
	limit  int
	logger *zap.Logger
}

var _ report.LineHook = (*LineScript)(nil)

// LoadLineScript loads the script at path into a new sandbox.
//
// Precondition: logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a LineScript whose format_line is defined, or a non-nil error.
func LoadLineScript(path string, instLimit int, logger *zap.Logger) (*LineScript, error) {
	return load(path, instLimit, logger, func(L *lua.LState) error { return L.DoFile(path) })
}

// NewLineScript compiles src under the given chunk name.
//
// Precondition: logger must be non-nil; instLimit >= 0.
// Postcondition: Returns a LineScript whose format_line is defined, or a non-nil error.
func NewLineScript(name, src string, instLimit int, logger *zap.Logger) (*LineScript, error) {
	return load(name, instLimit, logger, func(L *lua.LState) error {
		fn, err := L.LoadString(src)
		if err != nil {
			return err
		}
		L.Push(fn)
		return L.PCall(0, lua.MultRet, nil)
	})
}

func load(name string, instLimit int, logger *zap.Logger, run func(*lua.LState) error) (*LineScript, error) {
	L := NewSandboxedState(instLimit)
	if err := run(L); err != nil {
		L.Close()
		return nil, fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	if L.GetGlobal(HookName).Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("scripting: %q does not define %s", name, HookName)
	}
	return &LineScript{state: L, name: name, limit: instLimit, logger: logger}, nil
}

// FormatLine implements report.LineHook.
func (s *LineScript) FormatLine(l report.Line) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	Rearm(s.state, s.limit)
	if err := s.state.CallByParam(lua.P{
		Fn:      s.state.GetGlobal(HookName),
		NRet:    1,
		Protect: true,
	}, s.lineTable(l)); err != nil {
		s.logger.Warn("scripting: report hook failed",
			zap.String("script", s.name),
			zap.Int("rank", l.Rank),
			zap.Error(err),
		)
		return "", false
	}

	ret := s.state.Get(-1)
	s.state.Pop(1)
	switch v := ret.(type) {
	case lua.LString:
		if v == "" {
			return "", false
		}
		return string(v), true
	case *lua.LNilType:
		return "", false
	default:
		s.logger.Warn("scripting: report hook returned a non-string",
			zap.String("script", s.name),
			zap.String("type", ret.Type().String()),
		)
		return "", false
	}
}

// Close releases the Lua state.
func (s *LineScript) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

func (s *LineScript) lineTable(l report.Line) *lua.LTable {
	t := s.state.NewTable()
	t.RawSetString("rank", lua.LNumber(l.Rank))
	t.RawSetString("percent", lua.LNumber(l.Percent))
	t.RawSetString("primary", lua.LString(l.Primary))
	t.RawSetString("secondary", lua.LString(l.Secondary))
	t.RawSetString("name", lua.LString(l.Name))
	t.RawSetString("damage", lua.LNumber(l.Damage))
	t.RawSetString("default", lua.LString(l.String()))
	return t
}
