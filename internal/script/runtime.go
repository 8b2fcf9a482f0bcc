// Package script is the Script Runtime: it loads a module's Lua body into
// an embedded interpreter and exposes a closed set of host bindings to
// it. Grounded on original_source/src/engine/ctx.rs's Script/State split
// and original_source/src/runtime/*.rs's per-binding files, using
// yuin/gopher-lua as the interpreter — the teacher repo has no embedded
// scripting layer, so this package is enriched wholesale from the rest
// of the retrieval pack.
package script

import (
	"encoding/json"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/corvidrecon/corvid/internal/geoip"
	"github.com/corvidrecon/corvid/internal/isolation"
	"github.com/corvidrecon/corvid/internal/netutil"
	"github.com/corvidrecon/corvid/internal/registry"
)

// Runner is the concrete isolation.ScriptRunner: it compiles and executes
// a module's Lua body against a Reporter.
type Runner struct {
	Resolver *geoip.Resolver
	DNS      *netutil.Resolver
	HTTP     *netutil.Client
}

// New builds a Runner with the given external collaborators. Any may be
// nil, in which case the corresponding binding reports an error when
// called rather than panicking.
func New(resolver *geoip.Resolver, dns *netutil.Resolver, http *netutil.Client) *Runner {
	return &Runner{Resolver: resolver, DNS: dns, HTTP: http}
}

// Run implements isolation.ScriptRunner: it loads mod's body, calls its
// run(arg) entry point, and streams Object/Info/Log events to reporter.
func (r *Runner) Run(reporter isolation.Reporter, mod *registry.Module, arg json.RawMessage) error {
	st := newState(reporter)

	L := lua.NewState(lua.Options{SkipOpenLibs: false})
	defer L.Close()

	r.registerBindings(L, st)

	if err := L.DoString(mod.ScriptBody); err != nil {
		return fmt.Errorf("script: failed to load %s: %w", mod.Canonical(), err)
	}

	fn := L.GetGlobal("run")
	if fn.Type() != lua.LTFunction {
		return fmt.Errorf("script: %s does not define a run function", mod.Canonical())
	}

	argTable, err := decodeArgTable(L, arg)
	if err != nil {
		return fmt.Errorf("script: failed to decode argument: %w", err)
	}

	if err := L.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, argTable); err != nil {
		if st.latched != nil {
			return st.latched
		}
		return fmt.Errorf("script: %s: %w", mod.Canonical(), err)
	}

	if st.latched != nil {
		return st.latched
	}
	return nil
}

// decodeArgTable turns the JSON argument object the orchestrator passed
// in into a Lua table, matching start.arg.into() in
// original_source/src/engine/isolation.rs's run_worker.
func decodeArgTable(L *lua.LState, arg json.RawMessage) (lua.LValue, error) {
	if len(arg) == 0 {
		return L.NewTable(), nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(arg, &m); err != nil {
		return nil, err
	}
	return toLuaValue(L, m), nil
}

func toLuaValue(L *lua.LState, v interface{}) lua.LValue {
	switch vv := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(vv)
	case float64:
		return lua.LNumber(vv)
	case string:
		return lua.LString(vv)
	case []interface{}:
		tbl := L.NewTable()
		for i, item := range vv {
			tbl.RawSetInt(i+1, toLuaValue(L, item))
		}
		return tbl
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, item := range vv {
			tbl.RawSetString(k, toLuaValue(L, item))
		}
		return tbl
	default:
		return lua.LNil
	}
}
