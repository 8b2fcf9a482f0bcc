package script

import (
	"encoding/json"
	"net"
	"regexp"

	gluajson "layeh.com/gopher-json"

	gluaurl "github.com/cjoudrey/gluaurl"
	lua "github.com/yuin/gopher-lua"

	"github.com/corvidrecon/corvid/internal/asset"
	"github.com/corvidrecon/corvid/internal/isolation"
)

// registerBindings installs the closed set of host functions as Lua
// globals, each closing over st and (for the network-facing ones) r's
// collaborators. Grounded on original_source/src/runtime/*.rs, one
// binding file per concern there.
func (r *Runner) registerBindings(L *lua.LState, st *state) {
	L.PreloadModule("json", gluajson.Loader)
	L.PreloadModule("url", gluaurl.Loader)

	L.SetGlobal("db_add", L.NewFunction(r.bindDBAdd(st)))
	L.SetGlobal("geoip_lookup", L.NewFunction(r.bindGeoIPLookup(st)))
	L.SetGlobal("dns", L.NewFunction(r.bindDNS(st)))
	L.SetGlobal("http_get", L.NewFunction(r.bindHTTPGet(st)))
	L.SetGlobal("regex_find", L.NewFunction(bindRegexFind))
	L.SetGlobal("print", L.NewFunction(bindPrint(st)))
	L.SetGlobal("log", L.NewFunction(bindLog(st)))
	L.SetGlobal("stdin_readline", L.NewFunction(bindStdinReadline(st)))
}

// bindDBAdd implements db_add(kind, fields): builds the corresponding
// asset.Object, sends it as an Object event, and returns the new id (or
// raises a Lua error carrying the parent's rejection reason).
func (r *Runner) bindDBAdd(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		kind := L.CheckString(1)
		fields := L.CheckTable(2)

		obj, err := objectFromTable(kind, fields)
		if err != nil {
			L.RaiseError("db_add: %s", err)
			return 0
		}
		if err := obj.Validate(); err != nil {
			L.RaiseError("db_add: %s", err)
			return 0
		}

		reply, err := st.sendObject(isolation.ObjectEvent(obj))
		if err != nil {
			L.RaiseError("db_add: %s", st.setError(err))
			return 0
		}
		if !reply.OK {
			st.setError(errReplyMessage(reply.Message))
			L.RaiseError("db_add: %s", reply.Message)
			return 0
		}

		L.Push(lua.LNumber(reply.ID))
		return 1
	}
}

func objectFromTable(kind string, t *lua.LTable) (asset.Object, error) {
	raw := luaTableToJSON(t)

	switch kind {
	case "subdomain":
		var v asset.SubdomainObject
		if err := json.Unmarshal(raw, &v); err != nil {
			return asset.Object{}, err
		}
		return asset.Object{Kind: asset.KindSubdomain, Subdomain: &v}, nil
	case "ip_addr":
		var v asset.IpAddrObject
		if err := json.Unmarshal(raw, &v); err != nil {
			return asset.Object{}, err
		}
		return asset.Object{Kind: asset.KindIpAddr, IpAddr: &v}, nil
	case "subdomain_ip_addr":
		var v asset.SubdomainIpAddrObject
		if err := json.Unmarshal(raw, &v); err != nil {
			return asset.Object{}, err
		}
		return asset.Object{Kind: asset.KindSubdomainIpAddr, SubdomainIpAddr: &v}, nil
	default:
		return asset.Object{}, errUnknownObjectKind(kind)
	}
}

type errUnknownObjectKind string

func (e errUnknownObjectKind) Error() string {
	return "unknown object kind " + string(e)
}

// errReplyMessage wraps a rejected db_add reply's message as an error so
// it can be latched into per-execution error state alongside host I/O
// failures.
type errReplyMessage string

func (e errReplyMessage) Error() string { return string(e) }

// luaTableToJSON re-encodes a Lua table as JSON via gopher-json's
// encoder, so field decoding can reuse the asset package's existing json
// tags instead of a second hand-written table walker.
func luaTableToJSON(t *lua.LTable) json.RawMessage {
	data, err := gluajson.Encode(t)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

func (r *Runner) bindGeoIPLookup(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		addr := L.CheckString(1)
		ip := net.ParseIP(addr)
		if ip == nil {
			L.RaiseError("geoip_lookup: invalid ip address %q", addr)
			return 0
		}
		if r.Resolver == nil {
			L.RaiseError("geoip_lookup: no geoip database configured")
			return 0
		}

		result, err := r.Resolver.Lookup(ip)
		if err != nil {
			L.RaiseError("geoip_lookup: %s", st.setError(err))
			return 0
		}

		data, err := json.Marshal(result)
		if err != nil {
			L.RaiseError("geoip_lookup: %s", err)
			return 0
		}
		value, err := gluajson.Decode(L, data)
		if err != nil {
			L.RaiseError("geoip_lookup: %s", err)
			return 0
		}
		L.Push(value)
		return 1
	}
}

func (r *Runner) bindDNS(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		name := L.CheckString(1)
		qtype := L.CheckString(2)
		if r.DNS == nil {
			L.RaiseError("dns: no resolver configured")
			return 0
		}

		answers, err := r.DNS.Lookup(name, qtype)
		if err != nil {
			L.RaiseError("dns: %s", st.setError(err))
			return 0
		}

		tbl := L.NewTable()
		for i, a := range answers {
			tbl.RawSetInt(i+1, lua.LString(a))
		}
		L.Push(tbl)
		return 1
	}
}

func (r *Runner) bindHTTPGet(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		url := L.CheckString(1)
		if r.HTTP == nil {
			L.RaiseError("http_get: no http client configured")
			return 0
		}

		resp, err := r.HTTP.Get(url)
		if err != nil {
			L.RaiseError("http_get: %s", st.setError(err))
			return 0
		}

		tbl := L.NewTable()
		tbl.RawSetString("status_code", lua.LNumber(resp.StatusCode))
		tbl.RawSetString("body", lua.LString(resp.Body))
		L.Push(tbl)
		return 1
	}
}

// bindRegexFind implements regex_find(pattern, text), returning the
// first match or nil. The regex concern has no equivalent third-party
// dependency in the retrieval pack; regexp is the standard library's own
// well-established answer and every pack repo that needs regex (e.g.
// internal/config's db-name check) reaches for it the same way, so
// this one binding is a deliberate stdlib choice — see DESIGN.md.
func bindRegexFind(L *lua.LState) int {
	pattern := L.CheckString(1)
	text := L.CheckString(2)

	re, err := regexp.Compile(pattern)
	if err != nil {
		L.RaiseError("regex_find: invalid pattern: %s", err)
		return 0
	}

	match := re.FindString(text)
	if match == "" && !re.MatchString(text) {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(match))
	return 1
}

func bindPrint(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		_ = st.send(isolation.InfoEvent(joinSpace(parts)))
		return 0
	}
}

func bindLog(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		_ = st.send(isolation.LogEvent(msg))
		return 0
	}
}

// bindStdinReadline implements stdin_readline(): it blocks for a line
// forwarded from the parent's own stdin, returning nil once the parent
// has none left to supply.
func bindStdinReadline(st *state) lua.LGFunction {
	return func(L *lua.LState) int {
		line, err := st.readLine()
		if err != nil {
			L.RaiseError("stdin_readline: %s", st.setError(err))
			return 0
		}
		if !line.Present {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(line.Value))
		return 1
	}
}

func joinSpace(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += " "
		}
		out += p
	}
	return out
}
