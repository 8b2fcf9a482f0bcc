package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleModule = `-- Description: Looks up subdomains for a domain
-- Version: 0.1.0
-- Argument: domain: string

function run(arg)
    db_add("subdomain", {domain_id = 1, value = "www." .. arg.domain})
end
`

func writeModule(t *testing.T, root, author, name, body string) {
	t.Helper()
	dir := filepath.Join(root, author)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+ScriptExt), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRegistryGetListVariants(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "kpcyrd", "subdomain-bruteforce", sampleModule)
	writeModule(t, root, "another-author", "subdomain-bruteforce", sampleModule)
	writeModule(t, root, "kpcyrd", "ctlogs", sampleModule)

	reg, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Unique long form resolves.
	mod, err := reg.Get("kpcyrd/ctlogs")
	if err != nil {
		t.Fatalf("Get(long): %v", err)
	}
	if mod.Description != "Looks up subdomains for a domain" {
		t.Fatalf("unexpected description: %q", mod.Description)
	}
	if mod.Version != "0.1.0" {
		t.Fatalf("unexpected version: %q", mod.Version)
	}
	if len(mod.Argument.Fields) != 1 || mod.Argument.Fields[0].Name != "domain" {
		t.Fatalf("unexpected argument fields: %+v", mod.Argument.Fields)
	}

	// Short name colliding across two authors is ambiguous.
	_, err = reg.Get("subdomain-bruteforce")
	if err == nil {
		t.Fatal("expected AmbiguousModuleError")
	}
	if _, ok := err.(*AmbiguousModuleError); !ok {
		t.Fatalf("expected *AmbiguousModuleError, got %T", err)
	}

	// Short name with one author is unambiguous.
	mod, err = reg.Get("ctlogs")
	if err != nil {
		t.Fatalf("Get(short, unique): %v", err)
	}
	if mod.Canonical() != "kpcyrd/ctlogs" {
		t.Fatalf("unexpected canonical: %s", mod.Canonical())
	}

	// List enumerates every unique module exactly once, via the long keys.
	list := reg.List()
	if len(list) != 3 {
		t.Fatalf("want 3 modules, got %d", len(list))
	}

	variants := reg.Variants()
	foundUnambiguous := false
	for _, v := range variants {
		if v == "ctlogs" {
			foundUnambiguous = true
		}
		if v == "subdomain-bruteforce" {
			t.Fatalf("ambiguous short name %q must not appear in Variants()", v)
		}
	}
	if !foundUnambiguous {
		t.Fatal("expected \"ctlogs\" among variants")
	}
}

func TestRegistryReloadAtomicOnFailure(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "kpcyrd", "good", sampleModule)

	reg, err := New(root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	before := len(reg.List())

	// Make one "module file" actually a directory so loadModule's
	// os.ReadFile fails, forcing the whole reload to fail.
	badPath := filepath.Join(root, "kpcyrd", "broken"+ScriptExt)
	if err := os.MkdirAll(badPath, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := reg.Reload(); err == nil {
		t.Fatal("expected Reload to fail when a module path is a directory")
	}

	if after := len(reg.List()); after != before {
		t.Fatalf("registry must be unchanged after a failed reload: before=%d after=%d", before, after)
	}
}
