package fqn

import "testing"

func TestCompute(t *testing.T) {
	tests := []struct {
		rel, name, want string
	}{
		{"cmd/server/main.go", "HandleRequest", "proj.cmd.server.main.HandleRequest"},
		{"pkg/service.py", "Order.save", "proj.pkg.service.Order.save"},
		{"pkg/__init__.py", "setup", "proj.pkg.setup"},
		{"web/components/index.ts", "App", "proj.web.components.App"},
		{"index.js", "", "proj.index"},
		{"src/lib/mod.rs", "", "proj.src.lib"},
	}
	for _, tt := range tests {
		if got := Compute("proj", tt.rel, tt.name); got != tt.want {
			t.Errorf("Compute(%q, %q) = %q, want %q", tt.rel, tt.name, got, tt.want)
		}
	}
}

func TestModuleAndFolder(t *testing.T) {
	if got := Module("pkg/sub/util.py"); got != "pkg.sub.util" {
		t.Errorf("Module = %q", got)
	}
	if got := FolderQN("proj", "pkg/sub"); got != "proj.pkg.sub" {
		t.Errorf("FolderQN = %q", got)
	}
	if got := FolderQN("proj", "."); got != "proj" {
		t.Errorf("FolderQN(root) = %q", got)
	}
}
