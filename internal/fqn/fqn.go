// Package fqn derives dotted, project-qualified names from root-relative
// paths.
package fqn

import (
	"path"
	"strings"
)

// packageStems are file stems that name their directory rather than a
// module of their own.
var packageStems = map[string]bool{"__init__": true, "index": true, "mod": true}

// modulePartsOf splits a root-relative file path into module segments.
func modulePartsOf(relPath string) []string {
	relPath = strings.TrimSuffix(relPath, path.Ext(relPath))
	if relPath == "" || relPath == "." {
		return nil
	}
	parts := strings.Split(relPath, "/")
	if len(parts) > 1 && packageStems[parts[len(parts)-1]] {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Module returns the dotted module name of a file, e.g. "pkg.service" for
// "pkg/service.py" or "pkg" for "pkg/__init__.py".
func Module(relPath string) string {
	return strings.Join(modulePartsOf(relPath), ".")
}

// Compute returns <project>.<module>.<name>. name may itself be dotted,
// e.g. "Order.save".
//   - myproject.cmd.server.main.HandleRequest
//   - myproject.pkg.service.ProcessOrder
func Compute(project, relPath, name string) string {
	all := append([]string{project}, modulePartsOf(relPath)...)
	if name != "" {
		all = append(all, name)
	}
	return strings.Join(all, ".")
}

// FolderQN returns the qualified name for a folder.
func FolderQN(project, relDir string) string {
	if relDir == "" || relDir == "." {
		return project
	}
	return project + "." + strings.ReplaceAll(relDir, "/", ".")
}
