package graph

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

const keySep = "\x00"

// NodeID derives a stable id from the label and its qualifying key parts.
func NodeID(label NodeLabel, parts ...string) string {
	return label.String() + ":" + digest(label.String(), parts)
}

// RelID derives a stable id for a (type, source, target) triple, so a
// repeated edge collapses onto the existing one.
func RelID(t RelType, source, target string) string {
	return t.String() + ":" + digest(t.String(), []string{source, target})
}

// ProjectID, FolderID and FileID are the structural keys.
func ProjectID(name string) string { return NodeID(Project, name) }
func FolderID(path string) string  { return NodeID(Folder, path) }
func FileID(path string) string    { return NodeID(File, path) }

// DefinitionID keys a definition by owning file and in-file qualified name.
func DefinitionID(label NodeLabel, filePath, qualifiedName string) string {
	return NodeID(label, filePath, qualifiedName)
}

// BuiltinID is shared by every caller of the same builtin name.
func BuiltinID(name string) string {
	return NodeID(Function, SynthBuiltin, name)
}

// ImportedID anchors an unresolved symbol imported from module.
func ImportedID(module, name string) string {
	return NodeID(Function, SynthImported, module, name)
}

// ImportedClassID anchors an unresolved base class imported from module.
func ImportedClassID(module, name string) string {
	return NodeID(Class, SynthImported, module, name)
}

func digest(head string, parts []string) string {
	var b strings.Builder
	b.WriteString(head)
	for _, p := range parts {
		b.WriteString(keySep)
		b.WriteString(p)
	}
	h := xxh3.HashString128(b.String())
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
