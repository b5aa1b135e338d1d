// Package graph holds the property graph produced by an ingestion run.
//
// Node labels and relationship types are closed enumerations; ids are
// derived deterministically from a stable key so that two runs over the
// same input yield identical node and relationship identities.
package graph

import (
	"fmt"
)

// NodeLabel is the kind of a graph node.
type NodeLabel uint8

const (
	Project NodeLabel = iota + 1
	Folder
	File
	Module
	Function
	Class
	Method
	Variable
	Import
	Interface
	Type
	Decorator
	CodeElement
)

var nodeLabelNames = [...]string{
	Project:     "Project",
	Folder:      "Folder",
	File:        "File",
	Module:      "Module",
	Function:    "Function",
	Class:       "Class",
	Method:      "Method",
	Variable:    "Variable",
	Import:      "Import",
	Interface:   "Interface",
	Type:        "Type",
	Decorator:   "Decorator",
	CodeElement: "CodeElement",
}

// AllNodeLabels lists every label in declaration order.
func AllNodeLabels() []NodeLabel {
	out := make([]NodeLabel, 0, len(nodeLabelNames)-1)
	for l := Project; l <= CodeElement; l++ {
		out = append(out, l)
	}
	return out
}

// Valid reports whether l is one of the declared labels.
func (l NodeLabel) Valid() bool { return l >= Project && l <= CodeElement }

func (l NodeLabel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("NodeLabel(%d)", uint8(l))
	}
	return nodeLabelNames[l]
}

// ParseNodeLabel is the inverse of String.
func ParseNodeLabel(s string) (NodeLabel, error) {
	for l := Project; l <= CodeElement; l++ {
		if nodeLabelNames[l] == s {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown node label %q", s)
}

func (l NodeLabel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid node label %d", uint8(l))
	}
	return []byte(l.String()), nil
}

func (l *NodeLabel) UnmarshalText(b []byte) error {
	v, err := ParseNodeLabel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// RelType is the kind of a graph relationship.
type RelType uint8

const (
	Contains RelType = iota + 1
	Defines
	Calls
	Imports
	Extends
	Implements
	BelongsTo
)

var relTypeNames = [...]string{
	Contains:   "CONTAINS",
	Defines:    "DEFINES",
	Calls:      "CALLS",
	Imports:    "IMPORTS",
	Extends:    "EXTENDS",
	Implements: "IMPLEMENTS",
	BelongsTo:  "BELONGS_TO",
}

// AllRelTypes lists every relationship type in declaration order.
func AllRelTypes() []RelType {
	out := make([]RelType, 0, len(relTypeNames)-1)
	for t := Contains; t <= BelongsTo; t++ {
		out = append(out, t)
	}
	return out
}

func (t RelType) Valid() bool { return t >= Contains && t <= BelongsTo }

func (t RelType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("RelType(%d)", uint8(t))
	}
	return relTypeNames[t]
}

// ParseRelType is the inverse of String.
func ParseRelType(s string) (RelType, error) {
	for t := Contains; t <= BelongsTo; t++ {
		if relTypeNames[t] == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown relationship type %q", s)
}

func (t RelType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid relationship type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *RelType) UnmarshalText(b []byte) error {
	v, err := ParseRelType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Node is a labelled vertex with loose properties. Optional properties are
// absent rather than nil.
type Node struct {
	ID         string         `json:"id"`
	Label      NodeLabel      `json:"label"`
	Properties map[string]any `json:"properties"`
}

// Relationship is a typed, directed edge between two node ids.
type Relationship struct {
	ID         string         `json:"id"`
	Type       RelType        `json:"type"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Properties map[string]any `json:"properties,omitempty"`
}

// Name returns the "name" property or "".
func (n *Node) Name() string { return n.stringProp("name") }

// FilePath returns the "file_path" property, or "path" for Folder/File nodes.
func (n *Node) FilePath() string {
	if p := n.stringProp("file_path"); p != "" {
		return p
	}
	return n.stringProp("path")
}

// Synthesized reports whether the node anchors an external symbol.
func (n *Node) Synthesized() bool {
	t := n.stringProp("type")
	return t == SynthBuiltin || t == SynthImported
}

func (n *Node) stringProp(key string) string {
	if n.Properties == nil {
		return ""
	}
	s, _ := n.Properties[key].(string)
	return s
}

// Synthesized node markers stored under the "type" property.
const (
	SynthBuiltin  = "builtin"
	SynthImported = "imported"
)
