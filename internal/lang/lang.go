package lang

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language represents a supported programming or configuration language.
type Language string

const (
	Python     Language = "python"
	JavaScript Language = "javascript"
	TypeScript Language = "typescript"
	TSX        Language = "tsx"
	Go         Language = "go"
	Rust       Language = "rust"
	Java       Language = "java"
	C          Language = "c"
	CPP        Language = "cpp"
	CSharp     Language = "c-sharp"
	PHP        Language = "php"
	Ruby       Language = "ruby"
	Kotlin     Language = "kotlin"
	Scala      Language = "scala"
	Lua        Language = "lua"
	Bash       Language = "bash"
	HCL        Language = "hcl"

	// Config languages carry no grammar; they are summarised by key.
	JSON Language = "json"
	YAML Language = "yaml"
	TOML Language = "toml"
)

// Query names of the extraction battery. Each maps to one definition kind.
const (
	QueryImports        = "imports"
	QueryClasses        = "classes"
	QueryMethods        = "methods"
	QueryFunctions      = "functions"
	QueryArrowFunctions = "arrow_functions"
	QueryInterfaces     = "interfaces"
	QueryTypes          = "types"
	QueryDecorators     = "decorators"
	QueryVariables      = "variables"
	QueryModules        = "modules"
	QueryBlocks         = "blocks"
)

// Definition kinds produced from query names.
const (
	KindImport      = "import"
	KindClass       = "class"
	KindMethod      = "method"
	KindFunction    = "function"
	KindInterface   = "interface"
	KindType        = "type"
	KindDecorator   = "decorator"
	KindVariable    = "variable"
	KindModule      = "module"
	KindCodeElement = "code_element"
)

var queryKinds = map[string]string{
	QueryImports:        KindImport,
	QueryClasses:        KindClass,
	QueryMethods:        KindMethod,
	QueryFunctions:      KindFunction,
	QueryArrowFunctions: KindFunction,
	QueryInterfaces:     KindInterface,
	QueryTypes:          KindType,
	QueryDecorators:     KindDecorator,
	QueryVariables:      KindVariable,
	QueryModules:        KindModule,
	QueryBlocks:         KindCodeElement,
}

// KindForQuery maps a battery query name to its definition kind.
func KindForQuery(name string) (string, bool) {
	k, ok := queryKinds[name]
	return k, ok
}

// Query is one named pattern of the battery. Patterns capture the
// definition's name as @name and the whole definition as @definition.
type Query struct {
	Name    string
	Pattern string
}

// LanguageSpec defines the tree-sitter node types and query battery for a
// language.
type LanguageSpec struct {
	Language       Language
	FileExtensions []string
	// Config marks languages without a grammar that are summarised by key.
	Config bool

	FunctionNodeTypes []string
	ClassNodeTypes    []string
	CallNodeTypes     []string
	ImportNodeTypes   []string

	// Queries is the ordered extraction battery.
	Queries []Query

	// Builtins lists standard-library names resolved to builtin nodes.
	// Dotted entries (e.g. "console.log") match member calls by qualifier.
	Builtins []string
	// SelfReceivers are receiver names bound to the enclosing class.
	SelfReceivers []string
	// SuperReceivers are receiver spellings that dispatch to a base class.
	SuperReceivers []string
}

// IsFunctionNode, IsClassNode and IsCallNode test node kinds against the spec.
func (s *LanguageSpec) IsFunctionNode(kind string) bool { return contains(s.FunctionNodeTypes, kind) }
func (s *LanguageSpec) IsClassNode(kind string) bool    { return contains(s.ClassNodeTypes, kind) }
func (s *LanguageSpec) IsCallNode(kind string) bool     { return contains(s.CallNodeTypes, kind) }

// IsBuiltin reports whether name is a builtin of this language.
func (s *LanguageSpec) IsBuiltin(name string) bool { return contains(s.Builtins, name) }

// IsSelf reports whether name refers to the enclosing instance.
func (s *LanguageSpec) IsSelf(name string) bool { return contains(s.SelfReceivers, name) }

// IsSuper reports whether name is this language's base-class receiver.
func (s *LanguageSpec) IsSuper(name string) bool { return contains(s.SuperReceivers, name) }

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// registry maps file extensions to language specs.
var registry = map[string]*LanguageSpec{}

// Register adds a LanguageSpec to the global registry. Registration happens
// in init functions only; the registry is read-only afterwards.
func Register(spec *LanguageSpec) {
	for _, ext := range spec.FileExtensions {
		registry[ext] = spec
	}
}

// ForExtension returns the LanguageSpec for a file extension (e.g. ".go").
func ForExtension(ext string) *LanguageSpec {
	return registry[strings.ToLower(ext)]
}

// ForPath returns the LanguageSpec for a file path, or nil.
func ForPath(path string) *LanguageSpec {
	return ForExtension(filepath.Ext(path))
}

// ForLanguage returns the LanguageSpec for a language.
func ForLanguage(l Language) *LanguageSpec {
	for _, spec := range registry {
		if spec.Language == l {
			return spec
		}
	}
	return nil
}

// LanguageForExtension returns the Language for a file extension.
func LanguageForExtension(ext string) (Language, bool) {
	spec := ForExtension(ext)
	if spec == nil {
		return "", false
	}
	return spec.Language, true
}

// AllLanguages returns every registered language, sorted.
func AllLanguages() []Language {
	seen := map[Language]bool{}
	var out []Language
	for _, spec := range registry {
		if !seen[spec.Language] {
			seen[spec.Language] = true
			out = append(out, spec.Language)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// IsProcessable reports whether path has a source or config extension.
func IsProcessable(path string) bool {
	return ForPath(path) != nil
}
