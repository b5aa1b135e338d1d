package pipeline

import (
	"github.com/DeusData/codegraph-ingest/internal/extract"
	"github.com/DeusData/codegraph-ingest/internal/graph"
	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// Symbol is one registered function, method, class or interface.
type Symbol struct {
	ID            string
	Label         graph.NodeLabel
	Name          string
	QualifiedName string
	FilePath      string
	// Class is the declaring class of a method.
	Class string
	Def   extract.Definition
}

type fileSymbols struct {
	functions map[string]*Symbol
	methods   map[string][]*Symbol
	classes   map[string]*Symbol
	ordered   []*Symbol
}

// Registry indexes the run's callable and class definitions. Functions and
// methods are indexed separately so a free function never shadows a method
// of the same name. Every slice keeps registration order, which the parse
// pass makes deterministic by merging in path order.
type Registry struct {
	files     map[string]*fileSymbols
	callables map[string][]*Symbol
	classes   map[string][]*Symbol
	byID      map[string]*Symbol
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		files:     make(map[string]*fileSymbols),
		callables: make(map[string][]*Symbol),
		classes:   make(map[string][]*Symbol),
		byID:      make(map[string]*Symbol),
	}
}

func (r *Registry) file(path string) *fileSymbols {
	fs, ok := r.files[path]
	if !ok {
		fs = &fileSymbols{
			functions: make(map[string]*Symbol),
			methods:   make(map[string][]*Symbol),
			classes:   make(map[string]*Symbol),
		}
		r.files[path] = fs
	}
	return fs
}

// Register adds s. Non-indexable kinds are ignored.
func (r *Registry) Register(s *Symbol) {
	if _, dup := r.byID[s.ID]; dup {
		return
	}
	fs := r.file(s.FilePath)
	switch s.Label {
	case graph.Function:
		if _, ok := fs.functions[s.Name]; !ok {
			fs.functions[s.Name] = s
		}
		r.callables[s.Name] = append(r.callables[s.Name], s)
	case graph.Method:
		fs.methods[s.Name] = append(fs.methods[s.Name], s)
		r.callables[s.Name] = append(r.callables[s.Name], s)
	case graph.Class, graph.Interface:
		if _, ok := fs.classes[s.Name]; !ok {
			fs.classes[s.Name] = s
		}
		r.classes[s.Name] = append(r.classes[s.Name], s)
	default:
		return
	}
	fs.ordered = append(fs.ordered, s)
	r.byID[s.ID] = s
}

// ByID returns the symbol registered under id.
func (r *Registry) ByID(id string) *Symbol { return r.byID[id] }

// Function returns the free function name defined in path.
func (r *Registry) Function(path, name string) *Symbol {
	if fs, ok := r.files[path]; ok {
		return fs.functions[name]
	}
	return nil
}

// Methods returns the methods called name defined in path.
func (r *Registry) Methods(path, name string) []*Symbol {
	if fs, ok := r.files[path]; ok {
		return fs.methods[name]
	}
	return nil
}

// Class returns the class or interface name defined in path.
func (r *Registry) Class(path, name string) *Symbol {
	if fs, ok := r.files[path]; ok {
		return fs.classes[name]
	}
	return nil
}

// FileSymbols returns the symbols of path in registration order.
func (r *Registry) FileSymbols(path string) []*Symbol {
	if fs, ok := r.files[path]; ok {
		return fs.ordered
	}
	return nil
}

// Callables returns every function and method named name.
func (r *Registry) Callables(name string) []*Symbol { return r.callables[name] }

// Classes returns every class and interface named name.
func (r *Registry) Classes(name string) []*Symbol { return r.classes[name] }

// UniqueClass returns the only class named name, or nil when there are none
// or several.
func (r *Registry) UniqueClass(name string) *Symbol {
	if c := r.classes[name]; len(c) == 1 {
		return c[0]
	}
	return nil
}

// MethodOf returns the method name declared by class in the class's file.
func (r *Registry) MethodOf(class *Symbol, name string) *Symbol {
	for _, m := range r.Methods(class.FilePath, name) {
		if m.Class == class.Name {
			return m
		}
	}
	return nil
}

// MethodsOfType returns the methods name whose declaring class is called
// className, across all files.
func (r *Registry) MethodsOfType(className, name string) []*Symbol {
	var out []*Symbol
	for _, s := range r.callables[name] {
		if s.Label == graph.Method && s.Class == className {
			out = append(out, s)
		}
	}
	return out
}

// labelForKind maps a definition kind to its node label.
func labelForKind(kind string) (graph.NodeLabel, bool) {
	switch kind {
	case lang.KindFunction:
		return graph.Function, true
	case lang.KindMethod:
		return graph.Method, true
	case lang.KindClass:
		return graph.Class, true
	case lang.KindInterface:
		return graph.Interface, true
	case lang.KindType:
		return graph.Type, true
	case lang.KindVariable:
		return graph.Variable, true
	case lang.KindModule:
		return graph.Module, true
	case lang.KindImport:
		return graph.Import, true
	case lang.KindDecorator:
		return graph.Decorator, true
	case lang.KindCodeElement:
		return graph.CodeElement, true
	}
	return 0, false
}
