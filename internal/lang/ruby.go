package lang

func init() {
	Register(&LanguageSpec{
		Language:          Ruby,
		FileExtensions:    []string{".rb", ".rake"},
		FunctionNodeTypes: []string{"method", "singleton_method"},
		ClassNodeTypes:    []string{"class", "module"},
		CallNodeTypes:     []string{"call", "super"},
		ImportNodeTypes:   []string{"call"},
		Queries: []Query{
			{QueryClasses, `(class name: (constant) @name) @definition`},
			{QueryModules, `(module name: (constant) @name) @definition`},
			{QueryMethods, `
(method name: (_) @name) @definition
(singleton_method name: (_) @name) @definition`},
		},
		Builtins: []string{
			"puts", "print", "p", "pp", "require", "require_relative", "raise",
			"attr_accessor", "attr_reader", "attr_writer", "include", "extend",
			"lambda", "proc", "loop", "format", "sprintf", "gets",
		},
		SelfReceivers:  []string{"self"},
		SuperReceivers: []string{"super"},
	})
}
