package lang

var jsBuiltins = []string{
	"parseInt", "parseFloat", "isNaN", "isFinite", "setTimeout", "setInterval",
	"clearTimeout", "clearInterval", "setImmediate", "queueMicrotask",
	"encodeURIComponent", "decodeURIComponent", "encodeURI", "decodeURI",
	"fetch", "String", "Number", "Boolean", "Symbol", "BigInt", "structuredClone",
	"console.log", "console.error", "console.warn", "console.info", "console.debug",
	"JSON.stringify", "JSON.parse", "Object.keys", "Object.values",
	"Object.entries", "Object.assign", "Object.freeze", "Array.isArray",
	"Array.from", "Promise.all", "Promise.resolve", "Promise.reject",
	"Promise.allSettled", "Math.max", "Math.min", "Math.floor", "Math.ceil",
	"Math.round", "Math.random", "Math.abs",
}

const jsImportQuery = `(import_statement source: (string (string_fragment) @name)) @definition`

func init() {
	Register(&LanguageSpec{
		Language:          JavaScript,
		FileExtensions:    []string{".js", ".jsx", ".mjs", ".cjs"},
		FunctionNodeTypes: []string{"function_declaration", "generator_function_declaration", "function_expression", "arrow_function", "method_definition"},
		ClassNodeTypes:    []string{"class_declaration", "class"},
		CallNodeTypes:     []string{"call_expression", "new_expression"},
		ImportNodeTypes:   []string{"import_statement"},
		Queries: []Query{
			{QueryImports, jsImportQuery},
			{QueryClasses, `
(class_declaration name: (identifier) @name) @definition
(class name: (identifier) @name) @definition`},
			{QueryMethods, `(method_definition name: (property_identifier) @name) @definition`},
			{QueryFunctions, `
(function_declaration name: (identifier) @name) @definition
(generator_function_declaration name: (identifier) @name) @definition`},
			{QueryArrowFunctions, `
(variable_declarator name: (identifier) @name value: (arrow_function) @definition)
(variable_declarator name: (identifier) @name value: (function_expression) @definition)`},
			{QueryDecorators, `
(decorator (identifier) @name) @definition
(decorator (call_expression function: (_) @name)) @definition`},
		},
		Builtins:       jsBuiltins,
		SelfReceivers:  []string{"this"},
		SuperReceivers: []string{"super"},
	})
}
