package lang

var cBuiltins = []string{
	"printf", "fprintf", "sprintf", "snprintf", "puts", "putchar", "scanf",
	"malloc", "calloc", "realloc", "free", "memcpy", "memmove", "memset",
	"memcmp", "strlen", "strcmp", "strncmp", "strcpy", "strncpy", "strcat",
	"strdup", "exit", "abort", "assert", "fopen", "fclose", "fread", "fwrite",
}

const cFunctionQuery = `
(function_definition declarator: (function_declarator declarator: (identifier) @name)) @definition
(function_definition declarator: (pointer_declarator declarator: (function_declarator declarator: (identifier) @name))) @definition`

func init() {
	Register(&LanguageSpec{
		Language:          C,
		FileExtensions:    []string{".c"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"preproc_include"},
		Queries: []Query{
			{QueryImports, `(preproc_include path: (_) @name) @definition`},
			{QueryFunctions, cFunctionQuery},
			{QueryClasses, `
(struct_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition
(union_specifier name: (type_identifier) @name body: (field_declaration_list)) @definition`},
			{QueryTypes, `
(type_definition declarator: (type_identifier) @name) @definition
(enum_specifier name: (type_identifier) @name body: (enumerator_list)) @definition`},
		},
		Builtins: cBuiltins,
	})
}
