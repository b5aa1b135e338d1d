package lang

func init() {
	Register(&LanguageSpec{
		Language:          Kotlin,
		FileExtensions:    []string{".kt", ".kts"},
		FunctionNodeTypes: []string{"function_declaration", "secondary_constructor", "anonymous_function", "lambda_literal"},
		ClassNodeTypes:    []string{"class_declaration", "object_declaration", "companion_object"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"import"},
		Queries: []Query{
			{QueryImports, `(import (qualified_identifier) @name) @definition`},
			{QueryClasses, `
(class_declaration name: (_) @name) @definition
(object_declaration name: (_) @name) @definition`},
			{QueryFunctions, `(function_declaration name: (_) @name) @definition`},
		},
		Builtins: []string{
			"println", "print", "listOf", "mutableListOf", "mapOf", "mutableMapOf",
			"setOf", "mutableSetOf", "arrayOf", "require", "requireNotNull",
			"check", "error", "lazy", "repeat", "run", "let", "apply", "also",
		},
		SelfReceivers:  []string{"this"},
		SuperReceivers: []string{"super"},
	})
}
