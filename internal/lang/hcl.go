package lang

func init() {
	Register(&LanguageSpec{
		Language:          HCL,
		FileExtensions:    []string{".tf", ".hcl"},
		FunctionNodeTypes: []string{},
		ClassNodeTypes:    []string{},
		CallNodeTypes:     []string{"function_call"},
		Queries: []Query{
			{QueryBlocks, `(block (identifier) @name) @definition`},
		},
		Builtins: []string{
			"lookup", "merge", "concat", "length", "format", "file", "jsonencode",
			"jsondecode", "toset", "tolist", "tomap", "element", "join", "split",
			"replace", "coalesce", "try", "can", "templatefile",
		},
	})
}
