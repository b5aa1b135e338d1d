package lang

func init() {
	Register(&LanguageSpec{
		Language:          Bash,
		FileExtensions:    []string{".sh", ".bash"},
		FunctionNodeTypes: []string{"function_definition"},
		ClassNodeTypes:    []string{},
		CallNodeTypes:     []string{"command"},
		ImportNodeTypes:   []string{"command"},
		Queries: []Query{
			{QueryFunctions, `(function_definition name: (word) @name) @definition`},
			{QueryVariables, `(program (variable_assignment name: (variable_name) @name) @definition)`},
		},
		Builtins: []string{
			"echo", "printf", "cd", "export", "source", ".", "read", "test",
			"exit", "return", "local", "set", "unset", "shift", "eval", "exec",
			"trap", "cat", "grep", "sed", "awk", "mkdir", "rm", "cp", "mv", "ls",
		},
	})
}
