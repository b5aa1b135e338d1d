package lang

func init() {
	Register(&LanguageSpec{
		Language:          Lua,
		FileExtensions:    []string{".lua"},
		FunctionNodeTypes: []string{"function_declaration", "function_definition"},
		ClassNodeTypes:    []string{},
		CallNodeTypes:     []string{"function_call"},
		ImportNodeTypes:   []string{"function_call"},
		Queries: []Query{
			{QueryFunctions, `
(function_declaration name: (identifier) @name) @definition
(function_declaration name: (dot_index_expression) @name) @definition
(function_declaration name: (method_index_expression) @name) @definition`},
		},
		Builtins: []string{
			"print", "pairs", "ipairs", "require", "tostring", "tonumber", "type",
			"error", "assert", "pcall", "xpcall", "select", "setmetatable",
			"getmetatable", "rawget", "rawset", "table.insert", "table.remove",
			"table.concat", "table.sort", "string.format", "string.sub",
			"string.find", "string.gsub", "math.floor", "math.max", "math.min",
		},
		SelfReceivers: []string{"self"},
	})
}
