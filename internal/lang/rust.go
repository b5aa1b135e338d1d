package lang

func init() {
	Register(&LanguageSpec{
		Language:          Rust,
		FileExtensions:    []string{".rs"},
		FunctionNodeTypes: []string{"function_item", "closure_expression"},
		ClassNodeTypes:    []string{"impl_item", "trait_item"},
		CallNodeTypes:     []string{"call_expression"},
		ImportNodeTypes:   []string{"use_declaration"},
		Queries: []Query{
			{QueryImports, `(use_declaration argument: (_) @name) @definition`},
			{QueryClasses, `
(struct_item name: (type_identifier) @name) @definition
(enum_item name: (type_identifier) @name) @definition`},
			{QueryInterfaces, `(trait_item name: (type_identifier) @name) @definition`},
			{QueryMethods, `(impl_item body: (declaration_list (function_item name: (identifier) @name) @definition))`},
			{QueryFunctions, `(function_item name: (identifier) @name) @definition`},
			{QueryArrowFunctions, `(let_declaration pattern: (identifier) @name value: (closure_expression) @definition)`},
			{QueryTypes, `(type_item name: (type_identifier) @name) @definition`},
			{QueryModules, `(mod_item name: (identifier) @name) @definition`},
			{QueryDecorators, `(attribute_item (attribute (identifier) @name)) @definition`},
		},
		Builtins: []string{
			"Some", "Ok", "Err", "Box::new", "Vec::new", "Vec::with_capacity",
			"String::new", "String::from", "HashMap::new", "HashSet::new",
			"Rc::new", "Arc::new", "RefCell::new", "Mutex::new", "drop",
			"std::mem::swap", "std::mem::take", "Default::default",
		},
		SelfReceivers: []string{"self", "Self"},
	})
}
