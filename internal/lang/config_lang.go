package lang

func init() {
	Register(&LanguageSpec{Language: JSON, FileExtensions: []string{".json"}, Config: true})
	Register(&LanguageSpec{Language: YAML, FileExtensions: []string{".yml", ".yaml"}, Config: true})
	Register(&LanguageSpec{Language: TOML, FileExtensions: []string{".toml"}, Config: true})
}
