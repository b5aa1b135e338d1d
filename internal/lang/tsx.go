package lang

func init() {
	Register(tsSpec(TSX, []string{".tsx"}))
}
