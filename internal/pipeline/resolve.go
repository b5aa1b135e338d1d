package pipeline

import (
	"path"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// indexedFile caches the path pieces module resolution compares against.
type indexedFile struct {
	path     string
	stem     string // path without extension
	baseStem string // file name without extension
	dir      string
	family   string
}

// fileIndex holds the sorted source files of a run for module resolution.
type fileIndex struct {
	files []indexedFile
}

// languageFamily groups languages whose files may import each other.
func languageFamily(l lang.Language) string {
	switch l {
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		return "ecmascript"
	case lang.C, lang.CPP:
		return "c"
	}
	return string(l)
}

func newFileIndex(sorted []string) *fileIndex {
	idx := &fileIndex{}
	for _, p := range sorted {
		spec := lang.ForPath(p)
		if spec == nil || spec.Config {
			continue
		}
		stem := strings.TrimSuffix(p, path.Ext(p))
		idx.files = append(idx.files, indexedFile{
			path:     p,
			stem:     stem,
			baseStem: path.Base(stem),
			dir:      path.Dir(p),
			family:   languageFamily(spec.Language),
		})
	}
	return idx
}

// indexStems are the file stems that stand for their directory as a module.
var indexStems = []string{"index", "__init__", "mod", "main", "init"}

// resolve maps rec.FromModule to a file path, or "" when nothing matches.
// Stages run in order and the first hit wins: exact file match, last
// segment of the module path, then substring of the module path. Relative
// specifiers only match exactly.
func (idx *fileIndex) resolve(importer string, rec ImportRecord) string {
	spec := lang.ForPath(importer)
	if spec == nil {
		return ""
	}
	family := languageFamily(spec.Language)
	mods, relative := modulePaths(importer, spec.Language, rec)
	if len(mods) == 0 {
		return ""
	}

	for _, m := range mods {
		if p := idx.find(importer, family, func(f indexedFile) bool { return idx.exact(f, m, spec.Language) }); p != "" {
			return p
		}
	}
	if relative {
		return ""
	}
	for _, m := range mods {
		seg := m
		if i := strings.LastIndex(m, "/"); i >= 0 {
			seg = m[i+1:]
		}
		if seg == "" {
			continue
		}
		if p := idx.find(importer, family, func(f indexedFile) bool { return f.baseStem == seg }); p != "" {
			return p
		}
	}
	for _, m := range mods {
		if !strings.Contains(m, "/") {
			continue
		}
		if p := idx.find(importer, family, func(f indexedFile) bool { return strings.Contains(f.stem, m) }); p != "" {
			return p
		}
	}
	return ""
}

func (idx *fileIndex) find(importer, family string, match func(indexedFile) bool) string {
	for _, f := range idx.files {
		if f.path == importer || f.family != family {
			continue
		}
		if match(f) {
			return f.path
		}
	}
	return ""
}

func (idx *fileIndex) exact(f indexedFile, mod string, l lang.Language) bool {
	if f.stem == mod {
		return true
	}
	if f.dir == mod {
		for _, s := range indexStems {
			if f.baseStem == s {
				return true
			}
		}
		// A Go import path names a package directory, not a file.
		if l == lang.Go && !strings.HasSuffix(f.path, "_test.go") {
			return true
		}
	}
	if l == lang.Go && f.dir != "." && strings.HasSuffix(mod, "/"+f.dir) && !strings.HasSuffix(f.path, "_test.go") {
		return true
	}
	return false
}

// modulePaths turns the record's module into slash-separated candidate
// paths relative to the project root. It reports whether the specifier was
// relative to the importer.
func modulePaths(importer string, l lang.Language, rec ImportRecord) ([]string, bool) {
	mod := strings.TrimSpace(rec.FromModule)
	if mod == "" {
		return nil, false
	}
	dir := path.Dir(importer)
	var base string
	relative := false

	switch l {
	case lang.Python:
		if strings.HasPrefix(mod, ".") {
			relative = true
			dots := len(mod) - len(strings.TrimLeft(mod, "."))
			up := dir
			for i := 1; i < dots; i++ {
				up = path.Dir(up)
			}
			rest := strings.ReplaceAll(strings.TrimLeft(mod, "."), ".", "/")
			base = joinRel(up, rest)
		} else {
			base = strings.ReplaceAll(mod, ".", "/")
		}
	case lang.JavaScript, lang.TypeScript, lang.TSX, lang.Ruby, lang.Bash:
		mod = stripSourceExt(mod)
		if strings.HasPrefix(mod, "./") || strings.HasPrefix(mod, "../") {
			relative = true
			base = joinRel(dir, mod)
		} else {
			base = strings.TrimPrefix(mod, "/")
		}
	case lang.C, lang.CPP:
		mod = stripSourceExt(mod)
		local := joinRel(dir, mod)
		return dedupe([]string{local, mod}), false
	case lang.Go:
		base = mod
	case lang.Rust:
		if strings.HasPrefix(mod, ".") {
			relative = true
			base = joinRel(dir, mod)
		} else {
			base = strings.ReplaceAll(mod, ".", "/")
		}
	default:
		base = strings.ReplaceAll(mod, ".", "/")
	}
	if base == "" || base == "." {
		base = dir
	}

	out := []string{base}
	switch rec.ImportType {
	case ImportNamed, ImportDefault:
		if rec.ImportedName != "" && rec.ImportedName != "default" && rec.ImportedName != "*" {
			out = append(out, joinRel(base, strings.ReplaceAll(rec.ImportedName, ".", "/")))
		}
	case ImportQualified:
		if l != lang.Go {
			if i := strings.LastIndex(base, "/"); i > 0 {
				out = append(out, base[:i])
			}
		}
	}
	return dedupe(out), relative
}

func joinRel(dir, rel string) string {
	p := path.Join(dir, rel)
	if p == "." {
		return ""
	}
	return p
}

var sourceExts = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".tsx", ".rb", ".sh", ".h", ".hpp", ".hh", ".c", ".cc", ".cpp"}

func stripSourceExt(mod string) string {
	for _, e := range sourceExts {
		if s, ok := strings.CutSuffix(mod, e); ok {
			return s
		}
	}
	return mod
}

func dedupe(in []string) []string {
	out := in[:0]
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
