package pipeline

import (
	"path"
	"strings"

	"github.com/DeusData/codegraph-ingest/internal/lang"
)

// testConvention describes how one language names its test files.
type testConvention struct {
	// baseSuffixes match the end of the file name, e.g. "_test.go".
	baseSuffixes []string
	// basePrefixes match the start of the file name, e.g. "test_".
	basePrefixes []string
	// stemSuffixes match the file name without extension, e.g. ".spec".
	stemSuffixes []string
	// dirs are directory segments that hold tests.
	dirs []string
}

var jsTests = testConvention{stemSuffixes: []string{".test", ".spec"}, dirs: []string{"__tests__"}}

var testConventions = map[lang.Language]testConvention{
	lang.Go:         {baseSuffixes: []string{"_test.go"}},
	lang.Python:     {basePrefixes: []string{"test_"}, baseSuffixes: []string{"_test.py"}, dirs: []string{"tests", "__tests__"}},
	lang.JavaScript: jsTests,
	lang.TypeScript: jsTests,
	lang.TSX:        jsTests,
	lang.Java:       {baseSuffixes: []string{"Test.java", "Tests.java"}, dirs: []string{"src/test"}},
	lang.Rust:       {baseSuffixes: []string{"_test.rs"}, dirs: []string{"tests"}},
	lang.C:          {stemSuffixes: []string{"_test"}, basePrefixes: []string{"test_"}, dirs: []string{"test", "tests"}},
	lang.CPP:        {stemSuffixes: []string{"_test"}, dirs: []string{"test", "tests"}},
	lang.PHP:        {baseSuffixes: []string{"Test.php"}, dirs: []string{"tests"}},
	lang.Ruby:       {baseSuffixes: []string{"_spec.rb", "_test.rb"}, dirs: []string{"spec", "test"}},
	lang.Scala:      {stemSuffixes: []string{"Spec", "Test"}, dirs: []string{"src/test"}},
	lang.CSharp:     {stemSuffixes: []string{"Test", "Tests"}, dirs: []string{"Tests", "tests"}},
	lang.Kotlin:     {stemSuffixes: []string{"Test", "Tests", "Spec"}, dirs: []string{"src/test"}},
	lang.Lua:        {baseSuffixes: []string{"_test.lua", "_spec.lua"}, basePrefixes: []string{"test_"}, dirs: []string{"spec"}},
	lang.Bash:       {stemSuffixes: []string{"_test"}},
}

// isTestFile reports whether relPath follows language's test naming.
func isTestFile(relPath string, language lang.Language) bool {
	conv, ok := testConventions[language]
	if !ok {
		return false
	}
	base := path.Base(relPath)
	for _, s := range conv.baseSuffixes {
		if strings.HasSuffix(base, s) {
			return true
		}
	}
	for _, p := range conv.basePrefixes {
		if strings.HasPrefix(base, p) {
			return true
		}
	}
	stem := strings.TrimSuffix(base, path.Ext(base))
	for _, s := range conv.stemSuffixes {
		if strings.HasSuffix(stem, s) {
			return true
		}
	}
	return hasDirSegment(path.Dir(relPath), conv.dirs...)
}

// isTestPath detects test files by language convention, falling back to
// well-known test directory names for unknown languages.
func isTestPath(relPath string) bool {
	if spec := lang.ForPath(relPath); spec != nil {
		return isTestFile(relPath, spec.Language)
	}
	return hasDirSegment(path.Dir(relPath), "test", "tests", "spec", "__tests__")
}

// hasDirSegment reports whether dir contains any of segs as a whole
// segment run, e.g. "src/test" inside "module/src/test/java".
func hasDirSegment(dir string, segs ...string) bool {
	if dir == "." || dir == "" {
		return false
	}
	padded := "/" + dir + "/"
	for _, s := range segs {
		if strings.Contains(padded, "/"+s+"/") {
			return true
		}
	}
	return false
}

// isTestFunction reports whether name is a test entry point by the
// language's naming convention.
func isTestFunction(name string, language lang.Language) bool {
	switch language {
	case lang.Go:
		return strings.HasPrefix(name, "Test") || strings.HasPrefix(name, "Benchmark") ||
			strings.HasPrefix(name, "Example") || strings.HasPrefix(name, "Fuzz")
	case lang.Python, lang.Rust, lang.Lua, lang.C, lang.CPP:
		return strings.HasPrefix(name, "test_") || strings.HasPrefix(name, "Test")
	case lang.JavaScript, lang.TypeScript, lang.TSX:
		switch name {
		case "describe", "it", "test":
			return true
		}
		return false
	case lang.Java, lang.PHP, lang.Kotlin, lang.Scala:
		return strings.HasPrefix(name, "test")
	case lang.CSharp:
		return strings.HasPrefix(name, "Test") || strings.HasSuffix(name, "Test")
	case lang.Ruby:
		return strings.HasPrefix(name, "test_")
	}
	return false
}
