package ignore

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestMatcher_DefaultAndUserOverrides(t *testing.T) {
	m := NewMatcher([]string{
		"vendor/**",
		"!vendor/keep/refs.py",
		"*.tmp",
	})

	cases := []struct {
		path    string
		isDir   bool
		ignored bool
	}{
		{path: ".git/config", isDir: false, ignored: true},
		{path: ".venv/lib/site.py", isDir: false, ignored: true},
		{path: "notebooks/.ipynb_checkpoints/a.ipynb", isDir: false, ignored: true},
		{path: "node_modules/pkg/index.js", isDir: false, ignored: true},
		{path: "pkg/__pycache__", isDir: true, ignored: true},
		{path: "vendor/lib/a.go", isDir: false, ignored: true},
		{path: "vendor/keep/refs.py", isDir: false, ignored: false},
		{path: "nested/cache.tmp", isDir: false, ignored: true},
		{path: "src/main.go", isDir: false, ignored: false},
	}

	for _, tc := range cases {
		got := m.ShouldIgnore(tc.path, tc.isDir)
		if got != tc.ignored {
			t.Fatalf("path %s: expected ignored=%v, got %v", tc.path, tc.ignored, got)
		}
	}
}

func TestMatcher_NegatedDirectoryRule(t *testing.T) {
	m := NewMatcher([]string{
		"build/",
		"!build/include/",
	})

	if !m.ShouldIgnore("build/out/file.go", false) {
		t.Fatalf("expected build/out/file.go to be ignored")
	}
	if m.ShouldIgnore("build/include/file.go", false) {
		t.Fatalf("expected build/include/file.go to be included")
	}
}

func TestMatcher_AnchoredRule(t *testing.T) {
	m := NewMatcher([]string{"/docs/*.py"})

	if !m.ShouldIgnore("docs/conf.py", false) {
		t.Fatalf("expected docs/conf.py to be ignored")
	}
	if m.ShouldIgnore("pkg/docs/conf.py", false) {
		t.Fatalf("expected pkg/docs/conf.py to be kept")
	}
}

func TestLoadRules(t *testing.T) {
	root := t.TempDir()

	rules, err := LoadRules(root)
	if err != nil {
		t.Fatalf("LoadRules without file failed: %v", err)
	}
	if rules != nil {
		t.Fatalf("expected no rules, got %v", rules)
	}

	content := "# generated\n\nexamples/\n  !examples/keep.py  \n"
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("write ignore file: %v", err)
	}
	rules, err = LoadRules(root)
	if err != nil {
		t.Fatalf("LoadRules failed: %v", err)
	}
	want := []string{"examples/", "!examples/keep.py"}
	if !reflect.DeepEqual(rules, want) {
		t.Fatalf("expected %v, got %v", want, rules)
	}
}
