package repo

import (
	"os"
	"path/filepath"
	"testing"
)

func ignoreCheckerWith(t *testing.T, lines string) *IgnoreChecker {
	t.Helper()
	dir := t.TempDir()
	if lines != "" {
		if err := os.WriteFile(filepath.Join(dir, ".orbignore"), []byte(lines), 0o644); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	return NewIgnoreChecker(dir)
}

func TestIgnoreAlwaysSkipsRepoDirs(t *testing.T) {
	ic := ignoreCheckerWith(t, "")
	for _, p := range []string{".orb", ".orb/objects/ab/cd", ".git", ".git/config"} {
		if !ic.IsIgnored(p) {
			t.Errorf("%q should always be ignored", p)
		}
	}
	if ic.IsIgnored("src/main.go") {
		t.Error("ordinary path ignored without patterns")
	}
}

func TestIgnoreBasenamePattern(t *testing.T) {
	ic := ignoreCheckerWith(t, "*.log\n")
	if !ic.IsIgnored("debug.log") {
		t.Error("*.log should match top-level file")
	}
	if !ic.IsIgnored("deep/nested/trace.log") {
		t.Error("*.log should match by basename at any depth")
	}
	if ic.IsIgnored("log.txt") {
		t.Error("*.log should not match log.txt")
	}
}

func TestIgnoreDirOnlyPattern(t *testing.T) {
	ic := ignoreCheckerWith(t, "build/\n")
	if !ic.IsIgnored("build") {
		t.Error("build/ should match the directory itself")
	}
	if !ic.IsIgnored("build/out/artifact.bin") {
		t.Error("build/ should match everything under it")
	}
	if ic.IsIgnored("builder.go") {
		t.Error("build/ should not match builder.go")
	}
}

func TestIgnoreNegation(t *testing.T) {
	ic := ignoreCheckerWith(t, "*.log\n!keep.log\n")
	if ic.IsIgnored("keep.log") {
		t.Error("negation should re-include keep.log")
	}
	if !ic.IsIgnored("other.log") {
		t.Error("other .log files remain ignored")
	}
}

func TestIgnoreGlobstar(t *testing.T) {
	ic := ignoreCheckerWith(t, "docs/**/draft.md\n")
	if !ic.IsIgnored("docs/a/b/draft.md") {
		t.Error("globstar should match nested path")
	}
	if !ic.IsIgnored("docs/draft.md") {
		t.Error("globstar should match zero segments")
	}
	if ic.IsIgnored("src/draft.md") {
		t.Error("pattern anchored under docs/ should not match src/")
	}
}

func TestIgnoreCommentsAndBlanks(t *testing.T) {
	ic := ignoreCheckerWith(t, "# a comment\n\n*.tmp\n")
	if !ic.IsIgnored("x.tmp") {
		t.Error("pattern after comment not applied")
	}
	if ic.IsIgnored("# a comment") {
		t.Error("comment treated as a pattern")
	}
}
