package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaceVersionMeta(t *testing.T) {
	doc := "<head>\n" + versionMeta + "v0.0.0-unknown\" />\n</head>\n"
	out, err := replaceVersionMeta(doc, "v1.2.3")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !strings.Contains(out, versionMeta+"v1.2.3\" />") {
		t.Fatalf("version not stamped: %q", out)
	}
	if !strings.HasSuffix(out, "</head>\n") {
		t.Fatalf("tail lost: %q", out)
	}
}

func TestReplaceVersionMetaErrors(t *testing.T) {
	if _, err := replaceVersionMeta("<head></head>", "v1"); err == nil {
		t.Fatalf("expected error for missing meta")
	}
	twice := versionMeta + "a\" />" + versionMeta + "b\" />"
	if _, err := replaceVersionMeta(twice, "v1"); err == nil {
		t.Fatalf("expected error for duplicate meta")
	}
	if _, err := replaceVersionMeta(versionMeta+"unterminated", "v1"); err == nil {
		t.Fatalf("expected error for missing quote")
	}
}

func TestStampPanelVersionKeepsMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.html")
	if err := os.WriteFile(path, []byte(versionMeta+"old\" />\n"), 0o640); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := stampPanelVersion(path, "v2.0.0"); err != nil {
		t.Fatalf("stamp: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != versionMeta+"v2.0.0\" />\n" {
		t.Fatalf("unexpected content %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Fatalf("mode changed to %v", info.Mode().Perm())
	}
}
