package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"pkt.systems/webchat/internal/version"
)

const versionMeta = `<meta name="webchat-version" content="`

func main() {
	var panelPath string
	flag.StringVar(&panelPath, "panel", "", "path to the panel index.html to stamp with the version")
	flag.Parse()

	ver := strings.TrimSpace(version.Current())
	if ver == "" {
		ver = "v0.0.0-unknown"
	}

	if panelPath != "" {
		if err := stampPanelVersion(panelPath, ver); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	fmt.Fprintln(os.Stdout, ver)
}

func stampPanelVersion(path string, ver string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat panel file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read panel file: %w", err)
	}
	out, err := replaceVersionMeta(string(data), ver)
	if err != nil {
		return fmt.Errorf("%w in %s", err, path)
	}
	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return fmt.Errorf("write panel file: %w", err)
	}
	return nil
}

func replaceVersionMeta(doc string, ver string) (string, error) {
	if n := strings.Count(doc, versionMeta); n != 1 {
		if n == 0 {
			return "", fmt.Errorf("panel version meta not found")
		}
		return "", fmt.Errorf("panel version meta appears %d times", n)
	}
	start := strings.Index(doc, versionMeta) + len(versionMeta)
	end := strings.IndexByte(doc[start:], '"')
	if end == -1 {
		return "", fmt.Errorf("panel version meta missing closing quote")
	}
	return doc[:start] + ver + doc[start+end:], nil
}
