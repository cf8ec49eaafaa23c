package httpapi

import (
	"embed"
	"io/fs"
	"regexp"
)

//go:embed assets/*
var embeddedAssets embed.FS

var (
	assetsFS fs.FS
	// embeddedPanelVersion is the version stamped into the panel page.
	embeddedPanelVersion string
)

var panelVersionMeta = regexp.MustCompile(`<meta name="webchat-version" content="([^"]*)"`)

func init() {
	sub, err := fs.Sub(embeddedAssets, "assets")
	if err != nil {
		assetsFS = embeddedAssets
	} else {
		assetsFS = sub
	}
	if page, err := fs.ReadFile(assetsFS, "index.html"); err == nil {
		embeddedPanelVersion = parsePanelVersion(page)
	}
}

// parsePanelVersion extracts the webchat-version meta content from a panel page.
func parsePanelVersion(page []byte) string {
	match := panelVersionMeta.FindSubmatch(page)
	if match == nil {
		return ""
	}
	return string(match[1])
}
