package giftstory

import "embed"

// EmbeddedAssets contains assets shipped with the service: story.css, the
// stylesheet shared by live story pages and offline archives.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
