package folio

import "embed"

// EmbeddedAssets contains static assets shipped with the site: style.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
