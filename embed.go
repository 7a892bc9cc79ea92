package shortpost

import "embed"

// EmbeddedAssets contains the client assets shipped with the server:
// app.js and app.css
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
