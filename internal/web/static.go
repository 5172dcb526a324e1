package web

import "embed"

// staticFiles holds the status page served on / and under /static/.
//
//go:embed static/*
var staticFiles embed.FS
