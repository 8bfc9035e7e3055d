package views

import "embed"

//go:embed templates static
var viewsFS embed.FS
