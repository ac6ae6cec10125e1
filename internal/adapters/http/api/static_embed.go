package api

import (
	"embed"
)

//go:embed static/page.html
var pageFS embed.FS
