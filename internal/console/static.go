package console

import (
	"embed"
	"io/fs"
	"net/http"
)

// staticFS holds the console page.
//
//go:embed static
var staticFS embed.FS

func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
