package server

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

//go:embed web
var webFiles embed.FS

// embedFS adapts an embedded tree to static.ServeFileSystem.
type embedFS struct {
	http.FileSystem
}

func (e embedFS) Exists(prefix, filepath string) bool {
	p := strings.TrimPrefix(filepath, prefix)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	f, err := e.Open(p)
	if err != nil {
		return false
	}
	_ = f.Close()

	return true
}

func setupStatic(router *gin.Engine) {
	sub, err := fs.Sub(webFiles, "web")
	if err != nil {
		// embedded at build time
		panic(err)
	}

	router.Use(static.Serve("/", embedFS{http.FS(sub)}))
}
