package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// SPA serves files from dist and falls back to index.html for unknown GET
// paths so client-side routes survive a reload. /usuarios and /login are never
// rewritten; they 404 like any other unmatched API route.
func SPA(dist string) gin.HandlerFunc {
	index := filepath.Join(dist, "index.html")
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.String(http.StatusNotFound, "Not Found")
			return
		}
		if strings.HasPrefix(p, "/usuarios") || strings.HasPrefix(p, "/login") {
			c.String(http.StatusNotFound, "Not Found")
			return
		}

		clean := filepath.Clean("/" + p)
		file := filepath.Join(dist, filepath.FromSlash(clean))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		if _, err := os.Stat(index); err != nil {
			c.String(http.StatusNotFound, "Not Found")
			return
		}
		c.File(index)
	}
}

// DistAvailable reports whether dist looks like a built frontend.
func DistAvailable(dist string) bool {
	info, err := os.Stat(dist)
	return err == nil && info.IsDir()
}
