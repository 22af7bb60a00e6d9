package server

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templateFS embed.FS

func loadTemplates() *template.Template {
	return template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
}

// page renders a shell with the request's resolved session
func (s *Server) page(name, title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := s.resolveSession(c)
		c.Header("Cache-Control", "no-store")
		c.HTML(http.StatusOK, name, gin.H{
			"Title": title,
			"User":  snap.User,
			"Admin": snap.IsAdmin(),
		})
	}
}
