package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
)

// LegalHandler serves the static legal pages Meta requires for an
// approved Instagram app.
type LegalHandler struct {
	Dir string
}

func NewLegalHandler(dir string) *LegalHandler {
	return &LegalHandler{Dir: dir}
}

func (h *LegalHandler) PrivacyPolicy(c *gin.Context) {
	h.servePage(c, "privacy_policy.html")
}

func (h *LegalHandler) TermsOfService(c *gin.Context) {
	h.servePage(c, "terms_of_service.html")
}

func (h *LegalHandler) servePage(c *gin.Context, name string) {
	path := filepath.Join(h.Dir, name)
	if _, err := os.Stat(path); err != nil {
		c.String(http.StatusNotFound, "page not found")
		return
	}
	c.File(path)
}
