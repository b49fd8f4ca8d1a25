package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/backup"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
)

var errImportRunning = apierrors.New(apierrors.KindBusy, "a database import is in progress, try again shortly")

// WriteGate turns mutating requests away while a database import holds the
// store. Routes in exempt, matched by their registered path, pass straight through.
func WriteGate(gate *backup.Gate, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if skip[c.FullPath()] {
			c.Next()
			return
		}

		if !gate.Enter() {
			apierrors.Respond(c, errImportRunning)
			c.Abort()
			return
		}
		defer gate.Leave()
		c.Next()
	}
}
