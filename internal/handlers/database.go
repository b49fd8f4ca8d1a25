package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/relief-management-api/internal/backup"
	"github.com/yukikurage/relief-management-api/internal/constants"
	"github.com/yukikurage/relief-management-api/internal/dto"
	apierrors "github.com/yukikurage/relief-management-api/internal/errors"
	"github.com/yukikurage/relief-management-api/internal/middleware"
)

var errMissingDumpFile = apierrors.Validation(constants.ImportFormField, "choose a .sql file to import")

// DatabaseHandler exposes database export, import and stored snapshots.
type DatabaseHandler struct {
	backupService *backup.Service
}

func NewDatabaseHandler(backupService *backup.Service) *DatabaseHandler {
	return &DatabaseHandler{backupService: backupService}
}

// Status reports the driver and row count of every table.
func (h *DatabaseHandler) Status(c *gin.Context) {
	status, err := h.backupService.Status(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// Export downloads a dump of the whole database. A copy is kept as a snapshot.
func (h *DatabaseHandler) Export(c *gin.Context) {
	file, err := h.backupService.Export(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Name+`"`)
	c.Data(http.StatusOK, constants.DumpContentType, file.Data)
}

// Import replaces the database with the uploaded dump after writing a
// safety snapshot of the current state.
func (h *DatabaseHandler) Import(c *gin.Context) {
	header, err := c.FormFile(constants.ImportFormField)
	if err != nil {
		apierrors.Respond(c, errMissingDumpFile)
		return
	}

	f, err := header.Open()
	if err != nil {
		apierrors.InternalError(c, "Failed to read the uploaded file")
		return
	}
	defer f.Close()

	result, err := h.backupService.Import(c.Request.Context(), middleware.GetIdentity(c), header.Filename, f)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToImportResponse(result))
}

func (h *DatabaseHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.backupService.Snapshots(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	if snapshots == nil {
		snapshots = []backup.SnapshotInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots})
}

func (h *DatabaseHandler) DownloadSnapshot(c *gin.Context) {
	name := c.Param("name")
	rc, err := h.backupService.OpenSnapshot(c.Request.Context(), middleware.GetIdentity(c), name)
	if err != nil {
		apierrors.Respond(c, err)
		return
	}
	defer rc.Close()

	c.DataFromReader(http.StatusOK, -1, constants.DumpContentType, rc, map[string]string{
		"Content-Disposition": `attachment; filename="` + name + `"`,
	})
}
