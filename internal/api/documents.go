package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) listDocuments(ownerType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		docs, err := s.svc.Documents.List(c.Request.Context(), ownerType, id)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, docs)
	}
}

// uploadDocument expects a multipart form with the file under "file".
func (s *HTTPServer) uploadDocument(ownerType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		header, err := c.FormFile("file")
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_body", "multipart field \"file\" is required")
			return
		}
		f, err := header.Open()
		if err != nil {
			writeServiceError(c, err)
			return
		}
		defer f.Close()

		doc, err := s.svc.Documents.Upload(c.Request.Context(), ownerType, id, header.Filename, f)
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, doc)
	}
}

func (s *HTTPServer) downloadDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	doc, f, err := s.svc.Documents.Open(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	defer f.Close()

	c.DataFromReader(http.StatusOK, doc.SizeBytes, doc.ContentType, f, map[string]string{
		"Content-Disposition": "attachment; filename=" + strconv.Quote(doc.FileName),
	})
}

func (s *HTTPServer) deleteDocument(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Documents.Delete(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
