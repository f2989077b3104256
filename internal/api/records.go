package api

import (
	"fmt"
	"net/http"
	"strconv"

	"viagens/internal/models"
	"viagens/internal/service"

	"github.com/gin-gonic/gin"
)

// recordEndpoints are the CRUD handlers for one record kind.
type recordEndpoints struct {
	list, get, create, bulk, update, remove gin.HandlerFunc
}

// recordFilters are the query parameters accepted as list filters.
var recordFilters = []string{"category", "status", "trip_id", "role", "city", "active"}

func recordRoutes[T any, PT interface {
	*T
	models.Record
}](svc *service.RecordService[T, PT]) recordEndpoints {
	if svc == nil {
		return recordEndpoints{}
	}
	return recordEndpoints{
		list: func(c *gin.Context) {
			field, value := "", interface{}(nil)
			for _, name := range recordFilters {
				if v, ok := c.GetQuery(name); ok {
					field, value = name, filterValue(v)
					break
				}
			}
			recs, err := svc.List(c.Request.Context(), field, value)
			if err != nil {
				writeServiceError(c, err)
				return
			}
			if recs == nil {
				recs = []PT{}
			}
			c.JSON(http.StatusOK, recs)
		},
		get: func(c *gin.Context) {
			id, ok := idParam(c, "id")
			if !ok {
				return
			}
			rec, err := svc.Get(c.Request.Context(), id)
			if err != nil {
				writeServiceError(c, err)
				return
			}
			c.JSON(http.StatusOK, rec)
		},
		create: func(c *gin.Context) {
			rec := PT(new(T))
			if !bindJSON(c, rec) {
				return
			}
			if err := svc.Create(c.Request.Context(), rec); err != nil {
				writeServiceError(c, err)
				return
			}
			c.JSON(http.StatusCreated, rec)
		},
		bulk: func(c *gin.Context) {
			var recs []PT
			if !bindJSON(c, &recs) {
				return
			}
			if len(recs) == 0 {
				respondError(c, http.StatusBadRequest, "invalid_body", "at least one record is required")
				return
			}
			if err := svc.BulkCreate(c.Request.Context(), recs); err != nil {
				writeServiceError(c, err)
				return
			}
			c.JSON(http.StatusCreated, recs)
		},
		update: func(c *gin.Context) {
			id, ok := idParam(c, "id")
			if !ok {
				return
			}
			rec := PT(new(T))
			if !bindJSON(c, rec) {
				return
			}
			if err := svc.Update(c.Request.Context(), id, rec); err != nil {
				writeServiceError(c, err)
				return
			}
			c.JSON(http.StatusOK, rec)
		},
		remove: func(c *gin.Context) {
			id, ok := idParam(c, "id")
			if !ok {
				return
			}
			if err := svc.Delete(c.Request.Context(), id); err != nil {
				writeServiceError(c, err)
				return
			}
			c.Status(http.StatusNoContent)
		},
	}
}

// filterValue matches the JSON type stored in the record document.
func filterValue(raw string) interface{} {
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	return raw
}

// recordHandler resolves the :kind path segment and runs the picked endpoint.
func (s *HTTPServer) recordHandler(pick func(recordEndpoints) gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		endpoints, ok := s.records[c.Param("kind")]
		handler := pick(endpoints)
		if !ok || handler == nil {
			writeServiceError(c, fmt.Errorf("%w: %s", service.ErrUnknownKind, c.Param("kind")))
			return
		}
		handler(c)
	}
}
