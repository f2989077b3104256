package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"viagens/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeCSV  = "text/csv; charset=utf-8"

	defaultAuditLimit = 50
	maxAuditLimit     = 500
	defaultAuditAge   = 30 * 24 * time.Hour
)

func (s *HTTPServer) companyConfig(c *gin.Context) {
	cfg, err := s.svc.Company.Config(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *HTTPServer) updateCompanyConfig(c *gin.Context) {
	var cfg models.CompanyConfig
	if !bindJSON(c, &cfg) {
		return
	}
	if err := s.svc.Company.UpdateConfig(c.Request.Context(), &cfg); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *HTTPServer) financialReport(c *gin.Context) {
	tripID, ok := optionalID(c, "trip_id")
	if !ok {
		return
	}
	report, err := s.svc.Company.FinancialReport(c.Request.Context(), tripID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// export renders into memory first so a failure still maps to a proper
// error response. With ?save=true the file goes to the export directory.
func (s *HTTPServer) export(c *gin.Context, contentType, fileName string,
	render func(ctx context.Context, w io.Writer) error,
	save func(ctx context.Context) (string, error),
) {
	if c.Query("save") == "true" {
		path, err := save(c.Request.Context())
		if err != nil {
			writeServiceError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"path": path})
		return
	}
	var buf bytes.Buffer
	if err := render(c.Request.Context(), &buf); err != nil {
		writeServiceError(c, err)
		return
	}
	attachment(c, contentType, fileName, buf.Bytes())
}

func (s *HTTPServer) exportManifest(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	s.export(c, contentTypeXLSX, fmt.Sprintf("manifesto_viagem_%d.xlsx", id),
		func(ctx context.Context, w io.Writer) error { return s.svc.Exports.Manifest(ctx, id, w) },
		func(ctx context.Context) (string, error) { return s.svc.Exports.SaveManifest(ctx, id) },
	)
}

func (s *HTTPServer) exportFinancial(c *gin.Context) {
	tripID, ok := optionalID(c, "trip_id")
	if !ok {
		return
	}
	name := "financeiro_geral.xlsx"
	if tripID != nil {
		name = fmt.Sprintf("financeiro_viagem_%d.xlsx", *tripID)
	}
	s.export(c, contentTypeXLSX, name,
		func(ctx context.Context, w io.Writer) error { return s.svc.Exports.Financial(ctx, tripID, w) },
		func(ctx context.Context) (string, error) { return s.svc.Exports.SaveFinancial(ctx, tripID) },
	)
}

func (s *HTTPServer) exportClientsCSV(c *gin.Context) {
	tripID, ok := optionalID(c, "trip_id")
	if !ok {
		return
	}
	var id int64
	name := "clientes.csv"
	if tripID != nil {
		id = *tripID
		name = fmt.Sprintf("clientes_viagem_%d.csv", id)
	}
	s.export(c, contentTypeCSV, name,
		func(ctx context.Context, w io.Writer) error { return s.svc.Exports.ClientsCSV(ctx, id, w) },
		func(ctx context.Context) (string, error) { return s.svc.Exports.SaveClientsCSV(ctx, id) },
	)
}

func (s *HTTPServer) backupAvailable(c *gin.Context) bool {
	if s.svc.Backup == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "backup service is not configured")
		return false
	}
	return true
}

func (s *HTTPServer) runBackup(c *gin.Context) {
	if !s.backupAvailable(c) {
		return
	}
	path, err := s.svc.Backup.PerformBackup(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": path})
}

func (s *HTTPServer) exportBackup(c *gin.Context) {
	if !s.backupAvailable(c) {
		return
	}
	s.export(c, "application/json", "backup.json", s.svc.Backup.ExportJSON, s.svc.Backup.WriteJSONExport)
}

type backupStatus struct {
	LastBackup *time.Time `json:"last_backup"`
	LastExport *time.Time `json:"last_export"`
}

func (s *HTTPServer) backupStatus(c *gin.Context) {
	if !s.backupAvailable(c) {
		return
	}
	backup, export, err := s.svc.Backup.LastBackup(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	var status backupStatus
	if !backup.IsZero() {
		status.LastBackup = &backup
	}
	if !export.IsZero() {
		status.LastExport = &export
	}
	c.JSON(http.StatusOK, status)
}

func (s *HTTPServer) auditAvailable(c *gin.Context) bool {
	if s.svc.Audit == nil {
		respondError(c, http.StatusServiceUnavailable, "unavailable", "audit log is not configured")
		return false
	}
	return true
}

func (s *HTTPServer) recentAudit(c *gin.Context) {
	if !s.auditAvailable(c) {
		return
	}
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_query", "invalid limit")
			return
		}
		limit = min(n, maxAuditLimit)
	}
	entries, err := s.svc.Audit.Recent(c.Request.Context(), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	c.JSON(http.StatusOK, entries)
}

func (s *HTTPServer) pruneAudit(c *gin.Context) {
	if !s.auditAvailable(c) {
		return
	}
	maxAge := defaultAuditAge
	if raw := c.Query("older_than"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			respondError(c, http.StatusBadRequest, "invalid_query", "older_than must be a positive duration")
			return
		}
		maxAge = d
	}
	removed, err := s.svc.Audit.Prune(c.Request.Context(), maxAge)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func (s *HTTPServer) listUsers(c *gin.Context) {
	users, err := s.svc.Users.ListUsers(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

type createUserRequest struct {
	Email    string      `json:"email" binding:"required"`
	Name     string      `json:"name"`
	Role     models.Role `json:"role" binding:"required"`
	Active   *bool       `json:"active"`
	Password string      `json:"password" binding:"required"`
}

func (s *HTTPServer) createUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user := &models.User{Email: req.Email, Name: req.Name, Role: req.Role, Active: req.Active == nil || *req.Active}
	if err := s.svc.Users.CreateUser(c.Request.Context(), user, req.Password); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

type updateUserRequest struct {
	Name     string      `json:"name"`
	Role     models.Role `json:"role" binding:"required"`
	Active   bool        `json:"active"`
	Password string      `json:"password"`
}

func (s *HTTPServer) updateUser(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := s.svc.Users.UpdateUser(c.Request.Context(), id, req.Name, req.Role, req.Active, req.Password)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
