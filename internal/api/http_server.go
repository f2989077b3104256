package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"viagens/internal/audit"
	"viagens/internal/auth"
	"viagens/internal/config"
	"viagens/internal/database"
	"viagens/internal/models"
	"viagens/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services is everything the HTTP layer serves. Backup and Audit may be nil,
// in which case their routes answer 503.
type Services struct {
	Users         *service.UserService
	Trips         *service.TripService
	Clients       *service.ClientService
	Billing       *service.BillingService
	Company       *service.CompanyService
	Intake        *service.IntakeService
	Documents     *service.DocumentService
	Exports       *service.ExportService
	Suppliers     *service.RecordService[models.Supplier, *models.Supplier]
	Staff         *service.RecordService[models.StaffMember, *models.StaffMember]
	Expenses      *service.RecordService[models.CompanyExpense, *models.CompanyExpense]
	Contacts      *service.RecordService[models.Contact, *models.Contact]
	ContractForms *service.RecordService[models.ContractForm, *models.ContractForm]
	Backup        *database.BackupService
	Audit         *audit.Recorder
}

// HTTPServer exposes the back-office and public intake API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     Services
	tokens  *auth.TokenIssuer
	logger  *zerolog.Logger
	limiter *rateLimiter
	records map[string]recordEndpoints
	engine  *gin.Engine
	server  *http.Server
	now     func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, svc Services, tokens *auth.TokenIssuer, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{
		cfg:     cfg,
		svc:     svc,
		tokens:  tokens,
		logger:  logger,
		limiter: newRateLimiter(&cfg),
		now:     time.Now,
	}
	srv.records = map[string]recordEndpoints{
		"suppliers":      recordRoutes(svc.Suppliers),
		"staff":          recordRoutes(svc.Staff),
		"expenses":       recordRoutes(svc.Expenses),
		"contacts":       recordRoutes(svc.Contacts),
		"contract-forms": recordRoutes(svc.ContractForms),
	}
	srv.engine = srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.engine,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

// Handler returns the routed engine, for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(s.logger), accessLog(), s.corsMiddleware())
	if err := r.SetTrustedProxies(nil); err != nil {
		s.logger.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", "route not found")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	public := v1.Group("/public", s.rateLimit())
	public.GET("/trips", s.publicTrips)
	public.POST("/contact", s.publicContact)
	public.POST("/contract-forms", s.publicContractForm)
	public.GET("/receipts/:id/verify", s.verifyReceipt)

	v1.POST("/auth/login", s.rateLimit(), s.login)

	priv := v1.Group("", s.authenticate())
	priv.GET("/auth/me", s.me)

	trips := priv.Group("/trips")
	trips.GET("", s.require(auth.CapTripsRead), s.listTrips)
	trips.POST("", s.require(auth.CapTripsWrite), s.createTrip)
	trips.GET("/:id", s.require(auth.CapTripsRead), s.getTrip)
	trips.PUT("/:id", s.require(auth.CapTripsWrite), s.updateTrip)
	trips.DELETE("/:id", s.require(auth.CapTripsWrite), s.deleteTrip)
	trips.PUT("/:id/pricing", s.require(auth.CapTripsWrite), s.setDynamicPricing)
	trips.GET("/:id/occupancy", s.require(auth.CapTripsRead), s.occupancy)
	trips.PUT("/:id/seats/:number", s.require(auth.CapTripsWrite), s.blockSeat)
	trips.POST("/:id/rooms", s.require(auth.CapTripsWrite), s.addRoom)
	trips.POST("/:id/recount", s.require(auth.CapTripsWrite), s.recount)
	trips.GET("/:id/clients", s.require(auth.CapClientsRead), s.tripClients)
	trips.GET("/:id/overdue", s.require(auth.CapBillingRead), s.tripOverdue)
	trips.GET("/:id/documents", s.require(auth.CapDocumentsRead), s.listDocuments(models.OwnerTrip))
	trips.POST("/:id/documents", s.require(auth.CapDocumentsEdit), s.uploadDocument(models.OwnerTrip))

	clients := priv.Group("/clients")
	clients.GET("", s.require(auth.CapClientsRead), s.listClients)
	clients.POST("", s.require(auth.CapClientsWrite), s.createClient)
	clients.GET("/:id", s.require(auth.CapClientsRead), s.getClient)
	clients.PUT("/:id", s.require(auth.CapClientsWrite), s.updateClient)
	clients.DELETE("/:id", s.require(auth.CapClientsWrite), s.deleteClient)
	clients.POST("/:id/companions", s.require(auth.CapClientsWrite), s.addCompanion)
	clients.PUT("/:id/seat", s.require(auth.CapClientsWrite), s.assignSeat)
	clients.DELETE("/:id/seat", s.require(auth.CapClientsWrite), s.releaseSeat)
	clients.PUT("/:id/room", s.require(auth.CapClientsWrite), s.assignRoom)
	clients.GET("/:id/installments", s.require(auth.CapBillingRead), s.listInstallments)
	clients.POST("/:id/installments", s.require(auth.CapBillingWrite), s.generateInstallments)
	clients.GET("/:id/payments", s.require(auth.CapBillingRead), s.listPayments)
	clients.POST("/:id/payments", s.require(auth.CapBillingWrite), s.recordPayment)
	clients.GET("/:id/statement", s.require(auth.CapBillingRead), s.statement)
	clients.GET("/:id/booklet.pdf", s.require(auth.CapBillingRead), s.bookletPDF)
	clients.GET("/:id/documents", s.require(auth.CapDocumentsRead), s.listDocuments(models.OwnerClient))
	clients.POST("/:id/documents", s.require(auth.CapDocumentsEdit), s.uploadDocument(models.OwnerClient))

	priv.POST("/installments/:id/pay", s.require(auth.CapBillingWrite), s.payInstallment)
	priv.GET("/payments/:id/receipt.pdf", s.require(auth.CapBillingRead), s.receiptPDF)

	priv.GET("/documents/:id", s.require(auth.CapDocumentsRead), s.downloadDocument)
	priv.DELETE("/documents/:id", s.require(auth.CapDocumentsEdit), s.deleteDocument)

	records := priv.Group("/records/:kind")
	records.GET("", s.require(auth.CapRecordsRead), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.list }))
	records.POST("", s.require(auth.CapRecordsWrite), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.create }))
	records.POST("/bulk", s.require(auth.CapRecordsWrite), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.bulk }))
	records.GET("/:id", s.require(auth.CapRecordsRead), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.get }))
	records.PUT("/:id", s.require(auth.CapRecordsWrite), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.update }))
	records.DELETE("/:id", s.require(auth.CapRecordsWrite), s.recordHandler(func(e recordEndpoints) gin.HandlerFunc { return e.remove }))

	priv.POST("/contract-forms/:id/convert", s.require(auth.CapClientsWrite), s.convertContractForm)
	priv.POST("/contract-forms/:id/reject", s.require(auth.CapRecordsWrite), s.rejectContractForm)

	priv.GET("/company", s.require(auth.CapTripsRead), s.companyConfig)
	priv.PUT("/company", s.require(auth.CapCompanyWrite), s.updateCompanyConfig)
	priv.GET("/reports/financial", s.require(auth.CapFinanceRead), s.financialReport)

	exports := priv.Group("/exports", s.require(auth.CapExport))
	exports.GET("/trips/:id/manifest.xlsx", s.exportManifest)
	exports.GET("/financial.xlsx", s.exportFinancial)
	exports.GET("/clients.csv", s.exportClientsCSV)

	backup := priv.Group("/backup", s.require(auth.CapBackup))
	backup.POST("/run", s.runBackup)
	backup.GET("/export", s.exportBackup)
	backup.GET("/status", s.backupStatus)

	auditLog := priv.Group("/audit", s.require(auth.CapAudit))
	auditLog.GET("", s.recentAudit)
	auditLog.DELETE("", s.pruneAudit)

	users := priv.Group("/users", s.require(auth.CapUsersManage))
	users.GET("", s.listUsers)
	users.POST("", s.createUser)
	users.PUT("/:id", s.updateUser)

	return r
}

func (s *HTTPServer) corsMiddleware() gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		cfg.AllowOrigins = []string{"http://localhost:5173"}
	} else {
		cfg.AllowOrigins = s.cfg.CORS.AllowedOrigins
	}
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization", "X-Request-ID")
	cfg.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	cfg.MaxAge = 12 * time.Hour
	return cors.New(cfg)
}
