package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"viagens/internal/models"
	"viagens/internal/service"

	"github.com/gin-gonic/gin"
)

func (s *HTTPServer) listInstallments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	installments, err := s.svc.Billing.ListInstallments(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, installments)
}

func (s *HTTPServer) generateInstallments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req service.InstallmentRequest
	if !bindJSON(c, &req) {
		return
	}
	req.ClientID = id
	installments, err := s.svc.Billing.GenerateInstallments(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, installments)
}

func (s *HTTPServer) listPayments(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	payments, err := s.svc.Billing.ListPayments(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (s *HTTPServer) recordPayment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payment models.Payment
	if !bindJSON(c, &payment) {
		return
	}
	payment.ID = 0
	payment.ClientID = id
	payment.RecordedBy = ""
	if err := s.svc.Billing.RecordPayment(c.Request.Context(), &payment); err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

type payInstallmentRequest struct {
	Method string     `json:"method"`
	PaidAt *time.Time `json:"paid_at"`
}

func (s *HTTPServer) payInstallment(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var req payInstallmentRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	var paidAt time.Time
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	payment, err := s.svc.Billing.PayInstallment(c.Request.Context(), id, req.Method, paidAt)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (s *HTTPServer) statement(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	st, err := s.svc.Billing.Statement(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *HTTPServer) receiptPDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	pdf, err := s.svc.Billing.ReceiptPDF(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	attachment(c, "application/pdf", fmt.Sprintf("recibo-%06d.pdf", id), pdf)
}

func (s *HTTPServer) bookletPDF(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	pdf, err := s.svc.Billing.BookletPDF(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	attachment(c, "application/pdf", fmt.Sprintf("carne-%06d.pdf", id), pdf)
}

// verifyReceipt lets anyone holding a printed receipt check it is genuine.
func (s *HTTPServer) verifyReceipt(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}
	valid, err := s.svc.Billing.VerifyReceipt(c.Request.Context(), id, strings.TrimSpace(c.Query("code")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": valid})
}
