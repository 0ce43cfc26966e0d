package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

type invoiceIDsRequest struct {
	IDs []snowflake.ID `json:"ids"`
}

func bindInvoiceIDs(c *gin.Context) ([]snowflake.ID, bool) {
	var req invoiceIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return nil, false
	}
	return req.IDs, true
}

// PostInvoices posts the invoices and extracts their declaration records.
func (s *Server) PostInvoices(c *gin.Context) {
	ids, ok := bindInvoiceIDs(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.Post(c.Request.Context(), ids); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "posted"})
}

func (s *Server) DraftInvoices(c *gin.Context) {
	ids, ok := bindInvoiceIDs(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.ReturnToDraft(c.Request.Context(), ids); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "draft"})
}

func (s *Server) CancelInvoices(c *gin.Context) {
	ids, ok := bindInvoiceIDs(c)
	if !ok {
		return
	}

	if err := s.invoiceSvc.Cancel(c.Request.Context(), ids); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// RecalculateRecords re-extracts the declaration records of the invoices.
func (s *Server) RecalculateRecords(c *gin.Context) {
	ids, ok := bindInvoiceIDs(c)
	if !ok {
		return
	}

	if err := s.recordSvc.CreateForInvoices(c.Request.Context(), ids); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "recalculated"})
}

type reassignRequest struct {
	IDs          []snowflake.ID `json:"ids"`
	BookKey      string         `json:"book_key"`
	OperationKey string         `json:"operation_key"`
}

// ReassignRecords rewrites the book and/or operation key of the invoices'
// lines and re-extracts their records.
func (s *Server) ReassignRecords(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.BookKey == "" && req.OperationKey == "" {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.recordSvc.Reassign(c.Request.Context(), req.IDs, req.BookKey, req.OperationKey)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reassigned"})
}
