package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	reportdomain "github.com/smallbiznis/aeat340/internal/report/domain"
)

func parseID(c *gin.Context, param string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(param))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return 0, false
	}
	return id, true
}

func (s *Server) CreateReport(c *gin.Context) {
	var req reportdomain.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.reportSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReports(c *gin.Context) {
	resp, err := s.reportSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetReportTotals(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	resp, err := s.reportSvc.Totals(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// DownloadReportFile serves the declaration file of a processed report. The
// payload is ISO 8859-1 encoded text.
func (s *Server) DownloadReportFile(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := s.reportSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if len(report.File) == 0 {
		AbortWithError(c, reportdomain.ErrReportNotFound)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename()+`"`)
	c.Data(http.StatusOK, "text/plain; charset=ISO-8859-1", report.File)
}

type reportIDsRequest struct {
	IDs []snowflake.ID `json:"ids"`
}

func (s *Server) CalculateReports(c *gin.Context) {
	var req reportIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	if err := s.reportSvc.Calculate(c.Request.Context(), req.IDs); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "calculated"})
}

func (s *Server) ProcessReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.reportSvc.Process(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "done"})
}

func (s *Server) DraftReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.reportSvc.Draft(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "draft"})
}

func (s *Server) CancelReport(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := s.reportSvc.Cancel(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

func (s *Server) UpdateReportLine(c *gin.Context) {
	lineID, ok := parseID(c, "line_id")
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil || len(fields) == 0 {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.reportSvc.UpdateLine(c.Request.Context(), reportdomain.LineUpdate{
		Kind:   reportdomain.Kind(c.Param("kind")),
		LineID: lineID,
		Fields: fields,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (s *Server) DeleteReportLine(c *gin.Context) {
	lineID, ok := parseID(c, "line_id")
	if !ok {
		return
	}

	err := s.reportSvc.DeleteLine(c.Request.Context(),
		reportdomain.Kind(c.Param("kind")), lineID, false)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
