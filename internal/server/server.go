package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/aeat340/internal/config"
	"github.com/smallbiznis/aeat340/internal/invoice"
	invoicedomain "github.com/smallbiznis/aeat340/internal/invoice/domain"
	"github.com/smallbiznis/aeat340/internal/report"
	reportdomain "github.com/smallbiznis/aeat340/internal/report/domain"
	taxrecorddomain "github.com/smallbiznis/aeat340/internal/taxrecord/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	invoice.Module,
	report.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func registerGin(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	invoiceSvc invoicedomain.Service
	recordSvc  taxrecorddomain.Service
	reportSvc  reportdomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	InvoiceSvc invoicedomain.Service
	RecordSvc  taxrecorddomain.Service
	ReportSvc  reportdomain.Service
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		invoiceSvc: p.InvoiceSvc,
		recordSvc:  p.RecordSvc,
		reportSvc:  p.ReportSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	reports := v1.Group("/reports")
	reports.POST("", s.CreateReport)
	reports.GET("", s.ListReports)
	reports.GET("/:id", s.GetReport)
	reports.GET("/:id/totals", s.GetReportTotals)
	reports.GET("/:id/file", s.DownloadReportFile)
	reports.POST("/calculate", s.CalculateReports)
	reports.POST("/:id/process", s.ProcessReport)
	reports.POST("/:id/draft", s.DraftReport)
	reports.POST("/:id/cancel", s.CancelReport)
	reports.PATCH("/:id/lines/:kind/:line_id", s.UpdateReportLine)
	reports.DELETE("/:id/lines/:kind/:line_id", s.DeleteReportLine)

	invoices := v1.Group("/invoices")
	invoices.POST("/post", s.PostInvoices)
	invoices.POST("/draft", s.DraftInvoices)
	invoices.POST("/cancel", s.CancelInvoices)
	invoices.POST("/records/recalculate", s.RecalculateRecords)
	invoices.POST("/records/reassign", s.ReassignRecords)
}
