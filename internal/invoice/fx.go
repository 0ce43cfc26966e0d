package invoice

import (
	"github.com/smallbiznis/aeat340/internal/invoice/service"
	"github.com/smallbiznis/aeat340/internal/taxrecord"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	taxrecord.Module,
	fx.Provide(service.NewService),
)
