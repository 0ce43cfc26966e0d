package taxrecord

import (
	"github.com/smallbiznis/aeat340/internal/taxrecord/service"
	"go.uber.org/fx"
)

var Module = fx.Module("taxrecord.service",
	fx.Provide(service.NewService),
)
