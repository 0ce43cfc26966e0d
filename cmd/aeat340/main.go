package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/aeat340/internal/clock"
	"github.com/smallbiznis/aeat340/internal/config"
	"github.com/smallbiznis/aeat340/internal/logger"
	"github.com/smallbiznis/aeat340/internal/migration"
	"github.com/smallbiznis/aeat340/internal/seed"
	"github.com/smallbiznis/aeat340/internal/server"
	"github.com/smallbiznis/aeat340/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		fx.Invoke(seed.EnsureVATRates),
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
