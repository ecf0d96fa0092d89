package main

import (
	"github.com/docustitch/backend/internal/server"
	"github.com/docustitch/backend/internal/util"
	"github.com/docustitch/backend/pkg/logger"
	"github.com/docustitch/backend/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
