package main

import (
	"github.com/casegraph/backend/internal/server"
	"github.com/casegraph/backend/internal/util"
	"github.com/casegraph/backend/pkg/logger"
	"github.com/casegraph/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnv("LOG_FORMAT") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
