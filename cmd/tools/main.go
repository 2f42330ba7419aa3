package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(fmt.Errorf("failed to set up logger: %w", err))
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	sugar := logger.Sugar()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		if err := runValidate(os.Args[2:]); err != nil {
			sugar.Fatalf("validate: %v", err)
		}
	case "inspect":
		if err := runInspect(os.Args[2:]); err != nil {
			sugar.Fatalf("inspect: %v", err)
		}
	case "check-restrictions":
		if err := runCheckRestrictions(os.Args[2:]); err != nil {
			sugar.Fatalf("check-restrictions: %v", err)
		}
	case "init-registry":
		if err := runInitRegistry(os.Args[2:]); err != nil {
			sugar.Fatalf("init-registry: %v", err)
		}
	default:
		sugar.Errorf("unknown command %q", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	logger := zap.S()
	logger.Info("Usage: tca-tools <command> [options]")
	logger.Info("")
	logger.Info("Commands:")
	logger.Info("  validate              Validate and build the table configuration of a directory")
	logger.Info("  inspect               Print tables, capabilities and relations of the configured source")
	logger.Info("  check-restrictions    Compare voter verdicts with the rendered SQL restriction for a set of rows")
	logger.Info("  init-registry         Create the postgres registry table and register documents from a directory")
}
