// Package main runs the operator CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	admincmd "github.com/louisbranch/roleandroll/internal/cmd/admin"
	"github.com/louisbranch/roleandroll/internal/platform/config"
)

func main() {
	cfg, err := admincmd.ParseConfig()
	if err != nil {
		config.Exitf("parse config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := admincmd.Run(ctx, cfg, os.Args[1:], os.Stdout); err != nil {
		stop()
		config.Exitf("Error: %v", err)
	}
}
