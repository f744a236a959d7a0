//go:build unix

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lixenwraith/cadence/core"
	"github.com/lixenwraith/cadence/settings"
)

// watchReload re-reads the settings file on SIGHUP until ctx is done
// A changed threading policy is picked up by the orchestrator at its next replan check
func watchReload(ctx context.Context, cfg *settings.Settings) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)

	core.Go(func() {
		defer signal.Stop(hup)
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := cfg.Reload(); err != nil {
					log.Printf("[main] settings reload failed: %v", err)
				}
			}
		}
	})
}
