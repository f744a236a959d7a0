//go:build !unix

package main

import (
	"context"

	"github.com/lixenwraith/cadence/settings"
)

// watchReload is a no-op where SIGHUP does not exist
func watchReload(ctx context.Context, cfg *settings.Settings) {}
