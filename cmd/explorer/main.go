package main

import (
	"time"

	"github.com/niksmo/product-explorer/config"
	"github.com/niksmo/product-explorer/internal/app"
	"github.com/niksmo/product-explorer/pkg/sigctx"
)

const closeTimeout = 10 * time.Second

func main() {
	sigCtx, closeApp := sigctx.NotifyContext()
	defer closeApp()

	cfg := config.Load()
	cfg.Print()

	explorer := app.New(sigCtx, cfg)

	explorer.Run(closeApp)

	<-sigCtx.Done()
	ctx, cancel := sigctx.ShutdownContext(closeTimeout)
	defer cancel()

	explorer.Close(ctx)
}
