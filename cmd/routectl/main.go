package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/yungbote/route-registry/internal/platform/ctxutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = ctxutil.WithTraceData(ctx, &ctxutil.TraceData{RequestID: uuid.NewString()})
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "routectl: %v\n", err)
		os.Exit(exitCode(err))
	}
}
