package main

import (
	"context"

	"lendingops/cmd/lendingops/commands"
	"lendingops/lib/serviceutil"
)

func main() {
	ctx, stop := serviceutil.SignalContext(context.Background())
	err := commands.ExecuteContext(ctx)
	stop()
	if err != nil {
		serviceutil.Fatal("command failed", err)
	}
}
