package main

import (
	"context"
	"log"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	stopProfile()
	if err != nil {
		log.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
