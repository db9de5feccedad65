package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/patrikhermansson/mff/cmd"
	"github.com/rs/zerolog/log"
)

// main is the entry point of the application.
// Logging is configured by the DEBUG_MFF environment variable (see core).
// It starts a goroutine to listen for interrupt signals and executes the command.
func main() {
	// This block sets up a go routine to listen for an interrupt signal which will immediately exit the program
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, os.Interrupt)
	go listenForInterrupt(stopChan)

	// Program entry point
	if err := cmd.Execute(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// listenForInterrupt listens for an interrupt signal and exits the program when it is received.
// It takes a channel of os.Signal as a parameter.
func listenForInterrupt(stopChan chan os.Signal) {
	<-stopChan
	log.Fatal().Msg("Interrupt signal received. Exiting...")
}
