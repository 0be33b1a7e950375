package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"draco-chat-be/pkg/events"
	pktNats "draco-chat-be/pkg/nats"
)

// events-tail follows the backend's event stream. Handy for checking that
// run and chat events actually land on NATS in a deployed environment.

func main() {
	natsURL := flag.String("nats", "nats://localhost:4222", "NATS server URL")
	subject := flag.String("subject", "events.>", "subject filter")
	durable := flag.String("durable", "events-tail", "durable consumer name")
	flag.Parse()

	sub, err := pktNats.NewSubscriber(*natsURL)
	if err != nil {
		log.Fatalf("connect to NATS: %v", err)
	}
	defer sub.Close()

	err = sub.Subscribe(*subject, *durable, func(_ context.Context, evt events.Event) error {
		printEvent(evt)
		return nil
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func printEvent(evt events.Event) {
	header := color.New(color.FgGreen)
	switch evt.EventType() {
	case events.TypeDebugRunFailed:
		header = color.New(color.FgRed)
	case events.TypeDebugRunCompleted:
		header = color.New(color.FgGreen)
	case events.TypeChatMessageCreated:
		header = color.New(color.FgCyan)
	}

	header.Printf("[%s] %s\n", evt.Timestamp().Format("15:04:05"), evt.EventType())
	if payload, err := json.MarshalIndent(evt.Payload(), "  ", "  "); err == nil {
		log.Printf("  %s", payload)
	}
}
