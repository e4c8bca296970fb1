package main

import (
	"context"
	"flag"
	"fmt"
	"github.com/lefinal/bedwars-server/app"
	"github.com/lefinal/bedwars-server/errors"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file")
	flag.Parse()
	config, err := app.LoadConfig(*configPath)
	if err != nil {
		log.Fatal(errors.Prettify(err))
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	err = app.NewApp(config).Boot(ctx)
	if err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, errors.Prettify(err))
		os.Exit(1)
	}
}
