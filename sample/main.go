// Command sample runs an autobop bot: it joins the configured room, upvotes
// every song as it starts, and prints each vote outcome.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/nmalaguti/Turntable-API-sharp/config"
	"github.com/nmalaguti/Turntable-API-sharp/handlers"
)

func main() {
	cfgPath := flag.String("config", "sample.yml", "path to the yaml config")
	flag.Parse()

	// Credentials may live in a .env file instead of the config.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logrus.Warnf("Error loading .env: %s", err)
	}

	b, err := config.BotFromCfgFile(*cfgPath)
	if err != nil {
		logrus.Fatalf("Error building bot: %s", err)
	}
	b.AddHandler(&handlers.Autobop{})
	b.AddHandler(&handlers.PingHandler{})
	b.AddHandler(&handlers.StatsHandler{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		if err := b.Stop(); err != nil {
			logrus.Errorf("Error stopping bot: %s", err)
		}
	}()

	if err := b.Run(ctx); err != nil {
		logrus.Fatalf("%s", err)
	}
}
