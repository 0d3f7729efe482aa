package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	config "github.com/avvvet/monopoly-services/configs"
	"github.com/avvvet/monopoly-services/internal/broker"
	"github.com/avvvet/monopoly-services/internal/comm"
	gameconfig "github.com/avvvet/monopoly-services/internal/gamesvc/config"
	"github.com/avvvet/monopoly-services/internal/ledgersvc/db"
	"github.com/avvvet/monopoly-services/internal/ledgersvc/store"
	natscli "github.com/avvvet/monopoly-services/internal/nats"
)

const SERVICE_NAME = "ledger"

func main() {
	config.LoadEnv(SERVICE_NAME)
	cfg, err := gameconfig.LoadLedger()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	instanceId := config.CreateUniqueInstance(SERVICE_NAME)
	logFile := config.Logging(SERVICE_NAME+"_service_"+instanceId, cfg.Debug, cfg.LogStdout)
	defer logFile.Close()

	// pg connection
	dbpool, err := db.Connect(cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer dbpool.Close()
	log.Printf("pg connection established successfully")

	events := store.NewEventStore(dbpool)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = events.EnsureSchema(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}

	// Connect to NATS
	n, err := natscli.Connect(SERVICE_NAME+"_service", cfg.NatsURL, cfg.NatsToken)
	if err != nil {
		log.Fatalf("Error: unable to connect to NATS server %v", err)
	}
	defer n.Close()
	log.Printf("NATS connection established successfully %s", n.Url)

	b := broker.NewBroker(n.Conn, instanceId)
	sub, err := b.QueueSubscribe(broker.TopicGameEvents, cfg.LedgerQueue, func(e *comm.GameEvent) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := events.Append(ctx, e); err != nil {
			log.Errorf("unable to record event: %v", err)
			return
		}
		log.Debugf("recorded %s for game %d", e.Type, e.GameId)
	})
	if err != nil {
		log.Fatalf("Error: unable to subscribe to %s %v", broker.TopicGameEvents, err)
	}
	log.Infof("%s service consuming %s as queue %s", SERVICE_NAME, broker.TopicGameEvents, cfg.LedgerQueue)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sub.Unsubscribe()
	log.Infof("%s service gracefully stopped", SERVICE_NAME)
}
