// Command topicmonitor wires the logging, config, script, queue, wheel,
// broker, and engine packages into a running process and blocks until
// terminated.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/brandonto/topic-monitor/internal/broker"
	"github.com/brandonto/topic-monitor/internal/config"
	"github.com/brandonto/topic-monitor/internal/engine"
	"github.com/brandonto/topic-monitor/internal/logging"
	"github.com/brandonto/topic-monitor/internal/queue"
	"github.com/brandonto/topic-monitor/internal/script"
	"github.com/brandonto/topic-monitor/internal/wheel"
)

func main() {
	os.Exit(run())
}

func run() int {
	credentialsPath := flag.String("credentials", "credentials.toml", "path to the broker credentials file (.toml or .yaml)")
	subscriptionsPath := flag.String("subscriptions", "subscriptionTable.toml", "path to the subscription table file (.toml or .yaml)")
	scriptsDir := flag.String("scripts-dir", "scripts", "directory containing onMessage/onTimer Lua scripts")
	brokerEngine := flag.String("broker-engine", "memory", "broker backend: memory or kafka")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma-separated Kafka bootstrap addresses (broker-engine=kafka only)")
	logLevel := flag.String("log-level", "info", "minimum log level: debug, info, warn, error, fatal")
	flag.Parse()

	logger := logging.New(*logLevel)

	creds, err := config.LoadCredentials(*credentialsPath)
	if err != nil {
		logger.Error("loading credentials", "path", *credentialsPath, "error", err)
		return -1
	}

	subs, err := config.LoadSubscriptionTable(*subscriptionsPath)
	if err != nil {
		logger.Error("loading subscription table", "path", *subscriptionsPath, "error", err)
		return -1
	}

	host := script.New(*scriptsDir)
	defer host.Close()

	q := queue.New()
	w := wheel.New()

	eng := engine.New(q, w, host, nil, logger)

	var adapter broker.Adapter
	switch *brokerEngine {
	case "memory":
		adapter = broker.NewMemoryAdapter(eng)
	case "kafka":
		adapter = broker.NewKafkaAdapter(broker.KafkaConfig{
			Brokers: splitNonEmpty(*kafkaBrokers),
			GroupID: creds.VPN,
		}, eng, logger)
	default:
		logger.Error("unknown broker engine", "engine", *brokerEngine)
		return -1
	}
	eng.SetAdapter(adapter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brokerCreds := broker.Credentials{Host: creds.Host, VPN: creds.VPN, Username: creds.Username, Password: creds.Password}
	if res := adapter.Connect(ctx, brokerCreds); res == broker.Failure {
		logger.Error("broker connect failed", "host", creds.Host, "vpn", creds.VPN)
		return -1
	}
	defer adapter.Disconnect(context.Background())

	if res := adapter.StartTickTimer(ctx); res == broker.Failure {
		logger.Error("starting tick timer failed")
		return -1
	}
	defer adapter.StopTickTimer()

	for _, info := range subs {
		if err := info.Validate(); err != nil {
			logger.Error("invalid subscription, skipping", "topic", info.Topic, "error", err)
			continue
		}
		if res := adapter.Subscribe(ctx, info.Topic); res == broker.Failure {
			logger.Error("broker subscribe failed, skipping", "topic", info.Topic)
			continue
		}
		eng.Subscribe(info)
	}

	dumpSig := make(chan os.Signal, 1)
	signal.Notify(dumpSig, syscall.SIGUSR1)
	go func() {
		for range dumpSig {
			w.DumpState(logger)
		}
	}()

	logger.Info("topicmonitor started", "subscriptions", len(subs), "broker-engine", *brokerEngine)
	eng.Run(ctx)
	logger.Info("topicmonitor stopped")
	return 0
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
