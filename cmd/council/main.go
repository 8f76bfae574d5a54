// council runs one council deliberation from the command line: load a
// config file, build the adapter registry, resolve a plan for the
// given question, run the pipeline, and print the final answer.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/vasic-digital/council/internal/adapter"
	"github.com/vasic-digital/council/internal/config"
	"github.com/vasic-digital/council/internal/council"
	"github.com/vasic-digital/council/internal/events"
	"github.com/vasic-digital/council/internal/planner"
	"github.com/vasic-digital/council/internal/repository"
)

func main() {
	var (
		configPath string
		envPath    string
		question   string
		jsonOutput bool
	)
	flag.StringVar(&configPath, "config", "council.yaml", "path to council config file")
	flag.StringVar(&envPath, "env", ".env", "path to .env file for credential substitution (optional)")
	flag.StringVar(&question, "question", "", "question to put to the council")
	flag.BoolVar(&jsonOutput, "json", false, "print the full session as JSON instead of just the final answer")
	flag.Parse()

	if question == "" {
		fmt.Fprintln(os.Stderr, "council: -question is required")
		os.Exit(1)
	}

	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.JSONFormatter{})

	loader := config.NewLoader(configPath, envPath)
	cfg, err := loader.Load()
	if err != nil {
		log.WithError(err).Fatal("council: failed to load config")
	}

	registry := adapter.NewRegistry()
	resolver := config.NewAdapterResolver(cfg, registry, config.DefaultTransport())

	var plannerAdapter adapter.ModelAdapter
	if cfg.Planner.PlannerModelID != "" {
		plannerAdapter, err = resolver(cfg.ModelPool()[cfg.Planner.PlannerModelID])
		if err != nil {
			log.WithError(err).Fatal("council: failed to resolve planner model")
		}
	}
	p := planner.New(cfg.ToPlannerConfig(plannerAdapter))

	bus := events.NewBus(events.NewMemoryStore(), log)
	repo := buildRepository(cfg)

	pipeline := council.New(p, resolver, bus, repo, log)

	sessionCfg := cfg.Session.ToSessionConfig()
	iterationCfg := cfg.Iteration.ToIterationConfig()
	memoryCfg := cfg.Memory.ToMemoryConfig()
	session, err := pipeline.Run(context.Background(), question, council.RunOptions{
		SessionOverride:   &sessionCfg,
		IterationOverride: &iterationCfg,
		MemoryOverride:    &memoryCfg,
	})
	if err != nil {
		log.WithError(err).Error("council: session failed")
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(data))
		return
	}

	if session.FinalAnswer != nil {
		fmt.Println(*session.FinalAnswer)
	} else {
		fmt.Fprintln(os.Stderr, "council: no final answer produced")
		os.Exit(1)
	}
}

func buildRepository(cfg *config.Config) repository.Repository {
	if cfg.Repository.Backend != "redis" {
		return repository.NewMemoryRepository()
	}

	client := newRedisClient(cfg.Repository.RedisAddr)
	return repository.NewRedisRepository(client, cfg.Repository.KeyPrefix)
}
