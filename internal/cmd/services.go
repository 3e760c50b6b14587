package main

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/taskduel/taskduel/internal/challenge"
	"github.com/taskduel/taskduel/internal/duel"
	"github.com/taskduel/taskduel/internal/duel/events"
	"github.com/taskduel/taskduel/internal/duel/gateway"
)

type Services struct {
	Registry     *duel.Registry
	Challenges   *challenge.Repository
	Orchestrator *gateway.Orchestrator
	Gateway      *gateway.Handler
}

func setupServices(pool *pgxpool.Pool, publisher *events.Publisher, config *Config) *Services {
	// Database layer → Repository layer → Orchestrator → Handler
	challengeRepo := challenge.NewRepository(pool)
	registry := duel.NewRegistry()

	// A typed nil publisher must stay nil through the interface.
	var eventPublisher gateway.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}

	orchestrator := gateway.NewOrchestrator(
		registry,
		challengeRepo,
		eventPublisher,
		clockwork.NewRealClock(),
		gateway.DefaultConnectionConfig(),
		config.duelConfig(),
	)
	wsHandler := gateway.NewHandler(orchestrator)

	return &Services{
		Registry:     registry,
		Challenges:   challengeRepo,
		Orchestrator: orchestrator,
		Gateway:      wsHandler,
	}
}
