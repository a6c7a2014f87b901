// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"fmt"

	"sales_crm_backend/internal/events"
	apphttp "sales_crm_backend/internal/http"
	"sales_crm_backend/internal/leads/engagement"
	"sales_crm_backend/internal/leads/handler"
	"sales_crm_backend/internal/leads/management"
	"sales_crm_backend/internal/leads/ports"
	"sales_crm_backend/internal/leads/repository"
	"sales_crm_backend/internal/leads/scoring"
	"sales_crm_backend/platform/config"
	"sales_crm_backend/platform/logger"
	"sales_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// queue receives every scoring trigger raised on the request path.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, queue ports.ScoreQueue, cfg config.ScoringConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)

	accumulator := engagement.NewAccumulator(repo, cfg.GetEngagementResponseWindow())
	mgmtSvc := management.New(repo, accumulator, queue, scoring.NewTriggerDelays(cfg), eventBus)

	subscribeLeadEvents(eventBus, log)

	return &Module{
		handler:    handler.New(mgmtSvc, val),
		management: mgmtSvc,
	}
}

// NewScoreRecalculator builds the worker-side job processor. Weights come from
// the configured policy file, or the built-in defaults when none is set. Score
// event subscribers are attached to eventBus, the bus the recalculator publishes on.
func NewScoreRecalculator(pool *pgxpool.Pool, eventBus events.Bus, cfg config.ScoringConfig, log *logger.Logger) (*scoring.Recalculator, error) {
	weights, err := scoring.LoadWeights(cfg.GetScorePolicyFile())
	if err != nil {
		return nil, fmt.Errorf("load score policy: %w", err)
	}
	log.Info("score policy loaded", "version", weights.Version)

	subscribeScoreEvents(eventBus, log)

	return scoring.NewRecalculator(
		repository.New(pool),
		scoring.NewDefaultPolicy(weights),
		eventBus,
		log,
		scoring.SettingsFromConfig(cfg),
	), nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
