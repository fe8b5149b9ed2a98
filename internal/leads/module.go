// Package leads wires the lead intake context: repository, scoring service,
// and HTTP surface.
package leads

import (
	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/events"
	apphttp "leadlift_backend/internal/http"
	"leadlift_backend/internal/leads/handler"
	"leadlift_backend/internal/leads/repository"
	"leadlift_backend/internal/leads/service"
	"leadlift_backend/platform/logger"
	"leadlift_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, bus events.Bus, recorder analytics.Recorder, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, recorder, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc, val),
	}
}

func (m *Module) Name() string {
	return "leads"
}

func (m *Module) RegisterRoutes(rc apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(rc.Public.Group("/leads"))
	m.handler.RegisterAdminRoutes(rc.Admin.Group("/leads"))
}
