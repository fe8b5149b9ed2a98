// Package sequences wires the email sequence scheduler: repository, service,
// and operator endpoints.
package sequences

import (
	"leadlift_backend/internal/analytics"
	"leadlift_backend/internal/email"
	apphttp "leadlift_backend/internal/http"
	"leadlift_backend/internal/sequences/handler"
	"leadlift_backend/internal/sequences/repository"
	"leadlift_backend/internal/sequences/service"
	"leadlift_backend/platform/logger"
	"leadlift_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, leads service.LeadReader, sender email.Sender, recorder analytics.Recorder, queue service.Scheduler, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, sender, recorder, queue, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc, val),
	}
}

func (m *Module) Name() string {
	return "sequences"
}

func (m *Module) RegisterRoutes(rc apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(rc.Admin.Group("/sequences"))
}
