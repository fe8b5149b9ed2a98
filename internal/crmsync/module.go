// Package crmsync wires the CRM sync state machine: repository, service, and
// operator endpoints.
package crmsync

import (
	"leadlift_backend/internal/crm"
	"leadlift_backend/internal/crmsync/handler"
	"leadlift_backend/internal/crmsync/repository"
	"leadlift_backend/internal/crmsync/service"
	apphttp "leadlift_backend/internal/http"
	"leadlift_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Module struct {
	Service *service.Service
	handler *handler.Handler
}

func NewModule(pool *pgxpool.Pool, leads service.LeadReader, adapters *crm.Registry, queue service.Enqueuer, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, leads, adapters, queue, log)
	return &Module{
		Service: svc,
		handler: handler.New(svc),
	}
}

func (m *Module) Name() string {
	return "crmsync"
}

func (m *Module) RegisterRoutes(rc apphttp.RouterContext) {
	m.handler.RegisterAdminRoutes(rc.Admin.Group("/sync"))
}
