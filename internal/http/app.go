// Package http hosts the router assembly shared by the API entrypoint.
// Feature modules register their routes through RouterContext so the
// composition root never reaches into handler packages.
package http

import "github.com/gin-gonic/gin"

// RouterContext carries the route groups a module can mount on. Public is
// the unauthenticated intake surface, Admin the operator surface.
type RouterContext struct {
	Public *gin.RouterGroup
	Admin  *gin.RouterGroup
}

// Module is a feature module that owns a slice of the route space.
type Module interface {
	Name() string
	RegisterRoutes(rc RouterContext)
}
