// Package router assembles the versioned route table of the production API.
package router

import (
	"net/http"
	"path"

	"github.com/erp/production/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// DefaultAPIVersion is the prefix segment used when Mount gets an empty version.
const DefaultAPIVersion = "v1"

// Route is one endpoint of a Resource, relative to its prefix.
type Route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
}

// Resource is a group of routes sharing a prefix and middleware.
type Resource struct {
	Name       string
	Prefix     string
	Middleware []gin.HandlerFunc
	Routes     []Route
}

// Mount registers resources under /api/<version> and returns the mounted
// endpoints as "METHOD /full/path", in registration order.
func Mount(engine *gin.Engine, version string, resources ...Resource) []string {
	if version == "" {
		version = DefaultAPIVersion
	}
	api := engine.Group("/api/" + version)

	var mounted []string
	for _, res := range resources {
		group := api.Group(res.Prefix, res.Middleware...)
		for _, rt := range res.Routes {
			group.Handle(rt.Method, rt.Path, rt.Handler)
			mounted = append(mounted, rt.Method+" "+joinPath(group.BasePath(), rt.Path))
		}
	}
	return mounted
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	return path.Join(base, rel)
}

// ProductionOrderRoutes maps the production order lifecycle.
func ProductionOrderRoutes(h *handler.ProductionOrderHandler) Resource {
	return Resource{
		Name:   "production-orders",
		Prefix: "/production-orders",
		Routes: []Route{
			{http.MethodPost, "", h.Create},
			{http.MethodGet, "", h.List},
			{http.MethodGet, "/:orderNo", h.Get},
			{http.MethodPut, "/:orderNo", h.Update},
			{http.MethodPost, "/:orderNo/reserve", h.Reserve},
			{http.MethodPost, "/:orderNo/unreserve", h.Unreserve},
			{http.MethodPost, "/:orderNo/consume", h.Consume},
			{http.MethodPost, "/:orderNo/results", h.RecordResult},
			{http.MethodGet, "/:orderNo/results", h.ListResults},
			{http.MethodPost, "/:orderNo/receive", h.Receive},
			{http.MethodPost, "/:orderNo/cancel", h.Cancel},
			{http.MethodGet, "/:orderNo/movements", h.Movements},
		},
	}
}

// StockRoutes maps balance, ledger and posting endpoints.
func StockRoutes(h *handler.StockHandler) Resource {
	return Resource{
		Name:   "stock",
		Prefix: "/stock",
		Routes: []Route{
			{http.MethodGet, "/balances/:item/:warehouse", h.GetBalance},
			{http.MethodGet, "/ledger", h.Ledger},
			{http.MethodPost, "/inbound", h.Inbound},
			{http.MethodPost, "/outbound", h.Outbound},
			{http.MethodPost, "/verify/:item/:warehouse", h.Verify},
			{http.MethodPost, "/release/:item/:warehouse", h.Release},
		},
	}
}
