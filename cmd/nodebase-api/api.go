// Package main provides the nodebase API server.
package main

import (
	"strconv"

	"github.com/dukex/nodebase/pkg/web"
	"github.com/gofiber/fiber/v3"
)

type API struct {
	deps web.Dependencies
}

func NewAPI(deps web.Dependencies) *API {
	return &API{deps: deps}
}

func (a *API) App() *fiber.App {
	return web.NewApp(a.deps)
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
