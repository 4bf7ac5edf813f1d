// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ethrelay/app/services/relay/handlers/v1/proofgrp"
	"github.com/ardanlabs/ethrelay/foundation/blockchain/relay"
	"github.com/ardanlabs/ethrelay/foundation/events"
	"github.com/ardanlabs/ethrelay/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	Relay *relay.Relay
	Evts  *events.Events
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	pgh := proofgrp.Handlers{
		Log:   cfg.Log,
		Relay: cfg.Relay,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", pgh.Events)
	app.Handle(http.MethodGet, version, "/status", pgh.Status)
	app.Handle(http.MethodPost, version, "/proof", pgh.SubmitHeader)
	app.Handle(http.MethodGet, version, "/proof/:number", pgh.QueryProof)
	app.Handle(http.MethodGet, version, "/header/:number", pgh.QueryHeader)
}
