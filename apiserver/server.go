// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

// Package apiserver serves the pin manager HTTP API. Every route builds a
// single tagged request and hands it to the pin service.
package apiserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/juju/errors"

	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/core/pin"
)

// maxBodySize bounds request bodies.
const maxBodySize = 1 << 20

// Handler handles tagged pin requests.
type Handler interface {
	Handle(ctx context.Context, req pin.Request) (pin.Outcome, error)
}

// RequestTracker counts requests in flight.
type RequestTracker interface {
	// TrackRequest is called when a request starts, the returned func when
	// it ends.
	TrackRequest() func()
}

// Config holds the dependencies of the API.
type Config struct {
	Handler Handler
	Logger  logger.Logger

	// Tracker is optional.
	Tracker RequestTracker

	// Version is reported on /v1/version.
	Version string
}

// Validate returns an error if the config cannot be used.
func (c Config) Validate() error {
	if c.Handler == nil {
		return errors.NotValidf("nil Handler")
	}
	if c.Logger == nil {
		return errors.NotValidf("nil Logger")
	}
	return nil
}

// NewRouter returns an http.Handler serving the API.
func NewRouter(config Config) (*mux.Router, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	api := &pinsHandler{
		handler: config.Handler,
		logger:  config.Logger,
	}

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		api.sendError(w, req, &routeError{
			status: http.StatusNotFound,
			err:    errors.NotFoundf("route %s %s", req.Method, req.URL.Path),
		})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		api.sendError(w, req, &routeError{
			status: http.StatusMethodNotAllowed,
			err:    errors.MethodNotAllowedf("unsupported method: %q", req.Method),
		})
	})
	if config.Tracker != nil {
		r.Use(trackRequests(config.Tracker))
	}

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/version", versionHandler(config.Version)).Methods(http.MethodGet)
	v1.HandleFunc("/files/{file}/move", api.serveMove).Methods(http.MethodPost)
	v1.HandleFunc("/files/{file}/pins", api.serveList).Methods(http.MethodGet)
	v1.HandleFunc("/files/{file}/pins", api.servePin).Methods(http.MethodPost)
	v1.HandleFunc("/files/{file}/pins/{pin}/extend", api.serveExtend).Methods(http.MethodPost)
	v1.HandleFunc("/files/{file}/pins/{pin}", api.serveUnpin).Methods(http.MethodDelete)

	return r, nil
}

func trackRequests(tracker RequestTracker) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			done := tracker.TrackRequest()
			defer done()
			next.ServeHTTP(w, req)
		})
	}
}
