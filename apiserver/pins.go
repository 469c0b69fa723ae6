// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apiserver

import (
	"encoding/json"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/juju/names/v5"

	"github.com/canonical/pinmanager/apiserver/params"
	"github.com/canonical/pinmanager/core/logger"
	"github.com/canonical/pinmanager/core/pin"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

type pinsHandler struct {
	handler Handler
	logger  logger.Logger
}

func (h *pinsHandler) serveMove(w http.ResponseWriter, req *http.Request) {
	var args params.MovePinsArgs
	if err := decodeBody(req, &args); err != nil {
		h.sendError(w, req, err)
		return
	}

	outcome, err := h.handler.Handle(req.Context(), pin.MovePinsRequest{
		FileID:       mux.Vars(req)["file"],
		SourcePool:   args.SourcePool,
		TargetPool:   args.TargetPool,
		StickyOwners: args.StickyOwners,
	})
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	h.sendJSON(w, req, http.StatusOK, params.MovePinsResult{
		Moved:   outcome.Moved,
		Cleared: outcome.Cleared,
	})
}

func (h *pinsHandler) servePin(w http.ResponseWriter, req *http.Request) {
	subject, err := subjectOf(req)
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	var args params.PinFileArgs
	if err := decodeBody(req, &args); err != nil {
		h.sendError(w, req, err)
		return
	}

	life, err := lifetime(args.LifetimeSeconds)
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	outcome, err := h.handler.Handle(req.Context(), pin.PinFileRequest{
		FileID:   mux.Vars(req)["file"],
		Pool:     args.Pool,
		Lifetime: life,
		Subject:  subject,
	})
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	if outcome.Pin == nil {
		h.sendError(w, req, errors.New("pin request returned no pin"))
		return
	}
	h.sendJSON(w, req, http.StatusCreated, toParamsPin(*outcome.Pin))
}

func (h *pinsHandler) serveList(w http.ResponseWriter, req *http.Request) {
	outcome, err := h.handler.Handle(req.Context(), pin.ListPinsRequest{
		FileID: mux.Vars(req)["file"],
		Pool:   req.URL.Query().Get("pool"),
	})
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	result := params.PinsResult{Pins: make([]params.Pin, len(outcome.Pins))}
	for i, p := range outcome.Pins {
		result.Pins[i] = toParamsPin(p)
	}
	h.sendJSON(w, req, http.StatusOK, result)
}

func (h *pinsHandler) serveExtend(w http.ResponseWriter, req *http.Request) {
	subject, err := subjectOf(req)
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	var args params.ExtendPinArgs
	if err := decodeBody(req, &args); err != nil {
		h.sendError(w, req, err)
		return
	}
	if args.LifetimeSeconds == nil {
		h.sendError(w, req, malformed(errors.New("missing lifetime-seconds")))
		return
	}

	life, err := lifetime(*args.LifetimeSeconds)
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	vars := mux.Vars(req)
	outcome, err := h.handler.Handle(req.Context(), pin.ExtendPinRequest{
		FileID:   vars["file"],
		PinID:    vars["pin"],
		Lifetime: life,
		Subject:  subject,
	})
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	h.sendJSON(w, req, http.StatusOK, params.ExtendPinResult{Expiration: outcome.Expiration})
}

func (h *pinsHandler) serveUnpin(w http.ResponseWriter, req *http.Request) {
	subject, err := subjectOf(req)
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	vars := mux.Vars(req)
	_, err = h.handler.Handle(req.Context(), pin.UnpinRequest{
		FileID:  vars["file"],
		PinID:   vars["pin"],
		Subject: subject,
	})
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func versionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(params.VersionResult{Version: version})
	}
}

// subjectOf returns the caller named in the subject header. A missing
// header yields an empty tag, which requests reject as invalid.
func subjectOf(req *http.Request) (names.UserTag, error) {
	name := req.Header.Get(params.SubjectHeader)
	if name == "" {
		return names.UserTag{}, nil
	}
	if !names.IsValidUser(name) {
		return names.UserTag{}, pinerrors.WithKind(pinerrors.InvalidMessage,
			errors.NotValidf("subject %q", name))
	}
	return names.NewUserTag(name), nil
}

func decodeBody(req *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed(errors.Annotate(err, "decoding request body"))
	}
	return nil
}

// maxLifetimeSeconds is the largest finite lifetime a time.Duration holds.
const maxLifetimeSeconds = math.MaxInt64 / int64(time.Second)

// lifetime converts wire seconds, negative meaning unbounded.
func lifetime(seconds int64) (time.Duration, error) {
	if seconds < 0 {
		return pin.UnboundedLifetime, nil
	}
	if seconds > maxLifetimeSeconds {
		return 0, malformed(errors.Errorf(
			"lifetime-seconds %d exceeds maximum %d", seconds, maxLifetimeSeconds))
	}
	return time.Duration(seconds) * time.Second, nil
}

func toParamsPin(p pin.Pin) params.Pin {
	return params.Pin{
		ID:         p.ID,
		FileID:     p.FileID,
		Pool:       p.Pool,
		State:      string(p.State),
		Expiration: p.Expiration,
		Owner:      p.Owner,
		Created:    p.CreationTime,
	}
}
