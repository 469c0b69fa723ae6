// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package apiserver

import (
	"encoding/json"
	"net/http"

	"github.com/juju/errors"

	"github.com/canonical/pinmanager/apiserver/params"
	pinerrors "github.com/canonical/pinmanager/domain/pin/errors"
)

func malformed(err error) error {
	return pinerrors.WithKind(pinerrors.InvalidMessage, err)
}

// routeError is raised by the router itself, before any request is
// handled.
type routeError struct {
	status int
	err    error
}

func (e *routeError) Error() string {
	return e.err.Error()
}

// ErrorAndStatus returns the wire error and HTTP status for err.
func ErrorAndStatus(err error) (params.Error, int) {
	var rerr *routeError
	if errors.As(err, &rerr) {
		return params.Error{Message: err.Error(), Code: http.StatusText(rerr.status)}, rerr.status
	}

	kind := pinerrors.Kind(err)
	perr := params.Error{Message: err.Error(), Code: string(kind)}
	switch kind {
	case pinerrors.InvalidMessage:
		if errors.Is(err, pinerrors.PinNotFound) {
			return perr, http.StatusNotFound
		}
		return perr, http.StatusBadRequest
	case pinerrors.PermissionDenied:
		return perr, http.StatusForbidden
	case pinerrors.Timeout:
		return perr, http.StatusGatewayTimeout
	case pinerrors.InvalidPin:
		return perr, http.StatusConflict
	}
	return perr, http.StatusInternalServerError
}

func (h *pinsHandler) sendError(w http.ResponseWriter, req *http.Request, err error) {
	perr, status := ErrorAndStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf(req.Context(), "returning error from %s %s: %s", req.Method, req.URL, errors.Details(err))
	} else {
		h.logger.Debugf(req.Context(), "returning error from %s %s: %v", req.Method, req.URL, err)
	}
	h.sendJSON(w, req, status, perr)
}

func (h *pinsHandler) sendJSON(w http.ResponseWriter, req *http.Request, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Errorf(req.Context(), "cannot marshal response to %s %s: %v", req.Method, req.URL, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debugf(req.Context(), "writing response to %s %s: %v", req.Method, req.URL, err)
	}
}
