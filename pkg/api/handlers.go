package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/openhaus/terncy-gateway/pkg/gateway"
)

// handleStatus returns the hub connection state and gateway counters.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"gateway_id": s.gateway.UniqueID(),
		"metrics":    s.gateway.GetMetrics(),
	})
}

// handleListDevices returns all known devices.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.gateway.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns a single device by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	did := chi.URLParam(r, "id")

	device, err := s.gateway.Device(did)
	if err != nil {
		if errors.Is(err, gateway.ErrDeviceNotFound) {
			writeNotFound(w, "device not found: "+did)
			return
		}
		writeInternalError(w, "device lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, device)
}

// handleListEntities returns all known entities.
func (s *Server) handleListEntities(w http.ResponseWriter, _ *http.Request) {
	entities := s.gateway.Entities()
	writeJSON(w, http.StatusOK, map[string]any{
		"entities": entities,
		"count":    len(entities),
	})
}

// handleGetEntity returns a single entity by id.
func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	eid := chi.URLParam(r, "id")

	entity, err := s.gateway.Entity(eid)
	if err != nil {
		if errors.Is(err, gateway.ErrEntityNotFound) {
			writeNotFound(w, "entity not found: "+eid)
			return
		}
		writeInternalError(w, "entity lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, entity)
}

// handleListScenes returns all known scenes.
func (s *Server) handleListScenes(w http.ResponseWriter, _ *http.Request) {
	scenes := s.gateway.Scenes()
	writeJSON(w, http.StatusOK, map[string]any{
		"scenes": scenes,
		"count":  len(scenes),
	})
}

// setAttributesRequest is the body of PUT /entities/{id}/attributes.
type setAttributesRequest struct {
	Attrs  []gateway.AttrValue `json:"attrs"`
	Method int                 `json:"method"`
}

// handleSetEntityAttributes forwards an attribute write through the gateway
// command path. The write is optimistic: on success the local state is
// updated immediately and listeners are notified.
func (s *Server) handleSetEntityAttributes(w http.ResponseWriter, r *http.Request) {
	eid := chi.URLParam(r, "id")

	if _, err := s.gateway.Entity(eid); err != nil {
		if errors.Is(err, gateway.ErrEntityNotFound) {
			writeNotFound(w, "entity not found: "+eid)
			return
		}
		writeInternalError(w, "entity lookup failed")
		return
	}

	var req setAttributesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if len(req.Attrs) == 0 {
		writeBadRequest(w, "attrs is required")
		return
	}
	for _, av := range req.Attrs {
		if av.Attr == "" {
			writeBadRequest(w, "attr name is required")
			return
		}
	}

	if err := s.gateway.SetAttributes(r.Context(), eid, req.Attrs, req.Method); err != nil {
		s.logger.Warn("attribute write failed", "eid", eid, "error", err)
		writeInternalError(w, "attribute write failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"eid":     eid,
		"applied": len(req.Attrs),
	})
}
