package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/models"
)

// FleetHandler serves vehicles, drivers and trips.
type FleetHandler struct {
	engine *fleet.Engine
}

// NewFleetHandler creates a fleet handler over engine.
func NewFleetHandler(engine *fleet.Engine) *FleetHandler {
	return &FleetHandler{engine: engine}
}

// query returns a query parameter, treating "All" as unset.
func query(r *http.Request, key string) string {
	v := r.URL.Query().Get(key)
	if v == "All" {
		return ""
	}
	return v
}

func boolQuery(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}

// patch merges the request body onto a stored document.
func patch[T any](w http.ResponseWriter, r *http.Request) (func(*T) error, bool) {
	body, err := readBody(w, r)
	if err != nil {
		badRequest(w, err)
		return nil, false
	}
	return func(doc *T) error {
		if len(body) == 0 {
			return nil
		}
		return unmarshal(body, doc)
	}, true
}

type statusRequest struct {
	Status string `json:"status"`
}

// ListVehicles handles GET /api/vehicles
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.engine.ListVehicles(r.Context(), models.VehicleFilter{
		Type:           models.VehicleType(query(r, "type")),
		Status:         models.VehicleStatus(query(r, "status")),
		Region:         query(r, "region"),
		Search:         query(r, "search"),
		ExcludeRetired: boolQuery(r, "active"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, vehicles)
}

// GetVehicle handles GET /api/vehicles/{id}
func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.GetVehicle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, v)
}

// CreateVehicle handles POST /api/vehicles
func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var in models.Vehicle
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.engine.CreateVehicle(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, v)
}

// UpdateVehicle handles PUT /api/vehicles/{id}
func (h *FleetHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	apply, ok := patch[models.Vehicle](w, r)
	if !ok {
		return
	}
	v, err := h.engine.UpdateVehicle(r.Context(), chi.URLParam(r, "id"), apply)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, v)
}

// SetVehicleStatus handles PATCH /api/vehicles/{id}/status
func (h *FleetHandler) SetVehicleStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	v, err := h.engine.SetVehicleStatus(r.Context(), chi.URLParam(r, "id"), models.VehicleStatus(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, v)
}

// DeleteVehicle handles DELETE /api/vehicles/{id}
func (h *FleetHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "vehicle deleted"})
}

// ListDrivers handles GET /api/drivers
func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.engine.ListDrivers(r.Context(), models.DriverFilter{
		Status: models.DriverStatus(query(r, "status")),
		Search: query(r, "search"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]driverView, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, viewDriver(d))
	}
	respond(w, http.StatusOK, out)
}

// driverView adds the derived completion rate.
type driverView struct {
	models.Driver
	CompletionRate float64 `json:"completion_rate"`
}

func viewDriver(d models.Driver) driverView {
	return driverView{Driver: d, CompletionRate: d.CompletionRate()}
}

// GetDriver handles GET /api/drivers/{id}
func (h *FleetHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	d, err := h.engine.GetDriver(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, viewDriver(*d))
}

// CreateDriver handles POST /api/drivers
func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var in models.Driver
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	d, err := h.engine.CreateDriver(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, viewDriver(*d))
}

// UpdateDriver handles PUT /api/drivers/{id}
func (h *FleetHandler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	apply, ok := patch[models.Driver](w, r)
	if !ok {
		return
	}
	d, err := h.engine.UpdateDriver(r.Context(), chi.URLParam(r, "id"), apply)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, viewDriver(*d))
}

// SetDriverStatus handles PATCH /api/drivers/{id}/status
func (h *FleetHandler) SetDriverStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, err)
		return
	}
	d, err := h.engine.SetDriverStatus(r.Context(), chi.URLParam(r, "id"), models.DriverStatus(req.Status))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, viewDriver(*d))
}

// DeleteDriver handles DELETE /api/drivers/{id}
func (h *FleetHandler) DeleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteDriver(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "driver deleted"})
}
