package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fleetflow/internal/models"
)

// ListMaintenance handles GET /api/maintenance
func (h *FleetHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	records, err := h.engine.ListMaintenance(r.Context(), models.MaintenanceFilter{
		VehicleID: query(r, "vehicle_id"),
		Status:    models.MaintenanceStatus(query(r, "status")),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, records)
}

// GetMaintenance handles GET /api/maintenance/{id}
func (h *FleetHandler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	m, err := h.engine.GetMaintenance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, m)
}

// CreateMaintenance handles POST /api/maintenance
func (h *FleetHandler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var in models.Maintenance
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	m, err := h.engine.CreateMaintenance(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, m)
}

// UpdateMaintenance handles PATCH /api/maintenance/{id}
func (h *FleetHandler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	apply, ok := patch[models.Maintenance](w, r)
	if !ok {
		return
	}
	m, err := h.engine.UpdateMaintenance(r.Context(), chi.URLParam(r, "id"), apply)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, m)
}

// DeleteMaintenance handles DELETE /api/maintenance/{id}
func (h *FleetHandler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteMaintenance(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "maintenance record deleted"})
}

// ListFuelLogs handles GET /api/fuel
func (h *FleetHandler) ListFuelLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.engine.ListFuelLogs(r.Context(), models.FuelLogFilter{
		VehicleID: query(r, "vehicle_id"),
		TripID:    query(r, "trip_id"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, logs)
}

// CreateFuelLog handles POST /api/fuel
func (h *FleetHandler) CreateFuelLog(w http.ResponseWriter, r *http.Request) {
	var in models.FuelLog
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	l, err := h.engine.CreateFuelLog(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, l)
}

// UpdateFuelLog handles PUT /api/fuel/{id}
func (h *FleetHandler) UpdateFuelLog(w http.ResponseWriter, r *http.Request) {
	apply, ok := patch[models.FuelLog](w, r)
	if !ok {
		return
	}
	l, err := h.engine.UpdateFuelLog(r.Context(), chi.URLParam(r, "id"), apply)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, l)
}

// DeleteFuelLog handles DELETE /api/fuel/{id}
func (h *FleetHandler) DeleteFuelLog(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteFuelLog(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "fuel log deleted"})
}

// ListExpenses handles GET /api/expenses
func (h *FleetHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.engine.ListExpenses(r.Context(), models.ExpenseFilter{
		VehicleID: query(r, "vehicle_id"),
		TripID:    query(r, "trip_id"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, expenses)
}

// CreateExpense handles POST /api/expenses
func (h *FleetHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	var in models.Expense
	if err := decode(w, r, &in); err != nil {
		badRequest(w, err)
		return
	}
	x, err := h.engine.CreateExpense(r.Context(), in)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusCreated, x)
}

// UpdateExpense handles PUT /api/expenses/{id}
func (h *FleetHandler) UpdateExpense(w http.ResponseWriter, r *http.Request) {
	apply, ok := patch[models.Expense](w, r)
	if !ok {
		return
	}
	x, err := h.engine.UpdateExpense(r.Context(), chi.URLParam(r, "id"), apply)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, x)
}

// DeleteExpense handles DELETE /api/expenses/{id}
func (h *FleetHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteExpense(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "expense deleted"})
}
