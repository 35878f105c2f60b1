package api

import (
	"net/http"
	"strconv"
	"strings"

	"routeopt/internal/importer"
	"routeopt/internal/model"
)

// ImportInstanceHandler handles POST /v1/instances/import: a CSV body
// of node rows plus fleet parameters in the query string. Legacy
// planning exports carry stops only, so the fleet rides along as
// vehicleId, capacity, count, vehicleTags and vehicleDepot.
func (s *Server) ImportInstanceHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p := s.getPrincipal(r)
	if !p.CanSolve() {
		writeProblem(w, http.StatusForbidden, "Forbidden", "operator or admin required", r.URL.Path)
		return
	}
	nodes, err := importer.ParseNodes(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid CSV", err.Error(), r.URL.Path)
		return
	}
	q := r.URL.Query()
	veh := model.VehicleIn{ID: q.Get("vehicleId"), Count: 1, Depot: q.Get("vehicleDepot")}
	if veh.ID == "" {
		veh.ID = "default"
	}
	for _, part := range strings.Split(q.Get("capacity"), ";") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid capacity", err.Error(), r.URL.Path)
			return
		}
		veh.Capacity = append(veh.Capacity, f)
	}
	if v := q.Get("count"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeProblem(w, http.StatusBadRequest, "Invalid count", "count must be a positive integer", r.URL.Path)
			return
		}
		veh.Count = n
	}
	if v := q.Get("vehicleTags"); v != "" {
		for _, tag := range strings.Split(v, ";") {
			if tag = strings.TrimSpace(tag); tag != "" {
				veh.Tags = append(veh.Tags, tag)
			}
		}
	}

	in := model.InstanceIn{Name: q.Get("name"), Nodes: nodes, Vehicles: []model.VehicleIn{veh}}
	if err := validateInstanceIn(&in); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	inst, err := toSolverInstance(in)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	if err := inst.Validate(); err != nil {
		writeSolverProblem(w, err, r.URL.Path)
		return
	}
	out, err := s.Store.CreateInstance(r.Context(), p.Tenant, in)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create instance failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}
