package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rsned/production-planner/internal/logger"
	"github.com/rsned/production-planner/pkg/planner"
)

type handlers struct {
	deps Deps
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		if err := h.deps.DB.PingContext(r.Context()); err != nil {
			respondError(w, http.StatusServiceUnavailable, CodeUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) optimize(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	var req planner.OptimizeRequest
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	resp, err := h.deps.Engine.Optimize(r.Context(), req)
	if err != nil {
		respondServiceError(w, log, "Optimize", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) optimizeLine(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)
	key := userKey(r.Context())
	lineID := chi.URLParam(r, "line")

	line, err := h.deps.Users.GetProductionLine(r.Context(), key, lineID)
	if err != nil {
		respondServiceError(w, log, "Load production line", err)
		return
	}
	if line == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "Production line not found")
		return
	}

	resp, err := h.deps.Engine.Optimize(r.Context(), planner.OptimizeRequest{
		UserKey: key,
		Targets: line.Targets,
	})
	if err != nil {
		respondServiceError(w, log, "Optimize production line", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) searchRecipes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	term := r.URL.Query().Get("search")
	if term == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Missing search query parameter")
		return
	}

	resp, err := h.deps.Engine.RecipeLookup(r.Context(), planner.RecipeLookupRequest{Search: term})
	if err != nil {
		respondServiceError(w, log, "Recipe search", err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) getRecipe(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.deps.Engine.RecipeLookup(r.Context(), planner.RecipeLookupRequest{RecipeID: id})
	if err != nil {
		respondServiceError(w, log, "Recipe lookup", err)
		return
	}
	if resp.Recipe == nil {
		respondError(w, http.StatusNotFound, CodeNotFound, "Recipe not found")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *handlers) itemUses(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	resp, err := h.deps.Engine.ItemUses(r.Context(), id)
	if err != nil {
		respondServiceError(w, log, "Item uses", err)
		return
	}
	if resp.Item == nil && len(resp.ConsumedBy) == 0 && len(resp.ProducedBy) == 0 {
		respondError(w, http.StatusNotFound, CodeNotFound, "Item not found")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// selectionUpdate is the body of PATCH /selection.
type selectionUpdate struct {
	Configs []planner.RecipeConfig `json:"configs" validate:"required,min=1,dive"`
}

func (h *handlers) getSelection(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	selection, err := h.deps.Users.LoadSelection(r.Context(), userKey(r.Context()))
	if err != nil {
		respondServiceError(w, log, "Load selection", err)
		return
	}
	respondJSON(w, http.StatusOK, selection)
}

func (h *handlers) updateSelection(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	var req selectionUpdate
	if !decodeAndValidate(w, r, log, &req) {
		return
	}

	if err := h.deps.Users.SaveSelection(r.Context(), userKey(r.Context()), req.Configs); err != nil {
		respondServiceError(w, log, "Save selection", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listLines(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	lines, err := h.deps.Users.LoadProductionLines(r.Context(), userKey(r.Context()))
	if err != nil {
		respondServiceError(w, log, "Load production lines", err)
		return
	}
	respondJSON(w, http.StatusOK, lines)
}

func (h *handlers) saveLine(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.deps.Logger)

	var line planner.ProductionLine
	if !decodeAndValidate(w, r, log, &line) {
		return
	}
	line.ID = chi.URLParam(r, "line")

	if err := h.deps.Users.SaveProductionLine(r.Context(), userKey(r.Context()), line); err != nil {
		respondServiceError(w, log, "Save production line", err)
		return
	}
	respondJSON(w, http.StatusOK, line)
}

// pathID parses the {id} URL parameter. On failure the response has
// already been written.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
