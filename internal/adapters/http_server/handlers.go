package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sabor_menu/internal/app"
	"sabor_menu/internal/domain"
)

// StaticDirs names the on-disk roots the file routes serve from.
type StaticDirs struct {
	Images   string
	Audio    string
	Menus    string
	Frontend string
}

type Handlers struct {
	Catalog  *app.Catalog
	Accounts *app.Accounts
	Feedback *app.Feedback
	Deployer *app.Deployer
	Sessions *Sessions

	DeployEnabled bool
	DeployToken   string
	Static        StaticDirs
}

func (s *Server) MountHandlers(h *Handlers) {
	// public reads
	s.mux.Get("/api/dishes", h.listDishes)
	s.mux.Get("/api/dishes/{id}", h.getDish)
	s.mux.Get("/api/menus", h.listMenus)
	s.mux.Get("/api/sections", h.listSections)
	s.mux.Get("/api/wines", h.listWines)
	s.mux.Get("/api/wines/{id}", h.getWine)
	s.mux.Get("/api/wines/category/{category}", h.winesByCategory)
	s.mux.Get("/api/bar-items", h.listBarItems)
	s.mux.Get("/api/health", h.health)

	// public feedback submit (guests are read-only, so they are refused)
	s.mux.Post("/api/feedback", h.submitFeedback)

	// auth lifecycle
	s.mux.Post("/api/admin/login", h.login)
	s.mux.Post("/api/admin/login/guest", h.loginGuest)
	s.mux.Post("/api/admin/logout", h.logout)
	s.mux.Get("/api/admin/check", h.checkAuth)

	// staff-only, guest-forbidden
	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAuth, RequireNotGuest)
		r.Post("/api/admin/dishes", h.replaceDishes)
		r.Put("/api/admin/dishes", h.createDish)
		r.Put("/api/admin/dishes/{id}", h.updateDish)
		r.Delete("/api/admin/dishes/{id}", h.deleteDish)

		r.Get("/api/admin/feedback", h.listFeedback)
		r.Put("/api/admin/feedback/{id}/read", h.markFeedbackRead)
		r.Delete("/api/admin/feedback/{id}", h.deleteFeedback)
	})

	// administrator-only
	s.mux.Group(func(r chi.Router) {
		r.Use(RequireAuth, RequireNotGuest, RequireAdmin)
		r.Get("/api/admin/users", h.listUsers)
		r.Post("/api/admin/users", h.createUser)
		r.Put("/api/admin/users/{id}", h.updateUser)
		r.Delete("/api/admin/users/{id}", h.deleteUser)

		r.Post("/api/admin/menu/import", h.importMenu)

		r.Get("/api/admin/deploy/status", h.deployStatus)
		r.Post("/api/admin/deploy/run", h.deployRun)
		r.Get("/api/admin/deploy/job", h.deployJob)
	})

	h.mountStatic(s.mux)
}

// ---- public catalog ----

func (h *Handlers) listDishes(w http.ResponseWriter, r *http.Request) {
	dishes, err := h.Catalog.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dishesOrEmpty(dishes))
}

func (h *Handlers) getDish(w http.ResponseWriter, r *http.Request) {
	d, err := h.Catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) listMenus(w http.ResponseWriter, r *http.Request) {
	menus, err := h.Catalog.Menus(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if menus == nil {
		menus = []string{}
	}
	writeJSON(w, http.StatusOK, menus)
}

func (h *Handlers) listSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.Catalog.Sections(r.Context(), r.URL.Query().Get("menu"))
	if err != nil {
		writeError(w, err)
		return
	}
	if sections == nil {
		sections = []string{}
	}
	writeJSON(w, http.StatusOK, sections)
}

func (h *Handlers) listWines(w http.ResponseWriter, r *http.Request) {
	wines, err := h.Catalog.Wines(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dishesOrEmpty(wines))
}

func (h *Handlers) getWine(w http.ResponseWriter, r *http.Request) {
	d, err := h.Catalog.WineByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handlers) winesByCategory(w http.ResponseWriter, r *http.Request) {
	wines, err := h.Catalog.WinesByCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dishesOrEmpty(wines))
}

func (h *Handlers) listBarItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Catalog.BarItems(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dishesOrEmpty(items))
}

// health answers 200 when either store has data, 503 otherwise.
func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	dbCount, docCount := h.Catalog.Health(r.Context())
	if dbCount == 0 && docCount == 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error": "no menu data available", "db_dishes": 0, "json_dishes": 0,
		})
		return
	}
	writeOK(w, map[string]any{"db_dishes": dbCount, "json_dishes": docCount})
}

func dishesOrEmpty(ds []domain.Dish) []domain.Dish {
	if ds == nil {
		return []domain.Dish{}
	}
	return ds
}

// ---- feedback submit ----

func (h *Handlers) submitFeedback(w http.ResponseWriter, r *http.Request) {
	if identityFrom(r).IsGuest() {
		writeError(w, domain.ErrForbidden)
		return
	}
	var req struct {
		Name    string `json:"name"`
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	m, err := h.Feedback.Submit(r.Context(), req.Name, req.Type, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"id": m.ID})
}
