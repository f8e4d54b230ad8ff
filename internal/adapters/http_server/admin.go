package httpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"sabor_menu/internal/adapters/observability"
	"sabor_menu/internal/app"
	"sabor_menu/internal/domain"
)

// ---- auth lifecycle ----

func (h *Handlers) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.Accounts.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Sessions.LoginStaff(w, r, u.ID, req.Remember); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"user": domain.Staff(&u).Display()})
}

func (h *Handlers) loginGuest(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.LoginGuest(w, r); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"user": domain.Guest().Display()})
}

func (h *Handlers) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Logout(w, r); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

func (h *Handlers) checkAuth(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	if !id.IsAuth() {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": id.Display()})
}

// ---- dish administration ----

func (h *Handlers) replaceDishes(w http.ResponseWriter, r *http.Request) {
	var items []domain.Dish
	if err := decodeBody(r, &items); err != nil {
		writeError(w, err)
		return
	}
	kept, dropped, err := h.Catalog.ReplaceAll(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"saved": kept, "dropped": dropped})
}

func (h *Handlers) createDish(w http.ResponseWriter, r *http.Request) {
	var d domain.Dish
	if err := decodeBody(r, &d); err != nil {
		writeError(w, err)
		return
	}
	created, err := h.Catalog.Create(r.Context(), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"dish": created})
}

func (h *Handlers) updateDish(w http.ResponseWriter, r *http.Request) {
	var d domain.Dish
	if err := decodeBody(r, &d); err != nil {
		writeError(w, err)
		return
	}
	updated, err := h.Catalog.UpsertOne(r.Context(), chi.URLParam(r, "id"), d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"dish": updated})
}

func (h *Handlers) deleteDish(w http.ResponseWriter, r *http.Request) {
	if err := h.Catalog.DeleteOne(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// importMenu accepts a multipart upload of the full document list and
// runs it through the same path as the bulk replace.
func (h *Handlers) importMenu(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, domain.Validationf("invalid multipart form: %v", err))
		return
	}
	f, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.Validationf("form field 'file' is required"))
		return
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		writeError(w, err)
		return
	}
	var items []domain.Dish
	if err := json.Unmarshal(b, &items); err != nil {
		writeError(w, domain.Validationf("uploaded file is not a dish list: %v", err))
		return
	}
	kept, dropped, err := h.Catalog.ReplaceAll(r.Context(), items)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info().Int("saved", kept).Int("dropped", dropped).Msg("menu imported")
	writeOK(w, map[string]any{"saved": kept, "dropped": dropped})
}

// ---- user management ----

func (h *Handlers) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.Accounts.Users(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if users == nil {
		users = []domain.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *Handlers) createUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.Accounts.Create(r.Context(), req.Name, req.Username, req.Password, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"user": u})
}

func (h *Handlers) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, domain.Validationf("user id must be a number"))
		return
	}
	var req struct {
		Name     *string `json:"name"`
		Username *string `json:"username"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := h.Accounts.Update(r.Context(), id, app.UpdateRequest{
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"user": u})
}

func (h *Handlers) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, domain.Validationf("user id must be a number"))
		return
	}
	actor := identityFrom(r)
	var actorID int64
	if actor.User != nil {
		actorID = actor.User.ID
	}
	if err := h.Accounts.Delete(r.Context(), actorID, id); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// ---- feedback moderation ----

func (h *Handlers) listFeedback(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.Feedback.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.FeedbackMessage{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (h *Handlers) markFeedbackRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, domain.Validationf("message id must be a number"))
		return
	}
	m, err := h.Feedback.MarkRead(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, map[string]any{"message": m})
}

func (h *Handlers) deleteFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, domain.Validationf("message id must be a number"))
		return
	}
	if err := h.Feedback.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, nil)
}

// ---- deploy trigger ----

func (h *Handlers) deployStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Deployer.Status(false))
}

func (h *Handlers) deployJob(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Deployer.Status(true))
}

func (h *Handlers) deployRun(w http.ResponseWriter, r *http.Request) {
	if !h.DeployEnabled {
		writeError(w, domain.ErrForbidden)
		return
	}
	if h.DeployToken == "" || r.Header.Get("X-Deploy-Token") != h.DeployToken {
		writeError(w, domain.ErrForbidden)
		return
	}
	runID, err := h.Deployer.Run()
	if err != nil {
		observability.ObserveDeploy("rejected")
		writeError(w, err)
		return
	}
	observability.ObserveDeploy("started")
	writeOK(w, map[string]any{"run_id": runID})
}
