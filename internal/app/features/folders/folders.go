// Package folders serves the folder tree API.
//
// Endpoints (mounted at /api/folders, all authenticated):
//   - POST /          create a folder {name, parentId}
//   - GET  /          root contents
//   - GET  /{id}      contents of an owned folder
package folders

import (
	"net/http"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/foldertree"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides folder handlers.
type Handler struct {
	tree   *foldertree.Service
	errLog *errorsfeature.ErrorLogger
	logger *zap.Logger
}

// NewHandler creates a new folders Handler.
func NewHandler(tree *foldertree.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{tree: tree, errLog: errLog, logger: logger}
}

// Routes returns a chi.Router with folder routes mounted.
func Routes(h *Handler, gw *auth.Gateway) http.Handler {
	r := chi.NewRouter()
	r.Use(gw.RequireAuth)

	r.Post("/", h.create)
	r.Get("/", h.contents)
	r.Get("/{id}", h.contents)
	return r
}

type createRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var in createRequest
	if err := jsonutil.Decode(r, &in); err != nil {
		jsonutil.BadRequest(w, "invalid JSON payload")
		return
	}
	parentID, err := inputval.OptionalObjectID("parentId", in.ParentID)
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	folder, err := h.tree.CreateFolder(r.Context(), user.OwnerID(), in.Name, parentID)
	if err != nil {
		h.errLog.Respond(w, r, "create folder failed", err)
		return
	}
	jsonutil.Created(w, map[string]any{"folder": folder})
}

func (h *Handler) contents(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var folderID *primitive.ObjectID
	if raw := chi.URLParam(r, "id"); raw != "" {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			jsonutil.WriteError(w, apperr.ErrNotFound)
			return
		}
		folderID = &oid
	}

	c, err := h.tree.Contents(r.Context(), user.OwnerID(), folderID)
	if err != nil {
		h.errLog.Respond(w, r, "folder contents failed", err)
		return
	}
	jsonutil.OK(w, c)
}
