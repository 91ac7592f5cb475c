// Package files serves the versioned file API.
//
// Authenticated endpoints (mounted at /api/files):
//   - POST   /upload              multipart "file" + optional "folderId"
//   - GET    /versions/{groupId}  every version of a file, newest first
//   - GET    /download/*          stream an owned version
//   - GET    /signed-url/*        temporary URL for an owned version
//   - DELETE /*                   delete one version
//   - POST   /share/{id}          create or rotate a share link
//   - POST   /unshare/{id}        revoke a share link
//
// Public endpoints:
//   - GET /shared/{token}  stream a shared version
//   - GET /blob/{token}    stream a blob through an app-signed URL
package files

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratadrive/internal/app/features/errors"
	"github.com/dalemusser/stratadrive/internal/app/services/catalog"
	"github.com/dalemusser/stratadrive/internal/app/services/sharing"
	"github.com/dalemusser/stratadrive/internal/app/system/apperr"
	"github.com/dalemusser/stratadrive/internal/app/system/auth"
	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/inputval"
	"github.com/dalemusser/stratadrive/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadrive/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	// DefaultMaxUploadBytes caps a single upload request when none is configured.
	DefaultMaxUploadBytes int64 = 100 << 20

	// multipart parts beyond this size spill to temp files.
	multipartMemory = 32 << 20
)

// BlobResolver decodes tokens minted by an app-signing backend.
type BlobResolver interface {
	Resolve(token string) (string, error)
}

// Config holds the files feature settings.
type Config struct {
	MaxUploadBytes int64
	BaseURL        string // public origin for share links; derived from the request when empty
}

// Handler provides file handlers.
type Handler struct {
	catalog  *catalog.Service
	sharing  *sharing.Service
	blobs    blobstore.Store
	resolver BlobResolver // nil when the backend signs its own URLs
	cfg      Config
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a new files Handler.
func NewHandler(
	cat *catalog.Service,
	share *sharing.Service,
	blobs blobstore.Store,
	resolver BlobResolver,
	cfg Config,
	errLog *errorsfeature.ErrorLogger,
	logger *zap.Logger,
) *Handler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Handler{
		catalog:  cat,
		sharing:  share,
		blobs:    blobs,
		resolver: resolver,
		cfg:      cfg,
		errLog:   errLog,
		logger:   logger,
	}
}

// Routes returns a chi.Router with file routes mounted.
func Routes(h *Handler, gw *auth.Gateway) http.Handler {
	r := chi.NewRouter()

	// Public: a share token or a signed blob token is the credential.
	r.Get("/shared/{token}", h.shared)
	r.Get("/blob/{token}", h.blob)

	r.Group(func(r chi.Router) {
		r.Use(gw.RequireAuth)

		r.Post("/upload", h.upload)
		r.Get("/versions/{groupId}", h.versions)
		r.Get("/download/*", h.download)
		r.Get("/signed-url/*", h.signedURL)
		r.Post("/share/{id}", h.share)
		r.Post("/unshare/{id}", h.unshare)
		r.Delete("/*", h.delete)
	})

	return r
}

// VersionView is a version row plus display hints.
type VersionView struct {
	models.FileVersion
	Kind      string `json:"kind"`
	SizeLabel string `json:"sizeLabel"`
	Viewable  bool   `json:"viewable"`
}

func newVersionView(fv models.FileVersion) VersionView {
	return VersionView{
		FileVersion: fv,
		Kind:        FileKind(fv.ContentType),
		SizeLabel:   FormatFileSize(fv.Size),
		Viewable:    IsViewable(fv.ContentType),
	}
}

// upload stores the next version of the posted file.
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			jsonutil.Error(w, http.StatusRequestEntityTooLarge,
				"file exceeds the "+FormatFileSize(h.cfg.MaxUploadBytes)+" upload limit")
			return
		}
		jsonutil.WriteError(w, apperr.Invalid("file", "A file is required."))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	folderID, err := inputval.OptionalObjectID("folderId", r.FormValue("folderId"))
	if err != nil {
		jsonutil.WriteError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonutil.WriteError(w, apperr.Invalid("file", "A file is required."))
		return
	}
	defer file.Close()

	fv, err := h.catalog.CreateVersion(r.Context(), catalog.Upload{
		Owner:       user.OwnerID(),
		Name:        header.Filename,
		FolderID:    folderID,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.errLog.Respond(w, r, "upload failed", err)
		return
	}

	jsonutil.OK(w, map[string]any{
		"message":     "file uploaded",
		"fileId":      fv.ID.Hex(),
		"fileUrl":     fv.Location,
		"key":         fv.StorageKey,
		"version":     fv.Version,
		"fileGroupId": fv.FileGroupID,
	})
}

// versions lists every version in a file group.
func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	list, err := h.catalog.ListVersions(r.Context(), user.OwnerID(), chi.URLParam(r, "groupId"))
	if err != nil {
		h.errLog.Respond(w, r, "list versions failed", err)
		return
	}

	views := make([]VersionView, 0, len(list))
	for _, fv := range list {
		views = append(views, newVersionView(fv))
	}
	jsonutil.OK(w, map[string]any{"versions": views})
}

// download streams an owned version as an attachment.
func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	key, ok := storageKey(w, r)
	if !ok {
		return
	}
	fv, obj, err := h.catalog.OpenVersion(r.Context(), user.OwnerID(), key)
	if err != nil {
		h.errLog.Respond(w, r, "download failed", err)
		return
	}
	h.stream(w, obj, "attachment", catalog.LeafName(fv.OriginalName, fv.Version))
}

// signedURL returns a temporary URL for an owned version. The optional
// expiresIn query parameter is in seconds.
func (h *Handler) signedURL(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	key, ok := storageKey(w, r)
	if !ok {
		return
	}

	var ttl time.Duration
	if raw := strings.TrimSpace(r.URL.Query().Get("expiresIn")); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil {
			jsonutil.WriteError(w, apperr.Invalid("expiresIn", "Must be a whole number of seconds."))
			return
		}
		ttl = time.Duration(secs) * time.Second
	}

	signed, granted, err := h.catalog.SignVersion(r.Context(), user.OwnerID(), key, ttl)
	if err != nil {
		h.errLog.Respond(w, r, "sign url failed", err)
		return
	}
	jsonutil.OK(w, map[string]any{
		"signedUrl": signed,
		"expiresIn": int(granted / time.Second),
	})
}

// delete removes one version and its blob.
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	key, ok := storageKey(w, r)
	if !ok {
		return
	}
	if err := h.catalog.DeleteVersion(r.Context(), user.OwnerID(), key); err != nil {
		h.errLog.Respond(w, r, "delete failed", err)
		return
	}
	jsonutil.OK(w, map[string]any{"message": "file deleted", "key": key})
}

// share creates a share link for one version.
func (h *Handler) share(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	id, ok := versionID(w, r)
	if !ok {
		return
	}
	token, err := h.sharing.CreateShareLink(r.Context(), user.OwnerID(), id)
	if err != nil {
		h.errLog.Respond(w, r, "share failed", err)
		return
	}
	jsonutil.OK(w, map[string]any{
		"shareUrl": h.origin(r) + "/api/files/shared/" + token,
		"token":    token,
	})
}

// unshare revokes a version's share link.
func (h *Handler) unshare(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	id, ok := versionID(w, r)
	if !ok {
		return
	}
	if err := h.sharing.RevokeShare(r.Context(), user.OwnerID(), id); err != nil {
		h.errLog.Respond(w, r, "unshare failed", err)
		return
	}
	jsonutil.OK(w, map[string]any{"message": "sharing disabled"})
}

// shared streams a publicly shared version.
func (h *Handler) shared(w http.ResponseWriter, r *http.Request) {
	fv, obj, err := h.sharing.OpenShare(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			jsonutil.NotFound(w, "invalid or expired link")
			return
		}
		h.errLog.Respond(w, r, "shared download failed", err)
		return
	}
	disposition := "attachment"
	if IsViewable(obj.ContentType) {
		disposition = "inline"
	}
	h.stream(w, obj, disposition, catalog.LeafName(fv.OriginalName, fv.Version))
}

// blob streams content addressed by an app-signed token.
func (h *Handler) blob(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		jsonutil.NotFound(w, "not found")
		return
	}
	key, err := h.resolver.Resolve(chi.URLParam(r, "token"))
	if err != nil {
		jsonutil.NotFound(w, "invalid or expired link")
		return
	}

	obj, err := catalog.OpenBlob(r.Context(), h.blobs, h.logger, &models.FileVersion{StorageKey: key})
	if err != nil {
		h.errLog.Respond(w, r, "signed blob download failed", err)
		return
	}
	disposition := "attachment"
	if IsViewable(obj.ContentType) {
		disposition = "inline"
	}
	h.stream(w, obj, disposition, path.Base(key))
}

func (h *Handler) stream(w http.ResponseWriter, obj *blobstore.Object, disposition, filename string) {
	defer obj.Body.Close()

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if cd := mime.FormatMediaType(disposition, map[string]string{"filename": filename}); cd != "" {
		w.Header().Set("Content-Disposition", cd)
	} else {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, obj.Body); err != nil {
		h.logger.Warn("failed to stream file",
			zap.String("filename", filename),
			zap.Error(err))
	}
}

// origin is the scheme and host share links are built on.
func (h *Handler) origin(r *http.Request) string {
	if h.cfg.BaseURL != "" {
		return h.cfg.BaseURL
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func versionID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		jsonutil.WriteError(w, apperr.ErrNotFound)
		return primitive.NilObjectID, false
	}
	return id, true
}

// storageKey decodes the wildcard path segment. chi matches against the raw
// path, so escaped characters like %26 are still encoded in the parameter.
func storageKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || key == "" {
		jsonutil.WriteError(w, apperr.ErrNotFound)
		return "", false
	}
	return key, true
}
