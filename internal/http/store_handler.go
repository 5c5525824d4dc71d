package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/domain/store"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/metrics"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/apperr"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/storage"
)

const logoField = "storeLogo"

var logoTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type socialLinkRequest struct {
	Name string `json:"name" validate:"required"`
	Link string `json:"link" validate:"required,url"`
}

type storeRequest struct {
	StoreName        string              `json:"storeName" validate:"required,max=200"`
	StoreType        string              `json:"storeType" validate:"omitempty,oneof=real virtual"`
	Wilaya           string              `json:"wilaya" validate:"max=100"`
	City             string              `json:"city" validate:"required,max=100"`
	Longitude        float64             `json:"longitude" validate:"min=-180,max=180"`
	Latitude         float64             `json:"latitude" validate:"min=-90,max=90"`
	Phone            string              `json:"phone" validate:"max=30"`
	Email            string              `json:"email" validate:"omitempty,email"`
	Website          string              `json:"website" validate:"omitempty,url"`
	SocialMediaLinks []socialLinkRequest `json:"socialMediaLinks" validate:"dive"`
	Description      string              `json:"description" validate:"max=2000"`
	Keywords         []string            `json:"keywords" validate:"max=50,dive,max=50"`
}

func (req storeRequest) toInput() store.Input {
	links := make([]store.SocialLink, 0, len(req.SocialMediaLinks))
	for _, l := range req.SocialMediaLinks {
		links = append(links, store.SocialLink{Name: l.Name, Link: l.Link})
	}
	return store.Input{
		Name:             req.StoreName,
		Type:             req.StoreType,
		Wilaya:           req.Wilaya,
		City:             req.City,
		Longitude:        req.Longitude,
		Latitude:         req.Latitude,
		Phone:            req.Phone,
		Email:            req.Email,
		Website:          req.Website,
		SocialMediaLinks: links,
		Description:      req.Description,
		Keywords:         req.Keywords,
	}
}

type rateRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

type verifyStoreRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

// @Summary     List stores
// @Tags        stores
// @Produce     json
// @Success     200  {array}   store.Store
// @Router      /stores [get]
func (h *Handler) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := h.storeSvc.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// @Summary     Search stores by keywords or description
// @Tags        stores
// @Produce     json
// @Param       searchTerm  query     []string           true  "Terms, repeatable"  collectionFormat(multi)
// @Success     200         {array}   store.Store
// @Failure     400         {object}  map[string]string  "missing search term"
// @Router      /stores/search [get]
func (h *Handler) handleSearchStores(w http.ResponseWriter, r *http.Request) {
	var terms []string
	for _, v := range r.URL.Query()["searchTerm"] {
		terms = append(terms, strings.Split(v, ",")...)
	}

	stores, err := h.storeSvc.Search(r.Context(), terms)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// @Summary     Search stores by name
// @Tags        stores
// @Produce     json
// @Param       storeName  query     string             true  "Name fragment"
// @Success     200        {array}   store.Store
// @Failure     400        {object}  map[string]string  "missing name"
// @Router      /stores/by-name [get]
func (h *Handler) handleSearchByName(w http.ResponseWriter, r *http.Request) {
	stores, err := h.storeSvc.SearchByName(r.Context(), r.URL.Query().Get("storeName"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// @Summary     List stores in a wilaya
// @Tags        stores
// @Produce     json
// @Param       wilaya  path      string  true  "Wilaya"
// @Success     200     {array}   store.Store
// @Router      /stores/wilaya/{wilaya} [get]
func (h *Handler) handleFilterByWilaya(w http.ResponseWriter, r *http.Request) {
	stores, err := h.storeSvc.FilterByWilaya(r.Context(), chi.URLParam(r, "wilaya"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stores)
}

// @Summary     Get a store
// @Tags        stores
// @Produce     json
// @Param       storeId  path      string             true  "Store ID"
// @Success     200      {object}  store.Store
// @Failure     404      {object}  map[string]string  "not found"
// @Router      /stores/{storeId} [get]
func (h *Handler) handleGetStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.storeSvc.Get(r.Context(), chi.URLParam(r, "storeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Create a store
// @Tags        stores
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       request  body      storeRequest       true  "Store"
// @Success     201      {object}  store.Store
// @Failure     400      {object}  map[string]string  "invalid input"
// @Router      /stores [post]
func (h *Handler) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	s, err := h.storeSvc.Create(r.Context(), userIDFromCtx(r), req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// @Summary     Update a store
// @Tags        stores
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       storeId  path      string             true  "Store ID"
// @Param       request  body      storeRequest       true  "Store"
// @Success     200      {object}  store.Store
// @Failure     403      {object}  map[string]string  "not the owner"
// @Failure     404      {object}  map[string]string  "not found"
// @Router      /stores/{storeId} [put]
func (h *Handler) handleUpdateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	s, err := h.storeSvc.Update(r.Context(), userIDFromCtx(r), chi.URLParam(r, "storeId"), req.toInput())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Delete a store
// @Tags        stores
// @Security    BearerAuth
// @Param       storeId  path  string  true  "Store ID"
// @Success     204
// @Failure     403      {object}  map[string]string  "not the owner"
// @Failure     404      {object}  map[string]string  "not found"
// @Router      /stores/{storeId} [delete]
func (h *Handler) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := h.storeSvc.Delete(r.Context(), userIDFromCtx(r), chi.URLParam(r, "storeId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// @Summary     Rate a store
// @Description Each user may rate a store once.
// @Tags        stores
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       storeId  path      string             true  "Store ID"
// @Param       request  body      rateRequest        true  "Rating 1-5"
// @Success     200      {object}  store.Store
// @Failure     409      {object}  map[string]string  "already rated"
// @Router      /stores/{storeId}/rating [post]
func (h *Handler) handleRateStore(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	s, err := h.storeSvc.Rate(r.Context(), chi.URLParam(r, "storeId"), userIDFromCtx(r), req.Rating)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	metrics.IncRating()
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Set store verification
// @Tags        stores
// @Security    BearerAuth
// @Accept      json
// @Produce     json
// @Param       storeId  path      string              true  "Store ID"
// @Param       request  body      verifyStoreRequest  true  "Flag"
// @Success     200      {object}  store.Store
// @Failure     403      {object}  map[string]string   "forbidden"
// @Router      /stores/{storeId}/verify [patch]
func (h *Handler) handleVerifyStore(w http.ResponseWriter, r *http.Request) {
	var req verifyStoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		errorResponse(w, err)
		return
	}

	s, err := h.storeSvc.SetVerified(r.Context(), chi.URLParam(r, "storeId"), *req.Verified)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Upload or replace a store logo
// @Tags        stores
// @Security    BearerAuth
// @Accept      multipart/form-data
// @Produce     json
// @Param       storeId    path      string             true  "Store ID"
// @Param       storeLogo  formData  file               true  "PNG, JPEG, GIF or WebP"
// @Success     200        {object}  store.Store
// @Failure     400        {object}  map[string]string  "bad file"
// @Failure     403        {object}  map[string]string  "not the owner"
// @Router      /stores/{storeId}/logo [post]
func (h *Handler) handleUploadLogo(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeId")
	if err := h.storeSvc.CheckOwner(r.Context(), userIDFromCtx(r), storeID); err != nil {
		h.fail(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+(512<<10))
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_upload", "logo must be a multipart upload within the size limit", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(logoField)
	if err != nil {
		errorResponse(w, apperr.BadRequest("missing_file", "storeLogo file is required", err))
		return
	}
	defer file.Close()

	if header.Size > h.maxUpload {
		errorResponse(w, apperr.BadRequest("file_too_large", "logo exceeds the size limit", nil))
		return
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		h.fail(w, r, apperr.Internal("upload_failed", "could not read upload", err))
		return
	}
	if !mimetype.EqualsAny(mtype.String(), logoTypes...) {
		errorResponse(w, apperr.BadRequest("invalid_file_type", "logo must be a png, jpeg, gif or webp image", nil))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		h.fail(w, r, apperr.Internal("upload_failed", "could not read upload", err))
		return
	}

	name := "storeLogo-" + uuid.NewString() + mtype.Extension()
	if err := h.logos.Save(r.Context(), name, file, header.Size, mtype.String()); err != nil {
		h.fail(w, r, apperr.Internal("upload_failed", "could not store logo", err))
		return
	}

	s, err := h.storeSvc.SetLogo(r.Context(), storeID, userIDFromCtx(r), name)
	if err != nil {
		if delErr := h.logos.Delete(r.Context(), name); delErr != nil {
			h.log.Warn("orphaned logo", zap.String("name", name), zap.Error(delErr))
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// @Summary     Download a store logo
// @Tags        stores
// @Produce     image/png,image/jpeg,image/gif,image/webp
// @Param       storeId  path  string  true  "Store ID"
// @Success     200
// @Failure     404      {object}  map[string]string  "no logo"
// @Router      /stores/{storeId}/logo [get]
func (h *Handler) handleGetLogo(w http.ResponseWriter, r *http.Request) {
	s, err := h.storeSvc.Get(r.Context(), chi.URLParam(r, "storeId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if s.Logo == "" {
		errorResponse(w, apperr.NotFound("logo_not_found", "store has no logo", nil))
		return
	}

	obj, err := h.logos.Open(r.Context(), s.Logo)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			errorResponse(w, apperr.NotFound("logo_not_found", "store has no logo", err))
			return
		}
		h.fail(w, r, apperr.Internal("logo_unavailable", "could not read logo", err))
		return
	}
	defer obj.Body.Close()

	w.Header().Set("Content-Type", obj.ContentType)
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.log.Warn("logo stream interrupted", zap.String("name", s.Logo), zap.Error(err))
	}
}
