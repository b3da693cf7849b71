package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/metrics"
	"github.com/starford/anchorage/internal/models"
)

// CreateAnchor handles POST /api/anchors. Body is an anchor; an empty
// anchorId is minted. An existing anchor on an equal extent is a 409.
//
//	@Summary		Create an anchor
//	@Tags			anchors
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Anchor	true	"Anchor to create"
//	@Success		201		{object}	envelope.Result[models.Anchor]
//	@Failure		409		{object}	envelope.Result[any]
//	@Failure		422		{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/anchors [post]
func (h *Handler) CreateAnchor(w http.ResponseWriter, r *http.Request) {
	var a models.Anchor
	if !decodeJSON(w, r, &a) {
		return
	}
	created, err := h.d.Anchors.CreateAnchor(r.Context(), a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, created, h.version())
}

// GetAnchor handles GET /api/anchors/{id}.
//
//	@Summary		Get an anchor
//	@Tags			anchors
//	@Produce		json
//	@Param			id	path		string	true	"Anchor ID"
//	@Success		200	{object}	envelope.Result[models.Anchor]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/anchors/{id} [get]
func (h *Handler) GetAnchor(w http.ResponseWriter, r *http.Request) {
	a, err := h.d.Anchors.GetAnchor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, a)
}

// UpdateExtent handles PUT /api/anchors/{id}/extent.
//
//	@Summary		Replace an anchor's extent
//	@Tags			anchors
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Anchor ID"
//	@Param			body	body		UpdateExtentRequest	true	"New extent"
//	@Success		200		{object}	envelope.Result[models.Anchor]
//	@Failure		404		{object}	envelope.Result[any]
//	@Failure		409		{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/anchors/{id}/extent [put]
func (h *Handler) UpdateExtent(w http.ResponseWriter, r *http.Request) {
	var req UpdateExtentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	a, err := h.d.Anchors.UpdateExtent(r.Context(), chi.URLParam(r, "id"), req.Extent.Get())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, a)
}

// DeleteAnchor handles DELETE /api/anchors/{id}. Without a cascade links are
// not touched; cascade=links deletes every link on the anchor first and
// cleans up far-side anchors left orphaned.
//
//	@Summary		Delete an anchor
//	@Tags			anchors
//	@Produce		json
//	@Param			id		path		string	true	"Anchor ID"
//	@Param			cascade	query		string	false	"links: also delete the anchor's links"	Enums(links)
//	@Success		200		{object}	envelope.Result[any]
//	@Failure		400		{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/anchors/{id} [delete]
func (h *Handler) DeleteAnchor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var err error
	switch c := r.URL.Query().Get("cascade"); c {
	case "":
		err = h.d.Anchors.DeleteAnchor(r.Context(), id)
	case "links":
		err = h.d.Links.DeleteAnchorWithLinks(r.Context(), id, metrics.ReasonExplicit)
	default:
		err = fmt.Errorf("%w: unknown cascade %q", apperr.ErrInvalidArgument, c)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok[any](h, w, nil)
}

// NodeAnchors handles GET /api/nodes/{id}/anchors.
//
//	@Summary		List a node's anchors
//	@Tags			anchors
//	@Produce		json
//	@Param			id	path		string	true	"Node ID"
//	@Success		200	{object}	envelope.Result[[]models.Anchor]
//	@Security		BearerAuth
//	@Router			/nodes/{id}/anchors [get]
func (h *Handler) NodeAnchors(w http.ResponseWriter, r *http.Request) {
	list, err := h.d.Anchors.GetAnchorsByNodeID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, list)
}
