package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/models"
)

// CreateLink handles POST /api/links. Both anchors must exist (422 otherwise).
//
//	@Summary		Create a link between two existing anchors
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body	models.Link	true	"Link to create"
//	@Success		201	{object}	envelope.Result[models.Link]
//	@Failure		400	{object}	envelope.Result[any]
//	@Failure		422	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links [post]
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var l models.Link
	if !decodeJSON(w, r, &l) {
		return
	}
	created, err := h.d.Links.CreateLink(r.Context(), l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, created, h.version())
}

// GetLink handles GET /api/links/{id}.
//
//	@Summary		Get a link
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Link id"
//	@Success		200	{object}	envelope.Result[models.Link]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links/{id} [get]
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	l, err := h.d.Links.GetLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, l)
}

// DeleteLink handles DELETE /api/links/{id}. Orphaned anchors are removed.
//
//	@Summary		Delete a link and its orphaned anchors
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Link id"
//	@Success		200	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links/{id} [delete]
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Links.DeleteLink(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok[any](h, w, nil)
}

// DeleteLinks handles POST /api/links/delete.
//
//	@Summary		Delete a batch of links
//	@Tags			links
//	@Accept			json
//	@Produce		json
//	@Param			body	body	DeleteLinksRequest	true	"Link ids"
//	@Success		200	{object}	envelope.Result[any]
//	@Failure		400	{object}	envelope.Result[any]
//	@Failure		500	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links/delete [post]
func (h *Handler) DeleteLinks(w http.ResponseWriter, r *http.Request) {
	var req DeleteLinksRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.d.Links.DeleteLinks(r.Context(), req.LinkIDs); err != nil {
		writeError(w, r, err)
		return
	}
	ok[any](h, w, nil)
}

// AnchorLinks handles GET /api/anchors/{id}/links.
//
//	@Summary		List the links of an anchor
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Anchor id"
//	@Success		200	{object}	envelope.Result[[]models.Link]
//	@Security		BearerAuth
//	@Router			/anchors/{id}/links [get]
func (h *Handler) AnchorLinks(w http.ResponseWriter, r *http.Request) {
	ls, err := h.d.Links.GetLinksByAnchorID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, ls)
}

// NodeLinkMenu handles GET /api/nodes/{id}/link-menu: every anchor of the
// node with its links and their far sides.
//
//	@Summary		List a node's anchors with their links
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Node id"
//	@Success		200	{object}	envelope.Result[[]links.AnchorLinks]
//	@Security		BearerAuth
//	@Router			/nodes/{id}/link-menu [get]
func (h *Handler) NodeLinkMenu(w http.ResponseWriter, r *http.Request) {
	menu, err := h.d.Links.AnchorLinks(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, menu)
}

// FollowLink handles GET /api/links/{id}/follow?from=<nodeId>.
//
//	@Summary		Resolve the far side of a link
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Link id"
//	@Param			from	query	string	true	"Node the link is followed from"
//	@Success		200	{object}	envelope.Result[links.Destination]
//	@Failure		400	{object}	envelope.Result[any]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links/{id}/follow [get]
func (h *Handler) FollowLink(w http.ResponseWriter, r *http.Request) {
	dest, err := h.d.Links.FollowLink(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, dest)
}

// LinkMenu handles GET /api/links/{id}/menu.
//
//	@Summary		Context menu for a link
//	@Tags			links
//	@Produce		json
//	@Param			id	path	string	true	"Link id"
//	@Success		200	{object}	envelope.Result[linking.Menu]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/links/{id}/menu [get]
func (h *Handler) LinkMenu(w http.ResponseWriter, r *http.Request) {
	l, err := h.d.Links.GetLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, linking.LinkMenu(l, h.version()))
}
