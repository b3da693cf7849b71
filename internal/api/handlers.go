package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/nodeservice"
)

// Handler holds API route handlers.
type Handler struct {
	d Deps
}

// NewHandler creates a new Handler.
func NewHandler(d Deps) *Handler {
	return &Handler{d: d}
}

func (h *Handler) version() uint64 {
	if h.d.Session == nil {
		return 0
	}
	return h.d.Session.Version()
}

func ok[T any](h *Handler, w http.ResponseWriter, payload T) {
	writeOK(w, http.StatusOK, payload, h.version())
}

// RootNodes handles GET /api/nodes.
//
//	@Summary		List root nodes
//	@Tags			nodes
//	@Produce		json
//	@Success		200	{object}	envelope.Result[[]models.Node]
//	@Security		BearerAuth
//	@Router			/nodes [get]
func (h *Handler) RootNodes(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.d.Nodes.Roots(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, nodes)
}

// CreateNode handles POST /api/nodes.
//
//	@Summary		Create a node under an optional parent
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNodeRequest	true	"Node to create"
//	@Success		201		{object}	envelope.Result[nodeservice.NodeDetail]
//	@Failure		400		{object}	envelope.Result[any]
//	@Failure		422		{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes [post]
func (h *Handler) CreateNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.d.Nodes.CreateNode(r.Context(), nodeservice.CreateInput{
		ParentID: req.ParentID,
		Type:     models.NodeType(req.Type),
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, n, h.version())
}

// GetNode handles GET /api/nodes/{id}.
//
//	@Summary		Get a node by id
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path		string	true	"Node id"
//	@Success		200	{object}	envelope.Result[nodeservice.NodeDetail]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id} [get]
func (h *Handler) GetNode(w http.ResponseWriter, r *http.Request) {
	n, err := h.d.Nodes.GetNode(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+n.Checksum+`"`)
	ok(h, w, n)
}

// UpdateNode handles PUT /api/nodes/{id}. An If-Match header enables
// optimistic concurrency on the node checksum.
//
//	@Summary		Update a node's title and content
//	@Tags			nodes
//	@Accept			json
//	@Produce		json
//	@Param			id	path	string	true	"Node id"
//	@Param			If-Match	header	string	false	"Expected checksum"
//	@Param			body	body	UpdateNodeRequest	true	"New title and content"
//	@Success		200	{object}	envelope.Result[nodeservice.NodeDetail]
//	@Failure		404	{object}	envelope.Result[any]
//	@Failure		409	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id} [put]
func (h *Handler) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	n, err := h.d.Nodes.UpdateNode(r.Context(), chi.URLParam(r, "id"), req.Title, req.Content, ifMatch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+n.Checksum+`"`)
	ok(h, w, n)
}

// DeleteNode handles DELETE /api/nodes/{id}, cascading to anchors and links.
//
//	@Summary		Delete a node with its descendants, anchors and links
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path	string	true	"Node id"
//	@Success		200	{object}	envelope.Result[any]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id} [delete]
func (h *Handler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	if err := h.d.Nodes.DeleteNode(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	ok[any](h, w, nil)
}

// Children handles GET /api/nodes/{id}/children.
//
//	@Summary		List a node's children
//	@Tags			nodes
//	@Produce		json
//	@Param			id	path	string	true	"Parent node id"
//	@Success		200	{object}	envelope.Result[[]models.Node]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id}/children [get]
func (h *Handler) Children(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.d.Nodes.Children(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, nodes)
}

// Search handles GET /api/search?q=&limit=.
//
//	@Summary		Search nodes by title and content
//	@Tags			nodes
//	@Produce		json
//	@Param			q	query	string	true	"Query"
//	@Param			limit	query	int	false	"Maximum results"
//	@Success		200	{object}	envelope.Result[[]models.Node]
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	nodes, err := h.d.Nodes.Search(r.Context(), q.Get("q"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	ok(h, w, nodes)
}
