package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anchorage/internal/linkgraph"
)

func (h *Handler) buildGraph(r *http.Request) (linkgraph.Graph, error) {
	version := h.version()
	children, err := h.d.Nodes.Children(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return linkgraph.Graph{}, err
	}
	g, err := h.d.Graph.Build(r.Context(), children)
	if err != nil {
		return linkgraph.Graph{}, err
	}
	g.Version = version
	return g, nil
}

// Graph handles GET /api/nodes/{id}/graph: the link graph of the node's children.
//
//	@Summary		Link graph of a node's children
//	@Tags			graph
//	@Produce		json
//	@Param			id	path		string	true	"Parent node id"
//	@Success		200	{object}	envelope.Result[linkgraph.Graph]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id}/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.buildGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, g, g.Version)
}

// GraphSVG handles GET /api/nodes/{id}/graph.svg.
//
//	@Summary		Render the link graph of a node's children as SVG
//	@Tags			graph
//	@Produce		image/svg+xml
//	@Param			id	path	string	true	"Parent node id"
//	@Success		200	{string}	string	"SVG document"
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/nodes/{id}/graph.svg [get]
func (h *Handler) GraphSVG(w http.ResponseWriter, r *http.Request) {
	g, err := h.buildGraph(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	svg, err := linkgraph.RenderSVG(r.Context(), g)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(svg)
}
