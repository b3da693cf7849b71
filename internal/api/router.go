package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/nodeservice"
)

// Deps are the services the API serves.
type Deps struct {
	Nodes   *nodeservice.Service
	Anchors *anchors.Registry
	Links   *links.Registry
	Linking *linking.Controller
	Graph   *linkgraph.Builder
	Session *linking.Session
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(d Deps, authEnabled bool, token string) chi.Router {
	h := NewHandler(d)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Nodes.
	r.Get("/nodes", h.RootNodes)
	r.Post("/nodes", h.CreateNode)
	r.Get("/nodes/{id}", h.GetNode)
	r.Put("/nodes/{id}", h.UpdateNode)
	r.Delete("/nodes/{id}", h.DeleteNode)
	r.Get("/nodes/{id}/children", h.Children)
	r.Get("/search", h.Search)

	// Anchors.
	r.Post("/anchors", h.CreateAnchor)
	r.Get("/anchors/{id}", h.GetAnchor)
	r.Put("/anchors/{id}/extent", h.UpdateExtent)
	r.Delete("/anchors/{id}", h.DeleteAnchor)
	r.Get("/nodes/{id}/anchors", h.NodeAnchors)

	// Links.
	r.Post("/links", h.CreateLink)
	r.Get("/links/{id}", h.GetLink)
	r.Delete("/links/{id}", h.DeleteLink)
	r.Post("/links/delete", h.DeleteLinks)
	r.Get("/links/{id}/follow", h.FollowLink)
	r.Get("/links/{id}/menu", h.LinkMenu)
	r.Get("/anchors/{id}/links", h.AnchorLinks)
	r.Get("/nodes/{id}/link-menu", h.NodeLinkMenu)

	// Link graph of a node's children.
	r.Get("/nodes/{id}/graph", h.Graph)
	r.Get("/nodes/{id}/graph.svg", h.GraphSVG)

	// Linking session.
	r.Route("/linking", func(r chi.Router) {
		r.Get("/", h.LinkingState)
		r.Post("/select", h.Select)
		r.Post("/select-anchor", h.SelectAnchor)
		r.Post("/clear", h.ClearSelection)
		r.Post("/start", h.StartLink)
		r.Post("/complete", h.CompleteLink)
		r.Post("/cancel", h.CancelLink)
		r.Get("/menu", h.NodeMenu)
	})

	if d.Events != nil {
		r.Get("/events", d.Events.ServeHTTP)
	}

	return r
}
