package api

import (
	"net/http"

	"github.com/starford/anchorage/internal/extent"
	"github.com/starford/anchorage/internal/linking"
)

// LinkingState handles GET /api/linking.
//
//	@Summary		Current linking session state
//	@Tags			linking
//	@Produce		json
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Security		BearerAuth
//	@Router			/linking [get]
func (h *Handler) LinkingState(w http.ResponseWriter, _ *http.Request) {
	snap := h.d.Linking.Snapshot()
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// Select handles POST /api/linking/select. It records a selection and never
// creates an anchor.
//
//	@Summary		Record the selected extent on a node
//	@Tags			linking
//	@Accept			json
//	@Produce		json
//	@Param			body	body	SelectRequest	true	"Selection"
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Failure		400	{object}	envelope.Result[any]
//	@Failure		422	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/linking/select [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Unresolvable {
		snap := h.d.Linking.MarkUnresolvable(req.NodeID)
		writeOK(w, http.StatusOK, snap, snap.Version)
		return
	}
	var e extent.Extent = req.Extent.Get()
	if req.Drag != nil {
		e = linking.BeginDrag(req.NodeID, req.Drag.From).End(req.Drag.To)
	}
	snap, err := h.d.Linking.Select(req.NodeID, e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// SelectAnchor handles POST /api/linking/select-anchor.
//
//	@Summary		Select an existing anchor's extent
//	@Tags			linking
//	@Accept			json
//	@Produce		json
//	@Param			body	body	SelectAnchorRequest	true	"Anchor id"
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Failure		404	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/linking/select-anchor [post]
func (h *Handler) SelectAnchor(w http.ResponseWriter, r *http.Request) {
	var req SelectAnchorRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.d.Linking.SelectAnchor(r.Context(), req.AnchorID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// ClearSelection handles POST /api/linking/clear.
//
//	@Summary		Clear the current selection
//	@Tags			linking
//	@Produce		json
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Security		BearerAuth
//	@Router			/linking/clear [post]
func (h *Handler) ClearSelection(w http.ResponseWriter, _ *http.Request) {
	snap := h.d.Linking.ClearSelection()
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// StartLink handles POST /api/linking/start. An unresolvable selection is a
// 422 and the session stays idle.
//
//	@Summary		Start a link from the selected extent
//	@Tags			linking
//	@Accept			json
//	@Produce		json
//	@Param			body	body	StartLinkRequest	true	"Start node"
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Failure		409	{object}	envelope.Result[any]
//	@Failure		422	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/linking/start [post]
func (h *Handler) StartLink(w http.ResponseWriter, r *http.Request) {
	var req StartLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	snap, err := h.d.Linking.StartLink(req.NodeID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// CompleteLink handles POST /api/linking/complete.
//
//	@Summary		Complete the pending link on a node
//	@Tags			linking
//	@Accept			json
//	@Produce		json
//	@Param			body	body	CompleteLinkRequest	true	"Target node and link text"
//	@Success		201	{object}	envelope.Result[linking.Commit]
//	@Failure		409	{object}	envelope.Result[any]
//	@Failure		422	{object}	envelope.Result[any]
//	@Security		BearerAuth
//	@Router			/linking/complete [post]
func (h *Handler) CompleteLink(w http.ResponseWriter, r *http.Request) {
	var req CompleteLinkRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.d.Linking.CompleteLink(r.Context(), req.NodeID, req.Title, req.Explainer)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, res, res.Version)
}

// CancelLink handles POST /api/linking/cancel.
//
//	@Summary		Cancel the pending link
//	@Tags			linking
//	@Produce		json
//	@Success		200	{object}	envelope.Result[linking.Snapshot]
//	@Security		BearerAuth
//	@Router			/linking/cancel [post]
func (h *Handler) CancelLink(w http.ResponseWriter, _ *http.Request) {
	snap := h.d.Linking.Cancel()
	writeOK(w, http.StatusOK, snap, snap.Version)
}

// NodeMenu handles GET /api/linking/menu?node=<id>.
//
//	@Summary		Context menu for a node
//	@Tags			linking
//	@Produce		json
//	@Param			node	query	string	true	"Node id"
//	@Success		200	{object}	envelope.Result[linking.Menu]
//	@Security		BearerAuth
//	@Router			/linking/menu [get]
func (h *Handler) NodeMenu(w http.ResponseWriter, r *http.Request) {
	snap := h.d.Linking.Snapshot()
	m := linking.NodeMenu(snap, r.URL.Query().Get("node"))
	writeOK(w, http.StatusOK, m, m.Version)
}
