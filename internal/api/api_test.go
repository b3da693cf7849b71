package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/starford/anchorage/internal/anchors"
	"github.com/starford/anchorage/internal/apperr"
	"github.com/starford/anchorage/internal/envelope"
	"github.com/starford/anchorage/internal/linkgraph"
	"github.com/starford/anchorage/internal/linking"
	"github.com/starford/anchorage/internal/links"
	"github.com/starford/anchorage/internal/models"
	"github.com/starford/anchorage/internal/nodeservice"
	"github.com/starford/anchorage/internal/testutil"
)

// testEnv wires a SQLite-backed service stack behind the router.
// An empty authToken disables auth.
func testEnv(t *testing.T, authToken string) (Deps, http.Handler) {
	t.Helper()
	return testEnvWithEvents(t, authToken, nil)
}

func testEnvWithEvents(t *testing.T, authToken string, events http.Handler) (Deps, http.Handler) {
	t.Helper()
	db := testutil.TestDB(t)
	session := linking.NewSession()
	bump := func(string, string) { session.Bump() }
	a := anchors.New(db, anchors.WithNodes(db), anchors.WithNotify(bump))
	l := links.New(db, a, db, links.WithNotify(bump))
	d := Deps{
		Nodes:   nodeservice.NewService(db, a, l, nodeservice.WithNotify(bump)),
		Anchors: a,
		Links:   l,
		Linking: linking.NewController(a, l, session),
		Graph:   linkgraph.NewBuilder(a, l, nil),
		Session: session,
		Events:  events,
	}
	return d, NewRouter(d, authToken != "", authToken)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	} else {
		r = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope.Result[T] {
	t.Helper()
	var res envelope.Result[T]
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return res
}

func createNode(t *testing.T, router http.Handler, parentID, typ, title string) nodeservice.NodeDetail {
	t.Helper()
	w := do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{ParentID: parentID, Type: typ, Title: title, Content: title + " content"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create node = %d, body = %s", w.Code, w.Body.String())
	}
	return decode[nodeservice.NodeDetail](t, w).Payload
}

func TestCreateAndGetNode(t *testing.T) {
	_, router := testEnv(t, "")

	root := createNode(t, router, "", "folder", "Root")
	child := createNode(t, router, root.NodeID, "text", "Hello")

	w := do(t, router, http.MethodGet, "/nodes/"+child.NodeID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	res := decode[nodeservice.NodeDetail](t, w)
	if !res.Success {
		t.Fatalf("success = false, message = %q", res.Message)
	}
	if res.Payload.Title != "Hello" {
		t.Errorf("title = %q, want Hello", res.Payload.Title)
	}
	if got := w.Header().Get("ETag"); got != `"`+res.Payload.Checksum+`"` {
		t.Errorf("etag = %q", got)
	}

	w = do(t, router, http.MethodGet, "/nodes/"+root.NodeID+"/children", nil)
	kids := decode[[]models.Node](t, w).Payload
	if len(kids) != 1 || kids[0].NodeID != child.NodeID {
		t.Errorf("children = %+v", kids)
	}
}

func TestCreateNode_MissingParent(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/nodes", CreateNodeRequest{ParentID: "node.nope", Type: "text", Title: "x"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	res := decode[any](t, w)
	if res.Success || res.Code != apperr.CodeInvalidReference {
		t.Errorf("envelope = %+v", res)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNode(t, router, "", "text", "Lock")

	put := func(ifMatch string) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(UpdateNodeRequest{Title: "Lock", Content: "v2"})
		req := httptest.NewRequest(http.MethodPut, "/nodes/"+n.NodeID, bytes.NewReader(raw))
		req.Header.Set("If-Match", `"`+ifMatch+`"`)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := put(n.Checksum); w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}
	// Stale now.
	if w := put(n.Checksum); w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestGetNode_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/nodes/node.missing", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if res := decode[any](t, w); res.Code != apperr.CodeNotFound {
		t.Errorf("code = %q", res.Code)
	}
}

func TestInvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/anchors", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")
	createNode(t, router, "", "text", "Zebra")
	createNode(t, router, "", "text", "Aardvark")

	w := do(t, router, http.MethodGet, "/search?q=zebra", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d", w.Code)
	}
	hits := decode[[]models.Node](t, w).Payload
	if len(hits) != 1 || hits[0].Title != "Zebra" {
		t.Errorf("hits = %+v", hits)
	}

	w = do(t, router, http.MethodGet, "/search", nil)
	if got := decode[[]models.Node](t, w).Payload; len(got) != 0 {
		t.Errorf("empty query hits = %d", len(got))
	}
}

func TestAnchorLifecycle(t *testing.T) {
	_, router := testEnv(t, "")
	n := createNode(t, router, "", "text", "Doc")

	body := map[string]any{
		"nodeId": n.NodeID,
		"extent": map[string]any{"type": "text", "startCharacter": 0, "endCharacter": 3},
	}
	w := do(t, router, http.MethodPost, "/anchors", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create anchor = %d, body = %s", w.Code, w.Body.String())
	}
	a := decode[models.Anchor](t, w).Payload
	if a.AnchorID == "" {
		t.Fatal("anchor id not minted")
	}

	missing := map[string]any{"nodeId": "node.missing", "extent": map[string]any{"type": "none"}}
	if w := do(t, router, http.MethodPost, "/anchors", missing); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("anchor on missing node = %d, want 422", w.Code)
	}

	// Equal extent on the same node is a conflict.
	if w := do(t, router, http.MethodPost, "/anchors", body); w.Code != http.StatusConflict {
		t.Errorf("duplicate anchor = %d, want 409", w.Code)
	}

	w = do(t, router, http.MethodPut, "/anchors/"+a.AnchorID+"/extent", map[string]any{
		"extent": map[string]any{"type": "text", "startCharacter": 4, "endCharacter": 9},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update extent = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/nodes/"+n.NodeID+"/anchors", nil)
	if list := decode[[]models.Anchor](t, w).Payload; len(list) != 1 {
		t.Errorf("anchors = %d, want 1", len(list))
	}

	if w := do(t, router, http.MethodDelete, "/anchors/"+a.AnchorID, nil); w.Code != http.StatusOK {
		t.Errorf("delete = %d", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/anchors/"+a.AnchorID, nil); w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestDeleteAnchor_CascadeLinks(t *testing.T) {
	_, router := testEnv(t, "")
	parent := createNode(t, router, "", "folder", "Parent")
	a := createNode(t, router, parent.NodeID, "text", "A")
	b := createNode(t, router, parent.NodeID, "text", "B")

	anchor := func(nodeID string) models.Anchor {
		w := do(t, router, http.MethodPost, "/anchors", map[string]any{
			"nodeId": nodeID,
			"extent": map[string]any{"type": "none"},
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create anchor = %d, body = %s", w.Code, w.Body.String())
		}
		return decode[models.Anchor](t, w).Payload
	}
	x, y := anchor(a.NodeID), anchor(b.NodeID)

	w := do(t, router, http.MethodPost, "/links", models.Link{Anchor1ID: x.AnchorID, Anchor2ID: y.AnchorID, Title: "a-b"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create link = %d, body = %s", w.Code, w.Body.String())
	}
	l := decode[models.Link](t, w).Payload

	edges := func() int {
		w := do(t, router, http.MethodGet, "/nodes/"+parent.NodeID+"/graph", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("graph = %d, body = %s", w.Code, w.Body.String())
		}
		return len(decode[linkgraph.Graph](t, w).Payload.Edges)
	}
	if n := edges(); n != 1 {
		t.Fatalf("edges before = %d, want 1", n)
	}

	if w := do(t, router, http.MethodDelete, "/anchors/"+x.AnchorID+"?cascade=nodes", nil); w.Code != http.StatusBadRequest {
		t.Errorf("unknown cascade = %d, want 400", w.Code)
	}

	if w := do(t, router, http.MethodDelete, "/anchors/"+x.AnchorID+"?cascade=links", nil); w.Code != http.StatusOK {
		t.Fatalf("cascade delete = %d, body = %s", w.Code, w.Body.String())
	}
	if n := edges(); n != 0 {
		t.Errorf("edges after = %d, want 0", n)
	}
	if w := do(t, router, http.MethodGet, "/links/"+l.LinkID, nil); w.Code != http.StatusNotFound {
		t.Errorf("link after cascade = %d, want 404", w.Code)
	}
	for _, id := range []string{x.AnchorID, y.AnchorID} {
		if w := do(t, router, http.MethodGet, "/anchors/"+id, nil); w.Code != http.StatusNotFound {
			t.Errorf("anchor %s after cascade = %d, want 404", id, w.Code)
		}
	}
}

func TestCreateLink_MissingAnchor(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/links", models.Link{Anchor1ID: "anchor.x", Anchor2ID: "anchor.y"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
}

func TestLinkingFlow(t *testing.T) {
	d, router := testEnv(t, "")
	root := createNode(t, router, "", "folder", "Root")
	a := createNode(t, router, root.NodeID, "text", "A")
	b := createNode(t, router, root.NodeID, "image", "B")

	// Completing before starting is refused.
	if w := do(t, router, http.MethodPost, "/linking/complete", CompleteLinkRequest{NodeID: b.NodeID}); w.Code != http.StatusConflict {
		t.Fatalf("complete while idle = %d, want 409", w.Code)
	}

	w := do(t, router, http.MethodPost, "/linking/select", map[string]any{
		"nodeId": a.NodeID,
		"extent": map[string]any{"type": "text", "startCharacter": 0, "endCharacter": 1},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("select = %d, body = %s", w.Code, w.Body.String())
	}
	if w := do(t, router, http.MethodPost, "/linking/start", StartLinkRequest{NodeID: a.NodeID}); w.Code != http.StatusOK {
		t.Fatalf("start = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/linking/menu?node="+b.NodeID, nil)
	menu := decode[linking.Menu](t, w).Payload
	if len(menu.Items) == 0 || menu.Items[0].Action != linking.ActionCompleteLink {
		t.Errorf("menu = %+v", menu.Items)
	}

	w = do(t, router, http.MethodPost, "/linking/select", SelectRequest{
		NodeID: b.NodeID,
		Drag:   &DragRequest{From: linking.Point{X: 1, Y: 1}, To: linking.Point{X: 5, Y: 4}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("drag select = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/linking/complete", CompleteLinkRequest{NodeID: b.NodeID, Title: "see also"})
	if w.Code != http.StatusCreated {
		t.Fatalf("complete = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[linking.Commit](t, w)
	if !res.Payload.Applied || res.Payload.Link.Title != "see also" {
		t.Errorf("commit = %+v", res.Payload)
	}
	if res.Version == 0 || res.Version != d.Session.Version() {
		t.Errorf("version = %d, session = %d", res.Version, d.Session.Version())
	}

	w = do(t, router, http.MethodGet, "/linking", nil)
	if snap := decode[linking.Snapshot](t, w).Payload; snap.State != linking.StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}

	w = do(t, router, http.MethodGet, "/links/"+res.Payload.Link.LinkID+"/follow?from="+a.NodeID, nil)
	dest := decode[links.Destination](t, w).Payload
	if dest.NodeID != b.NodeID {
		t.Errorf("follow = %+v", dest)
	}

	w = do(t, router, http.MethodGet, "/nodes/"+root.NodeID+"/graph", nil)
	g := decode[linkgraph.Graph](t, w).Payload
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Errorf("graph = %+v", g)
	}

	// Deleting the only link removes both orphaned anchors.
	if w := do(t, router, http.MethodDelete, "/links/"+res.Payload.Link.LinkID, nil); w.Code != http.StatusOK {
		t.Fatalf("delete link = %d", w.Code)
	}
	for _, id := range []string{a.NodeID, b.NodeID} {
		w := do(t, router, http.MethodGet, "/nodes/"+id+"/anchors", nil)
		if list := decode[[]models.Anchor](t, w).Payload; len(list) != 0 {
			t.Errorf("anchors on %s = %d, want 0", id, len(list))
		}
	}
}

func TestStartLink_Unresolvable(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/linking/select", SelectRequest{NodeID: "node.a", Unresolvable: true})
	w := do(t, router, http.MethodPost, "/linking/start", StartLinkRequest{NodeID: "node.a"})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	w = do(t, router, http.MethodGet, "/linking", nil)
	if snap := decode[linking.Snapshot](t, w).Payload; snap.State != linking.StateIdle {
		t.Errorf("state = %q, want idle", snap.State)
	}
}

func TestCancelLink(t *testing.T) {
	_, router := testEnv(t, "")

	do(t, router, http.MethodPost, "/linking/select", SelectRequest{NodeID: "node.a"})
	do(t, router, http.MethodPost, "/linking/start", StartLinkRequest{NodeID: "node.a"})
	w := do(t, router, http.MethodPost, "/linking/cancel", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("cancel = %d", w.Code)
	}
	if snap := decode[linking.Snapshot](t, w).Payload; snap.State != linking.StateIdle || snap.StartAnchor != nil {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed list = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/nodes", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
	if res := decode[any](t, w); res.Success || res.Code != "unauthorized" {
		t.Errorf("envelope = %+v", res)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/nodes", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithEvents(t, "tok", sseStub())

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvWithEvents(t, "tok", sseStub())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// sseStub writes headers and blocks until the request is done.
func sseStub() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
}
