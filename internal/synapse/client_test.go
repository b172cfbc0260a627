package synapse

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(Config{Endpoint: srv.URL, Token: "tok", HTTPClient: srv.Client()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, srv
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{})
	if err == nil {
		t.Fatalf("expected error for missing token")
	}
	if KindOf(err) != KindAuth {
		t.Fatalf("expected auth kind, got %v", KindOf(err))
	}
}

func TestBearerHeaderIsSent(t *testing.T) {
	var got string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(UserProfile{OwnerID: "1", UserName: "vchung"})
	}))

	up, err := c.GetUserProfile(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Bearer tok" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if up.UserName != "vchung" {
		t.Fatalf("unexpected profile: %+v", up)
	}
}

func TestGetAnnotationsNormalizesWireShapes(t *testing.T) {
	body := `{
		"id": "syn1",
		"etag": "e-1",
		"annotations": {
			"status": {"type": "STRING", "value": ["Active"]},
			"challengeType": {"type": "STRING", "value": ["Data To Model", "Model to Data"]},
			"legacyScalar": "plain",
			"legacyList": ["a", "b"]
		}
	}`
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entity/syn1/annotations2" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))

	a, err := c.GetAnnotations(context.Background(), "syn1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Etag != "e-1" {
		t.Fatalf("expected etag, got %q", a.Etag)
	}
	if v, ok := a.Get("status"); !ok || v.Display() != "Active" {
		t.Fatalf("unexpected status value: %+v", v)
	}
	if v, _ := a.Get("challengeType"); v.Display() != "Data To Model, Model to Data" {
		t.Fatalf("expected joined list display, got %q", v.Display())
	}
	if v, _ := a.Get("legacyScalar"); v.Display() != "plain" {
		t.Fatalf("expected legacy scalar normalized, got %q", v.Display())
	}
	if v, _ := a.Get("legacyList"); v.Display() != "a, b" {
		t.Fatalf("expected legacy list normalized, got %q", v.Display())
	}
}

func TestStatusCodeMapsToErrorKind(t *testing.T) {
	cases := []struct {
		status int
		want   Kind
	}{
		{http.StatusUnauthorized, KindAuth},
		{http.StatusForbidden, KindPermission},
		{http.StatusNotFound, KindNotFound},
		{http.StatusInternalServerError, KindFetch},
	}
	for _, tc := range cases {
		c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_ = json.NewEncoder(w).Encode(map[string]string{"reason": "nope"})
		}))
		_, err := c.GetAnnotations(context.Background(), "syn1")
		if err == nil {
			t.Fatalf("status %d: expected error", tc.status)
		}
		if KindOf(err) != tc.want {
			t.Fatalf("status %d: expected kind %v, got %v", tc.status, tc.want, KindOf(err))
		}
	}
}

func TestSetAnnotationsConflictIsWriteKind(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		w.WriteHeader(http.StatusPreconditionFailed)
		_ = json.NewEncoder(w).Encode(map[string]string{"reason": "etag out of date"})
	}))

	a := Annotations{ID: "syn1", Etag: "stale"}
	a.Set("status", "Closed")
	_, err := c.SetAnnotations(context.Background(), "syn1", a)
	if KindOf(err) != KindWrite {
		t.Fatalf("expected write kind for stale etag, got %v", err)
	}
}

func TestGetEntityFetchesLiveObject(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/entity/syn1" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(Entity{ID: "syn1", Name: "Alpha", Type: "org.sagebionetworks.repo.model.Project", Etag: "e-1"})
	}))

	e, err := c.GetEntity(context.Background(), "syn1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.ID != "syn1" || e.Etag != "e-1" {
		t.Fatalf("unexpected entity: %+v", e)
	}
}

func TestListChildrenFollowsPagination(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req childrenRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ParentID != "syn1" {
			t.Errorf("unexpected parent id %q", req.ParentID)
		}
		if req.NextPageToken == "" {
			_ = json.NewEncoder(w).Encode(childrenResponse{
				Page:          []ChildEntity{{ID: "syn2", Name: "data", Type: "org.sagebionetworks.repo.model.Folder"}},
				NextPageToken: "page-2",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(childrenResponse{
			Page: []ChildEntity{{ID: "syn3", Name: "more", Type: "org.sagebionetworks.repo.model.Folder"}},
		})
	}))

	kids, err := c.ListChildren(context.Background(), "syn1", []string{TypeFolder})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kids) != 2 || kids[0].ID != "syn2" || kids[1].ID != "syn3" {
		t.Fatalf("unexpected children: %v", kids)
	}
}

func TestGetSchemaColumnsExcludesReservedKeys(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]string{
				{"name": "id"}, {"name": "name"}, {"name": "etag"},
				{"name": "createdBy"}, {"name": "modifiedBy"},
				{"name": "status"}, {"name": "challengeType"},
			},
		})
	}))

	cols, err := c.GetSchemaColumns(context.Background(), "syn51476218")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cols) != 2 || cols[0] != "status" || cols[1] != "challengeType" {
		t.Fatalf("expected reserved keys excluded, got %v", cols)
	}
}

func TestListProjectsPollsAsyncJob(t *testing.T) {
	polls := 0
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			_ = json.NewEncoder(w).Encode(asyncJob{Token: "job-1"})
		case polls == 0:
			polls++
			w.WriteHeader(http.StatusAccepted)
		default:
			_, _ = w.Write([]byte(`{
				"queryResult": {"queryResults": {
					"headers": [{"name": "id"}, {"name": "name"}],
					"rows": [
						{"values": ["syn1", "ChallengeA"]},
						{"values": ["syn5", "ChallengeB"]}
					]
				}}
			}`))
		}
	}))

	refs, err := c.ListProjects(context.Background(), "syn51476218")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(refs) != 2 || refs[0].ID != "syn1" || refs[1].Name != "ChallengeB" {
		t.Fatalf("unexpected projects: %v", refs)
	}
}

func TestGetWikiPageRootVsSubpage(t *testing.T) {
	var paths []string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		_ = json.NewEncoder(w).Encode(WikiPage{ID: "100", Title: "Overview", Markdown: "# hi"})
	}))

	if _, err := c.GetWikiPage(context.Background(), "syn1", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := c.GetWikiPage(context.Background(), "syn1", "100"); err != nil {
		t.Fatal(err)
	}
	if paths[0] != "/entity/syn1/wiki" || paths[1] != "/entity/syn1/wiki/100" {
		t.Fatalf("unexpected paths: %v", paths)
	}
}
