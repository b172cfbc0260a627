package synapse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultEndpoint = "https://repo-prod.prod.sagebase.org/repo/v1"

// queryPollInterval paces the async table-query poll loop. The call stays
// synchronous from the caller's perspective; polling is the remote
// protocol, not background work.
const queryPollInterval = 500 * time.Millisecond

type Config struct {
	Endpoint string
	Token    string

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client talks to the Synapse REST API with a single bearer credential.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
}

func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, &Error{Kind: KindAuth, Op: "new", Reason: "missing auth token"}
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{endpoint: endpoint, token: token, http: hc}, nil
}

type errorResponse struct {
	Reason string `json:"reason"`
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return &Error{Kind: kindForMethod(method), Op: op, Reason: err.Error()}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return &Error{Kind: kindForMethod(method), Op: op, Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: kindForMethod(method), Op: op, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusAccepted {
		return errAccepted
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, method, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Kind: kindForMethod(method), Op: op, Reason: "decoding response: " + err.Error()}
	}
	return nil
}

// errAccepted signals an async job still running (HTTP 202).
var errAccepted = errors.New("synapse: job not ready")

func (c *Client) statusError(op, method string, resp *http.Response) error {
	var er errorResponse
	_ = json.NewDecoder(resp.Body).Decode(&er)
	reason := strings.TrimSpace(er.Reason)
	if reason == "" {
		reason = http.StatusText(resp.StatusCode)
	}

	kind := kindForMethod(method)
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		kind = KindAuth
	case http.StatusForbidden:
		kind = KindPermission
	case http.StatusNotFound:
		kind = KindNotFound
	case http.StatusConflict, http.StatusPreconditionFailed:
		kind = KindWrite
	}
	return &Error{Kind: kind, Op: op, Status: resp.StatusCode, Reason: reason}
}

func kindForMethod(method string) Kind {
	if method == http.MethodPut || method == http.MethodPost || method == http.MethodDelete {
		return KindWrite
	}
	return KindFetch
}

// GetUserProfile identifies the credential's owner. It doubles as the
// startup credential check: an invalid token fails here with the auth kind.
func (c *Client) GetUserProfile(ctx context.Context) (UserProfile, error) {
	var up UserProfile
	if err := c.do(ctx, "getUserProfile", http.MethodGet, "/userProfile", nil, &up); err != nil {
		return UserProfile{}, err
	}
	return up, nil
}

func (c *Client) GetPermissions(ctx context.Context, entityID string) (Permissions, error) {
	var p Permissions
	path := "/entity/" + url.PathEscape(entityID) + "/permissions"
	if err := c.do(ctx, "getPermissions", http.MethodGet, path, nil, &p); err != nil {
		return Permissions{}, err
	}
	return p, nil
}

func (c *Client) GetAnnotations(ctx context.Context, entityID string) (Annotations, error) {
	var a Annotations
	path := "/entity/" + url.PathEscape(entityID) + "/annotations2"
	if err := c.do(ctx, "getAnnotations", http.MethodGet, path, nil, &a); err != nil {
		return Annotations{}, err
	}
	return a, nil
}

// SetAnnotations replaces the entity's annotations in a single call. The
// payload must carry the id and etag from a live read; the service rejects
// stale etags, which surfaces as a write-kind error.
func (c *Client) SetAnnotations(ctx context.Context, entityID string, a Annotations) (Annotations, error) {
	var out Annotations
	path := "/entity/" + url.PathEscape(entityID) + "/annotations2"
	if err := c.do(ctx, "setAnnotations", http.MethodPut, path, a, &out); err != nil {
		return Annotations{}, err
	}
	return out, nil
}

func (c *Client) GetEntity(ctx context.Context, entityID string) (Entity, error) {
	var e Entity
	path := "/entity/" + url.PathEscape(entityID)
	if err := c.do(ctx, "getEntity", http.MethodGet, path, nil, &e); err != nil {
		return Entity{}, err
	}
	return e, nil
}

type wikiHeaderTree struct {
	Results []WikiHeader `json:"results"`
}

func (c *Client) GetWikiHeaders(ctx context.Context, ownerID string) ([]WikiHeader, error) {
	var tree wikiHeaderTree
	path := "/entity/" + url.PathEscape(ownerID) + "/wikiheadertree"
	if err := c.do(ctx, "getWikiHeaders", http.MethodGet, path, nil, &tree); err != nil {
		return nil, err
	}
	return tree.Results, nil
}

// GetWikiPage fetches one wiki page with inline markdown. An empty wikiID
// fetches the owner's root page.
func (c *Client) GetWikiPage(ctx context.Context, ownerID, wikiID string) (WikiPage, error) {
	path := "/entity/" + url.PathEscape(ownerID) + "/wiki"
	if strings.TrimSpace(wikiID) != "" {
		path += "/" + url.PathEscape(wikiID)
	}
	var p WikiPage
	if err := c.do(ctx, "getWikiPage", http.MethodGet, path, nil, &p); err != nil {
		return WikiPage{}, err
	}
	return p, nil
}

type childrenRequest struct {
	ParentID      string   `json:"parentId"`
	IncludeTypes  []string `json:"includeTypes"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

type childrenResponse struct {
	Page          []ChildEntity `json:"page"`
	NextPageToken string        `json:"nextPageToken"`
}

// ListChildren lists an entity's children filtered by type, following
// pagination to the end.
func (c *Client) ListChildren(ctx context.Context, parentID string, types []string) ([]ChildEntity, error) {
	var out []ChildEntity
	req := childrenRequest{ParentID: parentID, IncludeTypes: types}
	for {
		var resp childrenResponse
		if err := c.do(ctx, "listChildren", http.MethodPost, "/entity/children", req, &resp); err != nil {
			return nil, err
		}
		out = append(out, resp.Page...)
		if strings.TrimSpace(resp.NextPageToken) == "" {
			return out, nil
		}
		req.NextPageToken = resp.NextPageToken
	}
}

type columnModel struct {
	Name string `json:"name"`
}

type columnsResponse struct {
	Results []columnModel `json:"results"`
}

// reservedSchemaKeys are view bookkeeping columns, excluded from the
// editable annotation-key set.
var reservedSchemaKeys = map[string]bool{
	"id":         true,
	"createdBy":  true,
	"modifiedBy": true,
	"name":       true,
	"etag":       true,
}

func (c *Client) GetSchemaColumns(ctx context.Context, viewID string) ([]string, error) {
	var resp columnsResponse
	path := "/entity/" + url.PathEscape(viewID) + "/column"
	if err := c.do(ctx, "getSchemaColumns", http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(resp.Results))
	for _, col := range resp.Results {
		name := strings.TrimSpace(col.Name)
		if name == "" || reservedSchemaKeys[name] {
			continue
		}
		cols = append(cols, name)
	}
	return cols, nil
}

type queryRequest struct {
	ConcreteType string      `json:"concreteType"`
	EntityID     string      `json:"entityId"`
	Query        queryClause `json:"query"`
	PartMask     int         `json:"partMask"`
}

type queryClause struct {
	SQL string `json:"sql"`
}

type asyncJob struct {
	Token string `json:"token"`
}

type queryResultBundle struct {
	QueryResult struct {
		QueryResults struct {
			Headers []struct {
				Name string `json:"name"`
			} `json:"headers"`
			Rows []struct {
				Values []string `json:"values"`
			} `json:"rows"`
		} `json:"queryResults"`
	} `json:"queryResult"`
}

// ListProjects queries the challenge project view for id and name. Table
// queries run as async jobs on the service side; the client polls until the
// result bundle is ready.
func (c *Client) ListProjects(ctx context.Context, viewID string) ([]ProjectRef, error) {
	req := queryRequest{
		ConcreteType: "org.sagebionetworks.repo.model.table.QueryBundleRequest",
		EntityID:     viewID,
		Query:        queryClause{SQL: fmt.Sprintf("SELECT id, name FROM %s", viewID)},
		PartMask:     1, // query results only
	}

	startPath := "/entity/" + url.PathEscape(viewID) + "/table/query/async/start"
	var job asyncJob
	if err := c.do(ctx, "listProjects", http.MethodPost, startPath, req, &job); err != nil {
		return nil, err
	}
	if strings.TrimSpace(job.Token) == "" {
		return nil, &Error{Kind: KindFetch, Op: "listProjects", Reason: "query job returned no token"}
	}

	getPath := "/entity/" + url.PathEscape(viewID) + "/table/query/async/get/" + url.PathEscape(job.Token)
	var bundle queryResultBundle
	for {
		err := c.do(ctx, "listProjects", http.MethodGet, getPath, nil, &bundle)
		if err == nil {
			break
		}
		if !errors.Is(err, errAccepted) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, &Error{Kind: KindFetch, Op: "listProjects", Reason: ctx.Err().Error()}
		case <-time.After(queryPollInterval):
		}
	}

	results := bundle.QueryResult.QueryResults
	idx := map[string]int{}
	for i, h := range results.Headers {
		idx[strings.ToLower(strings.TrimSpace(h.Name))] = i
	}
	idCol, okID := idx["id"]
	nameCol, okName := idx["name"]
	if !okID || !okName {
		return nil, &Error{Kind: KindFetch, Op: "listProjects", Reason: "query result missing id/name columns"}
	}

	out := make([]ProjectRef, 0, len(results.Rows))
	for _, row := range results.Rows {
		if idCol >= len(row.Values) || nameCol >= len(row.Values) {
			continue
		}
		ref := ProjectRef{ID: strings.TrimSpace(row.Values[idCol]), Name: strings.TrimSpace(row.Values[nameCol])}
		if ref.ID == "" {
			continue
		}
		out = append(out, ref)
	}
	return out, nil
}
