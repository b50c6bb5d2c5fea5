// Package gist implements docstore.Store on top of GitHub gists.
//
// A gist is a collection; its files are the documents. A commit is a single
// PATCH of the gist, where a null file entry deletes that file.
package gist

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/roach88/cfgsync/internal/cfgerr"
	"github.com/roach88/cfgsync/internal/ctxlog"
	"github.com/roach88/cfgsync/internal/docstore"
)

// DefaultAPI is the public GitHub REST endpoint.
const DefaultAPI = "https://api.github.com"

const apiVersion = "2022-11-28"

// Config configures a Client.
type Config struct {
	// API is the REST base URL. Defaults to DefaultAPI.
	API string

	// Token is a personal access token with the gist scope.
	Token string

	// Timeout bounds each HTTP request. Zero means 30s.
	Timeout time.Duration
}

// Client is a gist-backed document store.
type Client struct {
	http *resty.Client
}

var _ docstore.Store = (*Client)(nil)

// New creates a gist client. ctx only scopes token source construction.
func New(ctx context.Context, cfg Config) *Client {
	api := strings.TrimRight(cfg.API, "/")
	if api == "" {
		api = DefaultAPI
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	hc := &http.Client{}
	if cfg.Token != "" {
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	}

	rc := resty.NewWithClient(hc).
		SetBaseURL(api).
		SetTimeout(timeout).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("X-GitHub-Api-Version", apiVersion).
		SetHeader("User-Agent", "cfgsync")
	return &Client{http: rc}
}

type gistFile struct {
	Filename  string `json:"filename"`
	Size      int    `json:"size"`
	RawURL    string `json:"raw_url"`
	Truncated bool   `json:"truncated"`
	Content   string `json:"content"`
}

type gistResponse struct {
	ID      string              `json:"id"`
	HTMLURL string              `json:"html_url"`
	Files   map[string]gistFile `json:"files"`
}

type fileEdit struct {
	Content string `json:"content"`
}

type patchRequest struct {
	Files map[string]*fileEdit `json:"files"`
}

// Fetch implements docstore.Store.
func (c *Client) Fetch(ctx context.Context, collectionID string) (docstore.Collection, error) {
	logger := ctxlog.FromContext(ctx)

	var out gistResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", collectionID).
		SetResult(&out).
		Get("/gists/{id}")
	if err := checkResponse(resp, err); err != nil {
		return nil, cfgerr.RemoteUnavailable(collectionID, "fetch", err)
	}

	docs := make(docstore.Collection, len(out.Files))
	for name, f := range out.Files {
		content := f.Content
		if f.Truncated {
			logger.Debug("reading truncated gist file", "name", name, "size", f.Size)
			raw, err := c.raw(ctx, f.RawURL)
			if err != nil {
				return nil, cfgerr.RemoteUnavailable(collectionID, "fetch "+name, err)
			}
			content = raw
		}
		docs[name] = content
	}
	logger.Debug("fetched gist", "id", collectionID, "documents", len(docs))
	return docs, nil
}

func (c *Client) raw(ctx context.Context, url string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		Get(url)
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}
	return resp.String(), nil
}

// Commit implements docstore.Store. All staged operations travel in one
// PATCH request; the response describes the gist afterwards.
func (c *Client) Commit(ctx context.Context, batch *docstore.Batch) (docstore.CommitResult, error) {
	body := patchRequest{Files: make(map[string]*fileEdit, batch.Len())}
	for _, op := range batch.Ops() {
		switch op.Kind {
		case docstore.OpUpsert:
			body.Files[op.Name] = &fileEdit{Content: op.Content}
		case docstore.OpDelete:
			body.Files[op.Name] = nil
		}
	}

	var out gistResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", batch.CollectionID).
		SetBody(body).
		SetResult(&out).
		Patch("/gists/{id}")
	if err := checkResponse(resp, err); err != nil {
		return docstore.CommitResult{}, cfgerr.RemoteUnavailable(batch.CollectionID, "commit", err)
	}

	result := docstore.CommitResult{
		URL:       out.HTMLURL,
		Documents: make(map[string]docstore.DocumentInfo, len(out.Files)),
	}
	for name, f := range out.Files {
		result.Documents[name] = docstore.DocumentInfo{Size: f.Size, URL: f.RawURL}
	}
	ctxlog.FromContext(ctx).Debug("patched gist", "id", batch.CollectionID, "ops", batch.Len())
	return result, nil
}

// checkResponse folds transport errors and non-2xx statuses into one error.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		msg := strings.TrimSpace(resp.String())
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("%s %s: %s: %s", resp.Request.Method, resp.Request.URL, resp.Status(), msg)
	}
	return nil
}
