// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package zotero is a client for the Zotero Web API v3, covering the small
// surface paperflow needs: reading inbox items, downloading PDF
// attachments, and writing back collections, tags and notes.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paperflow/internal/httputil"
	"github.com/pdiddy/paperflow/pkg/types"
)

// apiBase is the Zotero Web API endpoint. Tests point this at a local server.
var apiBase = "https://api.zotero.org"

// Bookkeeping tags paperflow writes onto items it has handled.
const (
	ProcessedTag = "_paperflow_processed"
	SkippedTag   = "_paperflow_skipped"
)

const (
	clientTimeout = 30 * time.Second
	pageLimit     = 100
)

// Client talks to one Zotero library.
type Client struct {
	Config types.ZoteroConfig
	WebDAV *types.WebDAVConfig
	HTTP   *http.Client

	// collections caches the name->key map for the library. Populated
	// lazily and extended as collections are created.
	collections map[string]string
}

// NewClient builds a client for the configured library. webdav may be nil,
// in which case attachments are fetched through Zotero storage.
func NewClient(cfg types.ZoteroConfig, webdav *types.WebDAVConfig) *Client {
	return &Client{
		Config: cfg,
		WebDAV: webdav,
		HTTP:   &http.Client{Timeout: clientTimeout},
	}
}

// APIError reports a non-success response from the Zotero API.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zotero API %s: HTTP %d: %s", e.Path, e.Status, e.Body)
}

// Wire types for the subset of the API paperflow reads and writes.

type apiItem struct {
	Key     string   `json:"key"`
	Version int      `json:"version"`
	Data    itemData `json:"data"`
}

type itemData struct {
	Key         string    `json:"key,omitempty"`
	Version     int       `json:"version,omitempty"`
	ItemType    string    `json:"itemType"`
	Title       string    `json:"title,omitempty"`
	Creators    []creator `json:"creators,omitempty"`
	Collections []string  `json:"collections,omitempty"`
	Tags        []itemTag `json:"tags,omitempty"`
	ParentItem  string    `json:"parentItem,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Note        string    `json:"note,omitempty"`
}

type creator struct {
	CreatorType string `json:"creatorType,omitempty"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	Name        string `json:"name,omitempty"`
}

type itemTag struct {
	Tag string `json:"tag"`
}

type apiCollection struct {
	Key  string `json:"key"`
	Data struct {
		Name string `json:"name"`
	} `json:"data"`
}

func (c *Client) libraryPath() string {
	if c.Config.LibraryType == "group" {
		return "/groups/" + c.Config.LibraryID
	}
	return "/users/" + c.Config.LibraryID
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiBase+c.libraryPath()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Zotero-API-Key", c.Config.APIKey)
	req.Header.Set("Zotero-API-Version", "3")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// get performs a GET under the library path and returns the body on 200.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return nil, fmt.Errorf("zotero GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("zotero GET %s: reading body: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Path: path, Body: snippet(data)}
	}
	return data, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// GetInboxItems returns the top-level items of the inbox collection (or the
// whole library when no inbox is configured), with notes and standalone
// attachments filtered out. For each item the PDF child attachment, if any,
// is discovered with a children lookup.
func (c *Client) GetInboxItems(ctx context.Context) ([]types.LibraryItem, error) {
	path := "/items/top"
	if c.Config.InboxCollection != "" {
		key, err := c.GetCollectionKey(ctx, c.Config.InboxCollection)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("inbox collection %q not found in library", c.Config.InboxCollection)
		}
		path = "/collections/" + key + "/items/top"
	}

	query := url.Values{"limit": {strconv.Itoa(pageLimit)}}
	data, err := c.get(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var raw []apiItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding items: %w", err)
	}

	var items []types.LibraryItem
	for _, it := range raw {
		if it.Data.ItemType == "attachment" || it.Data.ItemType == "note" {
			continue
		}
		item := toLibraryItem(it)
		pdfKey, err := c.findPDFAttachment(ctx, it.Key)
		if err != nil {
			slog.Warn("could not list attachments", "item", it.Key, "error", err)
		}
		item.HasPDF = pdfKey != ""
		item.PDFAttachmentKey = pdfKey
		items = append(items, item)
	}
	slog.Debug("fetched inbox items", "count", len(items))
	return items, nil
}

func toLibraryItem(it apiItem) types.LibraryItem {
	item := types.LibraryItem{
		Key:         it.Key,
		Title:       it.Data.Title,
		ItemType:    it.Data.ItemType,
		Collections: it.Data.Collections,
	}
	for _, cr := range it.Data.Creators {
		name := cr.Name
		if name == "" {
			name = strings.TrimSpace(cr.FirstName + " " + cr.LastName)
		}
		if name != "" {
			item.Creators = append(item.Creators, name)
		}
	}
	for _, tag := range it.Data.Tags {
		item.Tags = append(item.Tags, tag.Tag)
	}
	return item
}

// findPDFAttachment returns the key of the first PDF child of itemKey,
// empty when the item has no PDF.
func (c *Client) findPDFAttachment(ctx context.Context, itemKey string) (string, error) {
	data, err := c.get(ctx, "/items/"+itemKey+"/children", nil)
	if err != nil {
		return "", err
	}
	var children []apiItem
	if err := json.Unmarshal(data, &children); err != nil {
		return "", fmt.Errorf("decoding children of %s: %w", itemKey, err)
	}
	for _, child := range children {
		if child.Data.ItemType == "attachment" && child.Data.ContentType == "application/pdf" {
			return child.Key, nil
		}
	}
	return "", nil
}

// GetItemPDF downloads the PDF attachment bytes for item. When WebDAV
// storage is configured it is used exclusively; otherwise the file comes
// from Zotero storage.
func (c *Client) GetItemPDF(ctx context.Context, item types.LibraryItem) ([]byte, error) {
	if item.PDFAttachmentKey == "" {
		return nil, fmt.Errorf("item %s has no PDF attachment", item.Key)
	}
	if c.WebDAV != nil {
		return fetchWebDAV(ctx, c.HTTP, c.WebDAV, item.PDFAttachmentKey)
	}

	data, err := c.get(ctx, "/items/"+item.PDFAttachmentKey+"/file", nil)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// IsProcessed reports whether the item carries the processed bookkeeping tag.
func IsProcessed(item types.LibraryItem) bool { return hasTag(item, ProcessedTag) }

// IsSkipped reports whether the item carries the skipped bookkeeping tag.
func IsSkipped(item types.LibraryItem) bool { return hasTag(item, SkippedTag) }

func hasTag(item types.LibraryItem, tag string) bool {
	for _, t := range item.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// MarkProcessed tags the item as handled by paperflow.
func (c *Client) MarkProcessed(ctx context.Context, itemKey string) error {
	return c.AddTags(ctx, itemKey, ProcessedTag)
}

// MarkSkipped tags the item as examined but not processable.
func (c *Client) MarkSkipped(ctx context.Context, itemKey string) error {
	return c.AddTags(ctx, itemKey, SkippedTag)
}

// AddTags merges tags into the item's existing tag set.
func (c *Client) AddTags(ctx context.Context, itemKey string, tags ...string) error {
	return c.modifyItem(ctx, itemKey, func(data *itemData) {
		for _, tag := range tags {
			exists := false
			for _, t := range data.Tags {
				if t.Tag == tag {
					exists = true
					break
				}
			}
			if !exists {
				data.Tags = append(data.Tags, itemTag{Tag: tag})
			}
		}
	})
}

// AddToCollection adds the item to the collection with the given key.
func (c *Client) AddToCollection(ctx context.Context, itemKey, collectionKey string) error {
	return c.modifyItem(ctx, itemKey, func(data *itemData) {
		for _, k := range data.Collections {
			if k == collectionKey {
				return
			}
		}
		data.Collections = append(data.Collections, collectionKey)
	})
}

// RemoveFromCollection removes the item from the collection with the given key.
func (c *Client) RemoveFromCollection(ctx context.Context, itemKey, collectionKey string) error {
	return c.modifyItem(ctx, itemKey, func(data *itemData) {
		kept := data.Collections[:0]
		for _, k := range data.Collections {
			if k != collectionKey {
				kept = append(kept, k)
			}
		}
		data.Collections = kept
	})
}

// modifyItem fetches the item, applies mutate to its data, and writes it
// back with optimistic locking. A 412 (version conflict) triggers one
// refetch-and-retry; a second conflict is returned to the caller.
func (c *Client) modifyItem(ctx context.Context, itemKey string, mutate func(*itemData)) error {
	for attempt := 0; ; attempt++ {
		item, err := c.fetchItem(ctx, itemKey)
		if err != nil {
			return err
		}
		mutate(&item.Data)

		err = c.patchItem(ctx, item)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusPreconditionFailed && attempt == 0 {
			slog.Debug("version conflict, refetching", "item", itemKey)
			continue
		}
		return err
	}
}

func (c *Client) fetchItem(ctx context.Context, itemKey string) (apiItem, error) {
	data, err := c.get(ctx, "/items/"+itemKey, nil)
	if err != nil {
		return apiItem{}, err
	}
	var item apiItem
	if err := json.Unmarshal(data, &item); err != nil {
		return apiItem{}, fmt.Errorf("decoding item %s: %w", itemKey, err)
	}
	return item, nil
}

func (c *Client) patchItem(ctx context.Context, item apiItem) error {
	body, err := json.Marshal(item.Data)
	if err != nil {
		return fmt.Errorf("encoding item %s: %w", item.Key, err)
	}
	req, err := c.newRequest(ctx, http.MethodPatch, "/items/"+item.Key, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("If-Unmodified-Since-Version", strconv.Itoa(item.Version))

	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return fmt.Errorf("zotero PATCH /items/%s: %w", item.Key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Path: "/items/" + item.Key, Body: snippet(data)}
	}
	return nil
}

// AddNote attaches an HTML note as a child of the given item.
func (c *Client) AddNote(ctx context.Context, parentKey, html string) error {
	payload := []itemData{{
		ItemType:   "note",
		ParentItem: parentKey,
		Note:       html,
	}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding note: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/items", bytes.NewReader(body))
	if err != nil {
		return err
	}
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return fmt.Errorf("zotero POST /items: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return &APIError{Status: resp.StatusCode, Path: "/items", Body: snippet(data)}
	}
	return nil
}

// Collections returns the library's name->key map, cached after the first
// call.
func (c *Client) Collections(ctx context.Context) (map[string]string, error) {
	if c.collections != nil {
		return c.collections, nil
	}
	data, err := c.get(ctx, "/collections", url.Values{"limit": {strconv.Itoa(pageLimit)}})
	if err != nil {
		return nil, err
	}
	var raw []apiCollection
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding collections: %w", err)
	}

	c.collections = make(map[string]string, len(raw))
	for _, col := range raw {
		c.collections[col.Data.Name] = col.Key
	}
	return c.collections, nil
}

// GetCollectionKey returns the key for a collection name, empty when the
// library has no such collection.
func (c *Client) GetCollectionKey(ctx context.Context, name string) (string, error) {
	cols, err := c.Collections(ctx)
	if err != nil {
		return "", err
	}
	return cols[name], nil
}

// CreateCollection creates a new top-level collection and returns its key.
func (c *Client) CreateCollection(ctx context.Context, name string) (string, error) {
	body, err := json.Marshal([]map[string]string{{"name": name}})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/collections", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	resp, err := httputil.DoWithRetry(ctx, c.HTTP, req, 0)
	if err != nil {
		return "", fmt.Errorf("zotero POST /collections: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading create response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Path: "/collections", Body: snippet(data)}
	}

	// The write API reports per-entry outcomes keyed by submission index.
	var result struct {
		Successful map[string]struct {
			Key string `json:"key"`
		} `json:"successful"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("decoding create response: %w", err)
	}
	entry, ok := result.Successful["0"]
	if !ok || entry.Key == "" {
		return "", fmt.Errorf("collection %q was not created: %s", name, snippet(data))
	}

	if c.collections != nil {
		c.collections[name] = entry.Key
	}
	slog.Info("created collection", "name", name, "key", entry.Key)
	return entry.Key, nil
}

// GetOrCreateCollection resolves a collection name to a key, creating the
// collection when the library does not have it yet.
func (c *Client) GetOrCreateCollection(ctx context.Context, name string) (string, error) {
	key, err := c.GetCollectionKey(ctx, name)
	if err != nil {
		return "", err
	}
	if key != "" {
		return key, nil
	}
	return c.CreateCollection(ctx, name)
}
