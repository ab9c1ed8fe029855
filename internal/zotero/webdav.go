// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package zotero

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/paperflow/pkg/types"
)

// fetchWebDAV downloads an attachment from WebDAV storage. Zotero stores
// each attachment as <key>.zip at the storage root; the archive holds the
// attachment file itself, which is extracted and returned.
func fetchWebDAV(ctx context.Context, client *http.Client, cfg *types.WebDAVConfig, attachmentKey string) ([]byte, error) {
	url := strings.TrimSuffix(cfg.URL, "/") + "/" + attachmentKey + ".zip"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(cfg.Username, cfg.Password)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webdav GET %s.zip: %w", attachmentKey, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("webdav GET %s.zip: HTTP %d", attachmentKey, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webdav GET %s.zip: reading body: %w", attachmentKey, err)
	}
	return extractZip(data, attachmentKey)
}

// extractZip returns the contents of the first regular file in the archive.
func extractZip(data []byte, attachmentKey string) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("attachment %s: opening zip: %w", attachmentKey, err)
	}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("attachment %s: opening %s: %w", attachmentKey, f.Name, err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("attachment %s: reading %s: %w", attachmentKey, f.Name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("attachment %s: zip contains no files", attachmentKey)
}
