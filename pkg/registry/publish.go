package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/drQedwards/ppm/pkg/errors"
)

const publishTimeout = 2 * time.Minute

// Publish uploads one wheel file to a registry's upload endpoint,
// declaring its content hash so the server can verify the transfer.
func Publish(ctx context.Context, registryURL, token, name, version, wheelPath string) error {
	data, err := os.ReadFile(wheelPath)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(data)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":    name,
		"version": version,
		"sha256":  hex.EncodeToString(sum[:]),
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	fw, err := mw.CreateFormFile("wheel", filepath.Base(wheelPath))
	if err != nil {
		return err
	}
	if _, err := fw.Write(data); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	uploadURL := strings.TrimRight(registryURL, "/") + "/api/v1/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	client := &http.Client{Timeout: publishTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "uploading %s", filepath.Base(wheelPath))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return errors.New(errors.ErrCodeUnauthorized, "registry rejected token for %s", uploadURL)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.New(errors.ErrCodeNetwork, "upload failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}
