package tableau

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"

	"github.com/vvka-141/csv2hyper/pkg/csv2hyper"
)

// PublishRequest describes one datasource upload.
type PublishRequest struct {
	ProjectID string
	Name      string
	Path      string
	Mode      csv2hyper.PublishMode
}

// PublishDatasource uploads the extract at req.Path into a project. Files up to
// the chunk size go in one multipart request; larger files go through an
// upload session that is committed by the final publish call.
func (c *Client) PublishDatasource(ctx context.Context, req PublishRequest) (Datasource, error) {
	if c.token == "" {
		return Datasource{}, fmt.Errorf("publish requires a signed-in session: %w", csv2hyper.ErrAuthenticationFailed)
	}

	f, err := os.Open(req.Path)
	if err != nil {
		return Datasource{}, fmt.Errorf("failed to open extract %q: %w", req.Path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Datasource{}, fmt.Errorf("failed to stat extract %q: %w", req.Path, err)
	}

	payload, err := xml.Marshal(&tsRequest{Datasource: &datasourceRequest{
		Name:    req.Name,
		Project: projectRef{ID: req.ProjectID},
	}})
	if err != nil {
		return Datasource{}, fmt.Errorf("failed to encode publish request: %w", err)
	}

	query := publishQuery(req.Mode)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePayloadPart(mw, payload); err != nil {
		return Datasource{}, err
	}

	if info.Size() <= c.chunkSize {
		if err := writeFilePart(mw, "tableau_datasource", filepath.Base(req.Path), f); err != nil {
			return Datasource{}, err
		}
	} else {
		sessionID, err := c.uploadFile(ctx, f)
		if err != nil {
			return Datasource{}, err
		}
		query.Set("uploadSessionId", sessionID)
	}
	if err := mw.Close(); err != nil {
		return Datasource{}, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	var resp tsResponse
	if err := c.do(ctx, http.MethodPost, c.sitePath("datasources"), query, mixedContentType(mw), &body, &resp); err != nil {
		return Datasource{}, fmt.Errorf("failed to publish datasource %q: %w", req.Name, err)
	}
	if resp.Datasource == nil || resp.Datasource.ID == "" {
		return Datasource{}, fmt.Errorf("publish response carries no datasource id: %w", csv2hyper.ErrPublishFailed)
	}
	return *resp.Datasource, nil
}

func publishQuery(mode csv2hyper.PublishMode) url.Values {
	query := url.Values{}
	query.Set("datasourceType", "hyper")
	switch mode {
	case csv2hyper.PublishOverwrite:
		query.Set("overwrite", "true")
	case csv2hyper.PublishAppend:
		query.Set("append", "true")
	}
	return query
}

// uploadFile sends r in chunks to a new upload session and returns its id.
func (c *Client) uploadFile(ctx context.Context, r io.Reader) (string, error) {
	var resp tsResponse
	if err := c.doXML(ctx, http.MethodPost, c.sitePath("fileUploads"), nil, &resp); err != nil {
		return "", fmt.Errorf("failed to start upload session: %w", err)
	}
	if resp.FileUpload == nil || resp.FileUpload.UploadSessionID == "" {
		return "", fmt.Errorf("upload session response carries no id: %w", csv2hyper.ErrPublishFailed)
	}
	sessionID := resp.FileUpload.UploadSessionID

	chunk := make([]byte, c.chunkSize)
	for n := 1; ; n++ {
		read, err := io.ReadFull(r, chunk)
		if read > 0 {
			if err := c.appendChunk(ctx, sessionID, chunk[:read]); err != nil {
				return "", fmt.Errorf("failed to upload chunk %d: %w", n, err)
			}
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return sessionID, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to read extract: %w", err)
		}
	}
}

func (c *Client) appendChunk(ctx context.Context, sessionID string, chunk []byte) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := writePayloadPart(mw, nil); err != nil {
		return err
	}
	if err := writeFilePart(mw, "tableau_file", "file", bytes.NewReader(chunk)); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return c.do(ctx, http.MethodPut, c.sitePath("fileUploads", sessionID), nil, mixedContentType(mw), &body, nil)
}

func mixedContentType(mw *multipart.Writer) string {
	return "multipart/mixed; boundary=" + mw.Boundary()
}

func writePayloadPart(mw *multipart.Writer, payload []byte) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", `form-data; name="request_payload"`)
	h.Set("Content-Type", "text/xml")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create request_payload part: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("failed to write request_payload part: %w", err)
	}
	return nil
}

func writeFilePart(mw *multipart.Writer, field, filename string, r io.Reader) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	h.Set("Content-Type", "application/octet-stream")
	part, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}
