package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"

	"stratolift/internal/media/sniffer"
	"stratolift/internal/models"
)

const maxUploadBytes = 50 << 20

type UploadResult struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Attachment converts the upload into the record task requests carry.
func (r UploadResult) Attachment(name, contentType string) models.Attachment {
	return models.Attachment{Name: name, Type: contentType, URL: r.URL}
}

// Upload sends one photo or video as the multipart field "file". The
// content type is sniffed from the data; only images and videos are
// accepted. It returns the detected content type with the result.
func (c *Client) Upload(ctx context.Context, name string, r io.Reader) (UploadResult, string, error) {
	res, head, err := sniffer.Detect(r)
	if err != nil || (res.Kind != sniffer.KindImage && res.Kind != sniffer.KindVideo) {
		return UploadResult{}, "", ValidationError("Only photos and videos can be attached")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(name)))
	hdr.Set("Content-Type", res.MIME)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return UploadResult{}, "", fmt.Errorf("create part: %w", err)
	}

	n, err := io.Copy(part, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), maxUploadBytes+1))
	if err != nil {
		return UploadResult{}, "", fmt.Errorf("read upload: %w", err)
	}
	if n > maxUploadBytes {
		return UploadResult{}, "", ValidationError("File is too large")
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, "", fmt.Errorf("close multipart: %w", err)
	}

	var out UploadResult
	if err := c.send(ctx, request{
		method:       http.MethodPost,
		path:         "/upload",
		rawBody:      buf.Bytes(),
		contentType:  mw.FormDataContentType(),
		optionalAuth: true,
		fallback:     "Failed to upload file",
	}, &out); err != nil {
		return UploadResult{}, "", err
	}
	if out.URL == "" {
		return UploadResult{}, "", &Error{Kind: ErrProtocol, Status: http.StatusOK, Message: msgInvalidResponse}
	}
	return out, res.MIME, nil
}
