package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/julianstephens/moodlog/internal/constants"
	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
)

// Payload is one capture as sent to the collection endpoint.
type Payload struct {
	VideoPath       string
	MoodScore       int
	Slot            int
	DurationSeconds int
	Location        *models.Location
	Timestamp       time.Time
}

// Client posts captures to the collection endpoint as one multipart request.
type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{url: url, http: &http.Client{Timeout: timeout}}
}

type successResponse struct {
	ID json.RawMessage `json:"id"`
}

type errorResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// Upload sends p and returns the server's id for the stored record.
func (c *Client) Upload(ctx context.Context, p Payload) (string, error) {
	if c.url == "" || c.url[0] == '/' {
		return "", errors.Upload("upload", fmt.Errorf("no upload endpoint configured"))
	}

	f, err := os.Open(p.VideoPath)
	if err != nil {
		return "", errors.Upload("upload", fmt.Errorf("failed to open clip: %w", err))
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, f, p))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		pr.Close()
		return "", errors.Upload("upload", fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		pr.Close()
		return "", errors.Upload("upload", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.Upload("upload", fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Upload("upload", fmt.Errorf("server returned %s: %s", resp.Status, errorDetail(body)))
	}

	var ok successResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &ok); err != nil {
			return "", errors.Upload("upload", fmt.Errorf("failed to decode response: %w", err))
		}
	}
	return rawID(ok.ID), nil
}

func writeForm(mw *multipart.Writer, video io.Reader, p Payload) error {
	fields := [][2]string{
		{"mood_score", strconv.Itoa(p.MoodScore)},
		{"slot", models.SlotID(p.Slot)},
		{"duration", strconv.Itoa(p.DurationSeconds)},
		{"timestamp", p.Timestamp.Format(time.RFC3339)},
	}
	if p.Location != nil {
		fields = append(fields,
			[2]string{"latitude", strconv.FormatFloat(p.Location.Latitude, 'f', -1, 64)},
			[2]string{"longitude", strconv.FormatFloat(p.Location.Longitude, 'f', -1, 64)},
		)
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filepath.Base(p.VideoPath)))
	h.Set("Content-Type", constants.VideoMimeType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, video); err != nil {
		return err
	}
	return mw.Close()
}

// errorDetail extracts "detail" from an error body, falling back to the raw
// text.
func errorDetail(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && len(e.Detail) > 0 {
		var s string
		if json.Unmarshal(e.Detail, &s) == nil {
			return s
		}
		return string(e.Detail)
	}
	text := string(bytes.TrimSpace(body))
	if text == "" {
		return "no detail"
	}
	return text
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
