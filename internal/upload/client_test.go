package upload

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/julianstephens/moodlog/internal/errors"
	"github.com/julianstephens/moodlog/internal/models"
)

func writeClip(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("fake-mp4"), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClientUpload(t *testing.T) {
	clip := writeClip(t, t.TempDir(), "clip.mp4")
	ts := time.Date(2024, 5, 1, 8, 2, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload/full_record" || r.Method != http.MethodPost {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(400)
			return
		}
		want := map[string]string{
			"mood_score": "4",
			"slot":       "t1",
			"duration":   "12",
			"latitude":   "52.52",
			"longitude":  "13.405",
			"timestamp":  "2024-05-01T08:02:00Z",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("field %s = %q, want %q", k, got, v)
			}
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
		} else {
			data, _ := io.ReadAll(f)
			if string(data) != "fake-mp4" {
				t.Errorf("file contents = %q", data)
			}
			if hdr.Filename != "clip.mp4" || hdr.Header.Get("Content-Type") != "video/mp4" {
				t.Errorf("file header = %q %q", hdr.Filename, hdr.Header.Get("Content-Type"))
			}
		}
		_, _ = w.Write([]byte(`{"id": 42}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/upload/full_record", 5*time.Second)
	id, err := c.Upload(context.Background(), Payload{
		VideoPath:       clip,
		MoodScore:       4,
		Slot:            1,
		DurationSeconds: 12,
		Location:        &models.Location{Latitude: 52.52, Longitude: 13.405},
		Timestamp:       ts,
	})
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if id != "42" {
		t.Errorf("Upload() id = %q, want 42", id)
	}
}

func TestClientOmitsMissingLocation(t *testing.T) {
	clip := writeClip(t, t.TempDir(), "clip.mp4")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseMultipartForm(1 << 20)
		if _, ok := r.MultipartForm.Value["latitude"]; ok {
			t.Error("latitude sent without a location")
		}
		_, _ = w.Write([]byte(`{"id": "abc"}`))
	}))
	defer srv.Close()

	id, err := NewClient(srv.URL, time.Second).Upload(context.Background(), Payload{VideoPath: clip, MoodScore: 1, Slot: 2})
	if err != nil || id != "abc" {
		t.Errorf("Upload() = %q, %v", id, err)
	}
}

func TestClientErrors(t *testing.T) {
	clip := writeClip(t, t.TempDir(), "clip.mp4")
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "detail string", status: 422, body: `{"detail": "invalid slot"}`, want: "invalid slot"},
		{name: "detail list", status: 422, body: `{"detail": [{"loc": ["slot"]}]}`, want: `"loc"`},
		{name: "plain text", status: 502, body: "bad gateway", want: "bad gateway"},
		{name: "empty", status: 500, body: "", want: "no detail"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).Upload(context.Background(), Payload{VideoPath: clip, MoodScore: 3, Slot: 1})
			if !stderrors.Is(err, errors.ErrUpload) {
				t.Fatalf("Upload() error = %v, want UploadFailure", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Upload() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestClientUnreachable(t *testing.T) {
	clip := writeClip(t, t.TempDir(), "clip.mp4")
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewClient(url, time.Second).Upload(context.Background(), Payload{VideoPath: clip}); !stderrors.Is(err, errors.ErrUpload) {
		t.Errorf("Upload() error = %v, want UploadFailure", err)
	}
	if _, err := NewClient("/upload/full_record", time.Second).Upload(context.Background(), Payload{VideoPath: clip}); !stderrors.Is(err, errors.ErrUpload) {
		t.Errorf("Upload() without endpoint error = %v, want UploadFailure", err)
	}
}

func TestMediaStorePersist(t *testing.T) {
	root := t.TempDir()
	src := writeClip(t, root, "tmp-capture.mp4")
	store := NewMediaStore(filepath.Join(root, "vlogs"))
	store.now = func() time.Time { return time.UnixMilli(1714550520000) }

	dst, err := store.Persist(src)
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if want := filepath.Join(root, "vlogs", "vlog_1714550520000.mp4"); dst != want {
		t.Errorf("Persist() = %s, want %s", dst, want)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source clip should be moved")
	}

	// Same millisecond gets the next free name.
	second, err := store.Persist(writeClip(t, root, "other.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(second) != "vlog_1714550520001.mp4" {
		t.Errorf("second Persist() = %s", second)
	}

	again, err := store.Persist(dst)
	if err != nil || again != dst {
		t.Errorf("Persist() of stored clip = %s, %v", again, err)
	}
}
