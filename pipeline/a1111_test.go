package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newA1111Server(t *testing.T, handler func(t *testing.T, req a1111Request) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != A1111Path {
			t.Errorf("path = %q, want %q", r.URL.Path, A1111Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("method = %q, want POST", r.Method)
		}
		var req a1111Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		status, body := handler(t, req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestA1111Pipeline_Generate(t *testing.T) {
	out, _ := EncodeBase64PNG(testImage(16, 8))

	srv := newA1111Server(t, func(t *testing.T, req a1111Request) (int, any) {
		if req.Prompt != "a cat" {
			t.Errorf("prompt = %q, want %q", req.Prompt, "a cat")
		}
		if req.Steps != 4 {
			t.Errorf("steps = %d, want 4", req.Steps)
		}
		if req.Seed != 42 {
			t.Errorf("seed = %d, want 42", req.Seed)
		}
		if req.DenoisingStrength == nil || *req.DenoisingStrength != 0.8 {
			t.Errorf("denoising_strength = %v, want 0.8", req.DenoisingStrength)
		}
		if req.CFGScale == nil || *req.CFGScale != 0 {
			t.Errorf("cfg_scale = %v, want 0", req.CFGScale)
		}
		if len(req.InitImages) != 1 {
			t.Errorf("init_images = %d, want 1", len(req.InitImages))
		} else if _, err := DecodeBase64Image(req.InitImages[0]); err != nil {
			t.Errorf("init image does not decode: %v", err)
		}
		if req.Width != 16 || req.Height != 8 {
			t.Errorf("size = %dx%d, want 16x8", req.Width, req.Height)
		}
		if req.SaveImages {
			t.Error("save_images should be false")
		}
		return http.StatusOK, a1111Response{Images: []string{out}}
	})

	p, err := NewA1111Pipeline(srv.URL+"/", "", srv.Client())
	if err != nil {
		t.Fatalf("NewA1111Pipeline() error = %v", err)
	}

	req := previewRequest(42)
	req.Image = testImage(20, 12)
	res, err := p.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	img, err := res.First()
	if err != nil {
		t.Fatalf("First() error = %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("width = %d, want 16", img.Bounds().Dx())
	}
}

func TestA1111Pipeline_APIKey(t *testing.T) {
	out, _ := EncodeBase64PNG(testImage(8, 8))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer secret")
		}
		json.NewEncoder(w).Encode(a1111Response{Images: []string{out}})
	}))
	defer srv.Close()

	p, _ := NewA1111Pipeline(srv.URL, "secret", srv.Client())
	if _, err := p.Generate(context.Background(), previewRequest(1)); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
}

func TestA1111Pipeline_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    any
		wantErr error
	}{
		{"server error", http.StatusInternalServerError, map[string]string{"error": "CUDA out of memory"}, ErrBackend},
		{"no images", http.StatusOK, a1111Response{}, ErrEmptyResult},
		{"bad image", http.StatusOK, a1111Response{Images: []string{"bm90IGFuIGltYWdl"}}, ErrImageDecodeFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newA1111Server(t, func(*testing.T, a1111Request) (int, any) {
				return tt.status, tt.body
			})
			p, _ := NewA1111Pipeline(srv.URL, "", srv.Client())

			_, err := p.Generate(context.Background(), previewRequest(1))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestA1111Pipeline_ErrorCarriesBackendMessage(t *testing.T) {
	srv := newA1111Server(t, func(*testing.T, a1111Request) (int, any) {
		return http.StatusBadRequest, map[string]string{"detail": "unknown sampler"}
	})
	p, _ := NewA1111Pipeline(srv.URL, "", srv.Client())

	_, err := p.Generate(context.Background(), previewRequest(1))
	if err == nil || !strings.Contains(err.Error(), "unknown sampler") {
		t.Errorf("Generate() error = %v, want backend detail in message", err)
	}
}

func TestNewA1111Pipeline_MissingURL(t *testing.T) {
	if _, err := NewA1111Pipeline("", "", nil); !errors.Is(err, ErrMissingEndpoint) {
		t.Errorf("NewA1111Pipeline() error = %v, want ErrMissingEndpoint", err)
	}
}

func TestRoundDown8(t *testing.T) {
	tests := []struct{ in, want int }{
		{1, 8}, {8, 8}, {15, 8}, {16, 16}, {513, 512},
	}
	for _, tt := range tests {
		if got := roundDown8(tt.in); got != tt.want {
			t.Errorf("roundDown8(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
