package pdf

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
	"github.com/Shimizu-Technology/pdf-highlight-api/internal/services/pdf/pdftest"
)

// loopback covers httptest servers, which the loader refuses by default.
var loopback = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),
	netip.MustParsePrefix("::1/128"),
}

func TestLoader_Load(t *testing.T) {
	data := pdftest.Build(pdftest.Letter(pdftest.Text{X: 10, Y: 700, Size: 10, S: "remote"}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write(data)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	local := filepath.Join(dir, "local.pdf")
	if err := os.WriteFile(local, data, 0o644); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader(NewExtractor(2), 5*time.Second, 1<<20)
	loader.AllowNetworks(loopback...)

	tests := []struct {
		name     string
		src      Source
		wantName string
		wantErr  bool
	}{
		{"url", URLSource(srv.URL + "/doc.pdf"), "doc.pdf", false},
		{"upload", UploadSource("up.pdf", data), "up.pdf", false},
		{"file", FileSource(local), "local.pdf", false},
		{"missing url", URLSource(srv.URL + "/missing.pdf"), "", true},
		{"missing file", FileSource(filepath.Join(dir, "nope.pdf")), "", true},
		{"upload not pdf", UploadSource("x.pdf", []byte("not a pdf")), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := loader.Load(context.Background(), tt.src)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Load() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if doc.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", doc.Name, tt.wantName)
			}
			if doc.Source != tt.src.Location {
				t.Errorf("Source = %q, want %q", doc.Source, tt.src.Location)
			}
			if doc.FragmentCount() != 1 {
				t.Errorf("FragmentCount() = %d, want 1", doc.FragmentCount())
			}
		})
	}
}

func TestLoader_FetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 2048))
	}))
	defer srv.Close()

	loader := NewLoader(NewExtractor(1), 5*time.Second, 1024)
	loader.AllowNetworks(loopback...)
	_, err := loader.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Fetch() error = %v, want ErrTooLarge", err)
	}
}

func TestLoader_FetchBlocksInternalAddresses(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write(pdftest.Build(pdftest.Letter()))
	}))
	defer srv.Close()

	loader := NewLoader(NewExtractor(1), 5*time.Second, 1<<20)
	_, err := loader.Fetch(context.Background(), srv.URL+"/admin/secret.pdf")
	if !errors.Is(err, ErrBlockedAddress) {
		t.Fatalf("Fetch() error = %v, want ErrBlockedAddress", err)
	}
	if n := hits.Load(); n != 0 {
		t.Errorf("server received %d requests, want 0", n)
	}

	loader.AllowNetworks(loopback...)
	if _, err := loader.Fetch(context.Background(), srv.URL+"/admin/secret.pdf"); err != nil {
		t.Fatalf("Fetch() with allowlist error = %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server received %d requests, want 1", n)
	}
}

func TestIsInternalAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1", true},
		{"::1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.10", true},
		{"169.254.169.254", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"0.0.0.0", true},
		{"::", true},
		{"100.64.0.1", true},
		{"224.0.0.1", true},
		{"::ffff:127.0.0.1", true},
		{"8.8.8.8", false},
		{"151.101.1.69", false},
		{"2606:4700:4700::1111", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			if got := IsInternalAddr(netip.MustParseAddr(tt.addr)); got != tt.want {
				t.Errorf("IsInternalAddr(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestURLSource(t *testing.T) {
	src := URLSource("https://arxiv.org/pdf/1708.08021")
	if src.Kind != models.SourceURL || src.Name != "1708.08021" {
		t.Errorf("URLSource() = %+v", src)
	}
}
