package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Shimizu-Technology/pdf-highlight-api/internal/models"
)

var (
	// ErrTooLarge is returned when a document exceeds the configured size cap.
	ErrTooLarge = errors.New("document exceeds maximum size")

	// ErrBlockedAddress is returned when a fetch would connect to a loopback,
	// private, link-local or otherwise internal address.
	ErrBlockedAddress = errors.New("destination address is not allowed")
)

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598), which
// netip does not count as private.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Source identifies a document to load: a remote URL, an uploaded blob,
// or a file on local disk (CLI).
type Source struct {
	Kind     models.SourceKind
	Location string // URL or file path; a synthetic "upload://<name>" for uploads
	Name     string
	Data     []byte // Set for uploads
}

// URLSource builds a Source for a remote document.
func URLSource(rawURL string) Source {
	name := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		name = path.Base(u.Path)
	}
	return Source{Kind: models.SourceURL, Location: rawURL, Name: name}
}

// UploadSource builds a Source from an uploaded file held in memory.
func UploadSource(name string, data []byte) Source {
	return Source{Kind: models.SourceUpload, Location: "upload://" + name, Name: name, Data: data}
}

// FileSource builds a Source for a PDF on local disk.
func FileSource(p string) Source {
	return Source{Kind: models.SourceFile, Location: p, Name: filepath.Base(p)}
}

// Loader resolves a Source to bytes and extracts it.
type Loader struct {
	extractor *Extractor
	client    *http.Client
	maxSize   int64
	allowed   []netip.Prefix
}

// NewLoader creates a loader. Remote fetches time out after fetchTimeout and
// are rejected above maxSize bytes.
//
// Fetches only ever connect to public addresses. The check runs on the
// resolved address of every connection, redirects included, so a hostname
// that later resolves somewhere internal is still refused.
func NewLoader(extractor *Extractor, fetchTimeout time.Duration, maxSize int64) *Loader {
	l := &Loader{
		extractor: extractor,
		maxSize:   maxSize,
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   l.checkDial,
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	l.client = &http.Client{Timeout: fetchTimeout, Transport: transport}
	return l
}

// AllowNetworks lets fetches reach the given otherwise blocked networks,
// e.g. an internal document store. Call it before the loader is used.
func (l *Loader) AllowNetworks(prefixes ...netip.Prefix) {
	l.allowed = append(l.allowed, prefixes...)
}

// checkDial runs after DNS resolution, right before each connect.
func (l *Loader) checkDial(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	addr := ap.Addr().Unmap()
	for _, p := range l.allowed {
		if p.Contains(addr) {
			return nil
		}
	}
	if IsInternalAddr(addr) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, addr)
	}
	return nil
}

// IsInternalAddr reports whether addr is not publicly routable: loopback,
// private, link-local, unspecified, multicast or shared address space.
func IsInternalAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !addr.IsValid() ||
		addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		sharedAddressSpace.Contains(addr)
}

// Load fetches (if needed) and extracts the document. There is no retry:
// a failed load needs a new user action.
func (l *Loader) Load(ctx context.Context, src Source) (*models.Document, error) {
	data, err := l.bytes(ctx, src)
	if err != nil {
		return nil, err
	}

	doc, err := l.extractor.Extract(ctx, data, src.Location)
	if err != nil {
		return nil, err
	}
	doc.Name = src.Name
	return doc, nil
}

func (l *Loader) bytes(ctx context.Context, src Source) ([]byte, error) {
	switch src.Kind {
	case models.SourceUpload:
		return src.Data, nil
	case models.SourceFile:
		data, err := os.ReadFile(src.Location)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", src.Location, err)
		}
		return data, nil
	case models.SourceURL:
		return l.Fetch(ctx, src.Location)
	default:
		return nil, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// Fetch downloads a remote PDF.
func (l *Loader) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/pdf")
	req.Header.Set("User-Agent", "PDFHighlightAPI/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	// Read one byte past the cap so an oversized body is detected, not truncated.
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > l.maxSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
