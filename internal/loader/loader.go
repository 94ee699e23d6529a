// Package loader turns job and resume references into plain text.
//
// A reference is either an http(s) URL, a path to a PDF file, or literal
// text. Loading never fails: when a URL cannot be fetched or a PDF cannot be
// parsed, the reference itself is returned and a warning is logged.
//
// Two policy switches narrow what a reference may reach. Without
// AllowLocalFiles a PDF path is plain text. Without AllowPrivateNetworks the
// dialer refuses loopback, private and link-local addresses, including ones
// reached through redirects or DNS names that resolve to them.
package loader

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"resumeagent/internal/config"
	"resumeagent/internal/errors"
	"resumeagent/internal/utils"
)

const (
	DefaultTimeout     = 20 * time.Second
	DefaultUserAgent   = "Mozilla/5.0 (compatible; resumeagent/1.0)"
	DefaultMaxURLChars = 5000

	// maxBodyBytes bounds how much of a page is read before parsing
	maxBodyBytes = 5 << 20
)

// Carrier-grade NAT space is not covered by netip's IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Elements that never carry posting text
var noiseSelectors = []string{
	"script", "style", "noscript", "template", "svg", "iframe",
	"nav", "header", "footer", "form", "button",
	"[role='navigation']", "[aria-hidden='true']",
}

// Loader resolves references into text
type Loader struct {
	client          *http.Client
	userAgent       string
	maxURLChars     int
	allowLocalFiles bool
	logger          *errors.Logger
}

// New creates a loader from configuration. Zero values fall back to defaults.
func New(cfg config.LoaderConfig, logger *errors.Logger) *Loader {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	maxChars := cfg.MaxURLChars
	if maxChars <= 0 {
		maxChars = DefaultMaxURLChars
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.AllowPrivateNetworks {
		dialer := &net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
			Control:   refusePrivateAddress,
		}
		transport.DialContext = dialer.DialContext
		// A proxy would be dialed instead of the target and hide its address
		transport.Proxy = nil
	}

	return &Loader{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		userAgent:       userAgent,
		maxURLChars:     maxChars,
		allowLocalFiles: cfg.AllowLocalFiles,
		logger:          logger,
	}
}

// refusePrivateAddress runs after name resolution, so it sees the address
// actually being dialed
func refusePrivateAddress(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return err
	}
	if !isPublicAddr(ip) {
		return errors.NewNetworkError(errors.ErrCodeInvalidRequest, "refusing to fetch from a non-public address", nil).
			WithContext("address", ip.String())
	}
	return nil
}

func isPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsValid() &&
		!ip.IsLoopback() &&
		!ip.IsPrivate() &&
		!ip.IsLinkLocalUnicast() &&
		!ip.IsLinkLocalMulticast() &&
		!ip.IsInterfaceLocalMulticast() &&
		!ip.IsMulticast() &&
		!ip.IsUnspecified() &&
		!sharedAddressSpace.Contains(ip)
}

// Load returns the text behind ref, or ref itself when it is neither a URL
// nor a PDF path, or when loading fails.
func (l *Loader) Load(ctx context.Context, ref string) string {
	switch {
	case utils.IsURL(ref):
		text, err := l.fetchURL(ctx, strings.TrimSpace(ref))
		if err != nil {
			l.logger.Warn("Failed to load URL, using reference as text", "url", ref, "error", err.Error())
			return ref
		}
		return text

	case utils.IsPDFFile(ref):
		if !l.allowLocalFiles {
			l.logger.Debug("Local files are disabled, using reference as text", "path", ref)
			return ref
		}
		text, err := readPDF(strings.TrimSpace(ref))
		if err != nil {
			l.logger.Warn("Failed to read PDF, using reference as text", "path", ref, "error", err.Error())
			return ref
		}
		return text
	}
	return ref
}

func (l *Loader) fetchURL(ctx context.Context, url string) (string, error) {
	ctx, span := otel.Tracer("resumeagent.loader").Start(ctx, "loader.fetch_url")
	defer span.End()
	span.SetAttributes(attribute.String("url", url))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeInvalidRequest, "failed to create request", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", errors.NewNetworkError(errors.ErrCodeNetworkTimeout, "HTTP request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewNetworkError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("HTTP status %d", resp.StatusCode), nil)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	var text string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read response body", err)
		}
		text = utils.CollapseWhitespace(string(raw))
	} else {
		text, err = ExtractText(body)
		if err != nil {
			return "", err
		}
	}

	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "page has no text content", nil)
	}
	return utils.Truncate(text, l.maxURLChars), nil
}

// ExtractText parses HTML and returns its visible text with noise elements removed
func ExtractText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to parse HTML", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	root := doc.Find("main, article, [role='main']").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	// Block elements end a line, so the collapsed text keeps paragraph breaks
	root.Find("p, li, h1, h2, h3, h4, h5, h6, div, br, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})

	return utils.CollapseWhitespace(root.Text()), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to open PDF", err)
	}
	defer func() { _ = f.Close() }()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
				fmt.Sprintf("failed to extract text from page %d", i), err)
		}
		pages = append(pages, text)
	}

	if len(pages) == 0 {
		return "", errors.NewValidationError(errors.ErrCodeInvalidFormat, "PDF has no pages", nil)
	}
	return strings.Join(pages, "\n"), nil
}
