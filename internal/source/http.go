package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// DefaultFetchTimeout bounds a single page or PDF request.
	DefaultFetchTimeout = 30 * time.Second
	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "Mozilla/5.0 (compatible; racecard-reader/1.0)"
)

// HTTPSource discovers the race cards of one day on the race-day site,
// downloads them into a local directory and reads them from there.
// Identifiers are the PDF URLs.
type HTTPSource struct {
	client    *http.Client
	limiter   *rate.Limiter
	logger    *zap.Logger
	reader    TextReader
	baseURL   string
	date      string
	destDir   string
	userAgent string
	timeout   time.Duration
	rps       float64
}

var _ Source = (*HTTPSource)(nil)

// Option configures an HTTPSource.
type Option func(*HTTPSource)

// WithTimeout sets the timeout for HTTP requests.
func WithTimeout(d time.Duration) Option {
	return func(s *HTTPSource) {
		s.timeout = d
	}
}

// WithRPS limits requests per second. Bursting is not allowed.
func WithRPS(rps float64) Option {
	return func(s *HTTPSource) {
		s.rps = rps
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(s *HTTPSource) {
		s.userAgent = ua
	}
}

// WithHTTPClient replaces the HTTP client. The timeout option is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(s *HTTPSource) {
		s.client = c
	}
}

// NewHTTPSource creates a source for the day page <baseURL>/races/<date>
func NewHTTPSource(reader TextReader, baseURL, date, destDir string, logger *zap.Logger, opts ...Option) *HTTPSource {
	s := &HTTPSource{
		logger:    logger,
		reader:    reader,
		baseURL:   strings.TrimRight(baseURL, "/"),
		date:      date,
		destDir:   destDir,
		userAgent: DefaultUserAgent,
		timeout:   DefaultFetchTimeout,
		rps:       1,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.client == nil {
		s.client = &http.Client{Timeout: s.timeout}
	}
	s.limiter = rate.NewLimiter(rate.Limit(s.rps), 1)

	return s
}

// DayURL returns the page listing the day's race cards
func (s *HTTPSource) DayURL() string {
	return fmt.Sprintf("%s/races/%s", s.baseURL, s.date)
}

// List discovers the PDF links of the day page
func (s *HTTPSource) List(ctx context.Context) ([]string, error) {
	return s.Discover(ctx)
}

// Discover fetches the day page and returns its PDF links, resolved against
// the page URL, deduplicated, in document order
func (s *HTTPSource) Discover(ctx context.Context) ([]string, error) {
	dayURL := s.DayURL()
	s.logger.Info("discovering race cards", zap.String("url", dayURL))

	body, err := s.get(ctx, dayURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	links, err := ExtractPDFLinks(body, dayURL)
	if err != nil {
		return nil, err
	}

	s.logger.Info("race cards found", zap.String("url", dayURL), zap.Int("count", len(links)))
	return links, nil
}

// ExtractPDFLinks returns the .pdf hrefs of an HTML page
func ExtractPDFLinks(r io.Reader, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if !strings.HasSuffix(strings.ToLower(resolved.Path), ".pdf") {
			return
		}

		u := resolved.String()
		if seen[u] {
			return
		}
		seen[u] = true
		links = append(links, u)
	})

	return links, nil
}

// Read downloads the PDF unless it is already present, then extracts its text
func (s *HTTPSource) Read(ctx context.Context, pdfURL string) (string, error) {
	local, err := s.Download(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	return readFile(s.reader, local)
}

// Download stores the PDF under the destination directory, named after the
// last URL path segment. An existing file is reused.
func (s *HTTPSource) Download(ctx context.Context, pdfURL string) (string, error) {
	name, err := FileName(pdfURL)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.destDir, name)

	if _, err := os.Stat(dest); err == nil {
		s.logger.Debug("race card already downloaded", zap.String("file", dest))
		return dest, nil
	}

	if err := os.MkdirAll(s.destDir, 0o750); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", s.destDir, err)
	}

	body, err := s.get(ctx, pdfURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(s.destDir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("cannot create download file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", fmt.Errorf("download %s: %w", pdfURL, err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("cannot store %s: %w", dest, err)
	}

	s.logger.Info("race card downloaded", zap.String("file", dest), zap.Int64("bytes", n))
	return dest, nil
}

// FileName derives the local file name of a PDF URL
func FileName(pdfURL string) (string, error) {
	u, err := url.Parse(pdfURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", pdfURL, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("no file name in URL %q", pdfURL)
	}
	return name, nil
}

func (s *HTTPSource) get(ctx context.Context, target string) (io.ReadCloser, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, target)
	}
	return resp.Body, nil
}
