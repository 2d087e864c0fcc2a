package httpprobe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/user/linkfinder-service/internal/entity"
	"github.com/user/linkfinder-service/pkg/metrics"
)

const (
	DefaultUserAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:72.0) Gecko/20100101 Firefox/72.0"
	DefaultTimeout      = 15 * time.Second
	DefaultMaxRedirects = 20
)

// Labels reported in ProbeResult.ErrorLabel.
const (
	LabelTimeout          = "timeout"
	LabelCancelled        = "cancelled"
	LabelDNS              = "dns lookup failed"
	LabelTLS              = "tls handshake failed"
	LabelRefused          = "connection refused"
	LabelTooManyRedirects = "too many redirects"
	LabelInvalidURL       = "invalid url"
	LabelTransport        = "transport error"
)

var errTooManyRedirects = errors.New("stopped after too many redirects")

// Config controls the identity and limits of outbound probes.
type Config struct {
	UserAgent    string
	Referer      string // Usually the audited site origin
	Timeout      time.Duration
	MaxRedirects int
	Transport    http.RoundTripper // Defaults to a clone of http.DefaultTransport
	Proxies      *ProxyRotator     // Applied to the default transport only
}

// HTTPProber implements repository.Prober over net/http.
type HTTPProber struct {
	cfg    Config
	direct *http.Client
	follow *http.Client
}

// NewHTTPProber creates a prober. Zero config fields fall back to the package defaults.
func NewHTTPProber(cfg Config) *HTTPProber {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = DefaultMaxRedirects
	}
	base := cfg.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxies != nil && cfg.Proxies.Len() > 0 {
			t.Proxy = cfg.Proxies.Proxy
		}
		base = t
	}
	transport := otelhttp.NewTransport(base)
	maxRedirects := cfg.MaxRedirects

	return &HTTPProber{
		cfg: cfg,
		direct: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		follow: &http.Client{
			Transport: transport,
			CheckRedirect: func(_ *http.Request, via []*http.Request) error {
				if len(via) > maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
	}
}

// Probe performs one GET against rawURL. The response body is never read.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string, followRedirects bool) entity.ProbeResult {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil || req.URL.Host == "" {
		return entity.ProbeResult{ErrorLabel: LabelInvalidURL}
	}
	p.setHeaders(req)

	client := p.direct
	if followRedirects {
		client = p.follow
	}

	start := time.Now()
	resp, err := client.Do(req)
	metrics.ProbeDuration.WithLabelValues(followLabel(followRedirects)).Observe(time.Since(start).Seconds())
	if err != nil {
		label := errorLabel(err)
		slog.Debug("Probe failed", "url", rawURL, "label", label, "error", err)
		return entity.ProbeResult{ErrorLabel: label}
	}
	resp.Body.Close()

	result := entity.ProbeResult{StatusCode: resp.StatusCode}
	// resp.Request.Response is set only when the final request was caused by a redirect.
	if followRedirects && resp.Request != nil && resp.Request.Response != nil {
		if final := resp.Request.URL.String(); final != req.URL.String() {
			result.EffectiveURL = final
		}
	}
	slog.Debug("Probe completed", "url", rawURL, "status", resp.StatusCode, "effective_url", result.EffectiveURL)
	return result
}

func (p *HTTPProber) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", p.cfg.UserAgent)
	req.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Expires", "Thu, 01 Jan 1970 00:00:00 GMT")
	if p.cfg.Referer != "" {
		req.Header.Set("Referer", p.cfg.Referer)
	}
}

func followLabel(follow bool) string {
	if follow {
		return "follow"
	}
	return "first_hop"
}

func errorLabel(err error) string {
	var (
		dnsErr      *net.DNSError
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostErr     x509.HostnameError
		netErr      net.Error
	)
	switch {
	case errors.Is(err, errTooManyRedirects):
		return LabelTooManyRedirects
	case errors.Is(err, context.Canceled):
		return LabelCancelled
	case errors.Is(err, context.DeadlineExceeded):
		return LabelTimeout
	case errors.As(err, &dnsErr):
		return LabelDNS
	case errors.As(err, &verifyErr), errors.As(err, &recordErr),
		errors.As(err, &unknownAuth), errors.As(err, &hostErr):
		return LabelTLS
	case errors.Is(err, syscall.ECONNREFUSED):
		return LabelRefused
	case errors.As(err, &netErr) && netErr.Timeout():
		return LabelTimeout
	}
	return LabelTransport
}
