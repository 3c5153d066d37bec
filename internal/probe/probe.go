package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/peer-health-adapter/internal/acceptance"
)

const (
	DefaultTimeout = 3 * time.Second

	// drainLimit caps how much of a response body is read before closing it.
	drainLimit = 64 << 10
)

// Config is the process-wide probe configuration. The target URL is given
// per call.
type Config struct {
	Method      string
	Timeout     time.Duration
	VerifyTLS   bool
	HeaderKey   string
	HeaderValue string
	Acceptance  *acceptance.Evaluator
}

// Prober issues probes with a shared http.Client. It is safe for concurrent
// use.
type Prober struct {
	client     *http.Client
	method     string
	header     http.Header
	host       string
	acceptance *acceptance.Evaluator
}

// New builds a Prober from cfg. Zero values fall back to GET, DefaultTimeout
// and the 2xx acceptance pattern.
func New(cfg Config) *Prober {
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method != http.MethodHead {
		method = http.MethodGet
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	eval := cfg.Acceptance
	if eval == nil {
		eval = acceptance.MustNew(acceptance.DefaultPattern)
	}

	// The client ignores a Host entry in the header map; it goes on the
	// request instead.
	var host string
	header := make(http.Header)
	if cfg.HeaderKey != "" && cfg.HeaderValue != "" {
		if http.CanonicalHeaderKey(cfg.HeaderKey) == "Host" {
			host = cfg.HeaderValue
		} else {
			header.Set(cfg.HeaderKey, cfg.HeaderValue)
		}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS}

	return &Prober{
		client: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			// 3xx responses are judged by the acceptance pattern as they are.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		method:     method,
		header:     header,
		host:       host,
		acceptance: eval,
	}
}

// Method returns the HTTP method used for probes.
func (p *Prober) Method() string {
	return p.method
}

// Probe sends exactly one request to target. An empty target is always
// reported down.
func (p *Prober) Probe(target string) Result {
	start := time.Now()
	res := p.probe(strings.TrimSpace(target))
	res.Latency = time.Since(start)
	res.CheckedAt = start
	return res
}

func (p *Prober) probe(target string) Result {
	if target == "" {
		return down(ReasonUnconfigured, 0, nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), p.method, target, nil)
	if err != nil {
		return down(ReasonRequest, 0, fmt.Errorf("build probe request: %w", err))
	}
	for k, v := range p.header {
		req.Header[k] = v
	}
	if p.host != "" {
		req.Host = p.host
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return down(classify(err), 0, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))

	if !p.acceptance.Accepts(resp.StatusCode) {
		return down(ReasonStatus, resp.StatusCode,
			fmt.Errorf("status %d rejected by %q", resp.StatusCode, p.acceptance.String()))
	}

	return up(resp.StatusCode)
}

func classify(err error) Reason {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return ReasonTimeout
	}

	var (
		verifyErr    *tls.CertificateVerificationError
		unknownAuth  x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidErr   x509.CertificateInvalidError
		recordHdrErr tls.RecordHeaderError
	)
	if errors.As(err, &verifyErr) ||
		errors.As(err, &unknownAuth) ||
		errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidErr) ||
		errors.As(err, &recordHdrErr) {
		return ReasonTLS
	}

	return ReasonNetwork
}
