package httpprobe

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// ProxyRotator hands out outbound proxies in sequence.
type ProxyRotator struct {
	mu      sync.Mutex
	proxies []*url.URL
	next    int
}

// NewProxyRotator parses raw proxy URLs. Blank entries are ignored; an empty
// list yields a rotator that never proxies.
func NewProxyRotator(raw []string) (*ProxyRotator, error) {
	r := &ProxyRotator{}
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", s)
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

// Len returns the number of configured proxies.
func (r *ProxyRotator) Len() int { return len(r.proxies) }

// Proxy has the signature of http.Transport.Proxy.
func (r *ProxyRotator) Proxy(*http.Request) (*url.URL, error) {
	if len(r.proxies) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return u, nil
}
