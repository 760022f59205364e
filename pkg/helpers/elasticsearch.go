package helpers

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// ErrNoESAddrs is returned when no Elasticsearch address is configured.
var ErrNoESAddrs = errors.New("elasticsearch: no addresses configured")

// ESOptions configures the search client. Zero timeouts take package defaults.
type ESOptions struct {
	Addrs         []string
	Username      string
	Password      string
	DialTimeout   time.Duration
	HeaderTimeout time.Duration
	MaxRetries    int
}

// NewESClient builds a client with short timeouts. Index writes are best-effort,
// so a slow cluster must not hold up account requests.
func NewESClient(opts ESOptions) (*elasticsearch.Client, error) {
	if len(opts.Addrs) == 0 {
		return nil, ErrNoESAddrs
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.HeaderTimeout <= 0 {
		opts.HeaderTimeout = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	return elasticsearch.NewClient(elasticsearch.Config{
		Addresses:     opts.Addrs,
		Username:      opts.Username,
		Password:      opts.Password,
		MaxRetries:    opts.MaxRetries,
		RetryOnStatus: []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout},
		Transport: &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: opts.HeaderTimeout,
			TLSClientConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
			DialContext:           (&net.Dialer{Timeout: opts.DialTimeout}).DialContext,
		},
	})
}
