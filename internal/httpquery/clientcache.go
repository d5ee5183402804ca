// File: backend/internal/httpquery/clientcache.go
package httpquery

import (
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

type clientKey struct {
	host           string
	tlsConfig      *tls.Config
	bind           string
	timeoutSeconds int
}

// ClientCache memoizes HTTP clients per connection identity so repeated
// queries against one endpoint reuse a client instead of rebuilding transports.
// Concurrent first requests for the same identity build exactly one client.
type ClientCache struct {
	mu      sync.Mutex
	clients map[clientKey]*http.Client
	group   singleflight.Group
}

func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[clientKey]*http.Client)}
}

// GetClient returns the cached client for the identity, building it on first
// use. A nil TLS configuration or negative timeout is a caller bug and fails
// rather than producing a client with surprising behavior.
func (c *ClientCache) GetClient(host string, tlsConfig *tls.Config, bind net.Addr, timeoutSeconds int) (*http.Client, error) {
	if tlsConfig == nil {
		return nil, fmt.Errorf("nil TLS configuration for host %s", host)
	}
	if timeoutSeconds < 0 {
		return nil, fmt.Errorf("negative timeout %d for host %s", timeoutSeconds, host)
	}

	bindStr := ""
	if bind != nil {
		bindStr = bind.String()
	}
	key := clientKey{host: host, tlsConfig: tlsConfig, bind: bindStr, timeoutSeconds: timeoutSeconds}

	c.mu.Lock()
	if client, ok := c.clients[key]; ok {
		c.mu.Unlock()
		return client, nil
	}
	c.mu.Unlock()

	groupKey := fmt.Sprintf("%s|%p|%s|%d", host, tlsConfig, bindStr, timeoutSeconds)
	v, err, _ := c.group.Do(groupKey, func() (interface{}, error) {
		c.mu.Lock()
		if client, ok := c.clients[key]; ok {
			c.mu.Unlock()
			return client, nil
		}
		c.mu.Unlock()

		client := buildClient(tlsConfig, bind, timeoutSeconds)

		c.mu.Lock()
		c.clients[key] = client
		c.mu.Unlock()
		log.Printf("HTTPQuery: Built client for %s (bind=%q, timeout=%ds)", host, bindStr, timeoutSeconds)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Client), nil
}

func buildClient(tlsConfig *tls.Config, bind net.Addr, timeoutSeconds int) *http.Client {
	dialer := &net.Dialer{
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
		LocalAddr: bind,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   time.Duration(timeoutSeconds) * time.Second,
		ResponseHeaderTimeout: time.Duration(timeoutSeconds) * time.Second,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       30 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// Shutdown closes idle connections on every cached client and empties the
// cache.
func (c *ClientCache) Shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, client := range c.clients {
		if transport, ok := client.Transport.(*http.Transport); ok {
			transport.CloseIdleConnections()
		}
		delete(c.clients, key)
	}
	log.Printf("HTTPQuery: Client cache shut down")
}

// Size reports the number of cached clients.
func (c *ClientCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
