package remotestore

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	ntlm "github.com/launchdarkly/go-ntlm-proxy-auth"

	"github.com/sitesync/go-site-settings/subsystems"
)

// DefaultConnectTimeout is the default value for HTTPStoreBuilder.ConnectTimeout.
const DefaultConnectTimeout = 3 * time.Second

// HTTPStoreBuilder provides methods for configuring the HTTP remote store.
//
// See HTTP for usage.
type HTTPStoreBuilder struct {
	baseURI        string
	connectTimeout time.Duration
	headers        http.Header
	httpClient     *http.Client
	ntlmProxy      *ntlmProxyConfig
}

type ntlmProxyConfig struct {
	proxyURL string
	username string
	password string
	domain   string
}

// HTTP returns a configurable factory for a remote store that talks to the settings HTTP API at
// baseURI. The API is expected to provide these resources:
//
//	GET  /api/settings              [{"settingKey": "...", "settingValue": {...}}, ...]
//	GET  /api/settings/{key}        {"settingKey": "...", "settingValue": {...}}, or 404
//	PUT  /api/settings/{key}        {"settingKey": "...", "settingValue": {...}}
//	GET  /api/content-pages         [{"pageId": "...", "pageName": "...", "sections": [...]}, ...]
//	GET  /api/content-pages/{id}    {"pageId": "...", ...}, or 404
//	PUT  /api/content-pages/{id}    {"pageId": "...", ...}
//
// Responses are kept in an HTTP cache, so unchanged resources are revalidated rather than downloaded
// again when the server supports ETags.
func HTTP(baseURI string) *HTTPStoreBuilder {
	return &HTTPStoreBuilder{
		baseURI:        strings.TrimRight(baseURI, "/"),
		connectTimeout: DefaultConnectTimeout,
		headers:        make(http.Header),
	}
}

// ConnectTimeout sets the maximum time to wait for a TCP connection. The time allowed for a whole
// request is set separately by sitesync.Config.FetchTimeout.
func (b *HTTPStoreBuilder) ConnectTimeout(connectTimeout time.Duration) *HTTPStoreBuilder {
	if connectTimeout <= 0 {
		b.connectTimeout = DefaultConnectTimeout
	} else {
		b.connectTimeout = connectTimeout
	}
	return b
}

// Header adds a header that will be sent with every request, for instance an Authorization header.
func (b *HTTPStoreBuilder) Header(name, value string) *HTTPStoreBuilder {
	b.headers.Add(name, value)
	return b
}

// HTTPClient specifies a preconfigured HTTP client. Its transport is wrapped in the response cache.
func (b *HTTPStoreBuilder) HTTPClient(client *http.Client) *HTTPStoreBuilder {
	b.httpClient = client
	return b
}

// NTLMProxy routes all requests through a proxy server that requires NTLM authentication.
func (b *HTTPStoreBuilder) NTLMProxy(proxyURL, username, password, domain string) *HTTPStoreBuilder {
	b.ntlmProxy = &ntlmProxyConfig{proxyURL: proxyURL, username: username, password: password, domain: domain}
	return b
}

// Build is called by the client to create the store instance.
func (b *HTTPStoreBuilder) Build(clientContext subsystems.ClientContext) (subsystems.RemoteStore, error) {
	if b.baseURI == "" {
		return nil, errors.New("remote store base URI must not be empty")
	}
	if _, err := url.Parse(b.baseURI); err != nil {
		return nil, err
	}
	client := b.httpClient
	if client == nil {
		transport, err := b.makeTransport()
		if err != nil {
			return nil, err
		}
		client = &http.Client{Transport: transport}
	}
	return newHTTPStore(client, b.baseURI, b.headers.Clone(), clientContext.GetLoggers()), nil
}

func (b *HTTPStoreBuilder) makeTransport() (*http.Transport, error) {
	dialer := &net.Dialer{
		Timeout:   b.connectTimeout,
		KeepAlive: 1 * time.Minute,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if b.ntlmProxy == nil {
		return transport, nil
	}
	p := b.ntlmProxy
	if p.proxyURL == "" || p.username == "" || p.password == "" {
		return nil, errors.New("NTLM proxy URL, username, and password are required")
	}
	proxyURL, err := url.Parse(p.proxyURL)
	if err != nil {
		return nil, err
	}
	if proxyURL.Scheme == "" || proxyURL.Host == "" {
		return nil, errors.New("NTLM proxy URL must be absolute")
	}
	transport.Proxy = nil
	transport.DialContext = ntlm.NewNTLMProxyDialContext(dialer, *proxyURL, p.username, p.password, p.domain,
		&tls.Config{MinVersion: tls.VersionTLS12})
	return transport, nil
}
