package fingerprint

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	utls "github.com/refraction-networking/utls"
)

// Profile names a browser TLS ClientHello to imitate.
type Profile string

const (
	ProfileChrome  Profile = "chrome"
	ProfileFirefox Profile = "firefox"
	ProfileSafari  Profile = "safari"
	ProfileGo      Profile = "go"     // standard Go TLS
	ProfileRandom  Profile = "random" // randomized uTLS hello without ALPN
)

// Profiles lists the accepted profile names.
var Profiles = []Profile{ProfileChrome, ProfileFirefox, ProfileSafari, ProfileGo, ProfileRandom}

// ParseProfile maps a configuration value to a Profile. Empty means chrome.
func ParseProfile(s string) (Profile, error) {
	if s == "" {
		return ProfileChrome, nil
	}
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Profiles {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown fingerprint profile %q", s)
}

// Options configures Transport.
type Options struct {
	Profile Profile
	// InsecureSkipVerify disables certificate checks. Only for tests.
	InsecureSkipVerify bool
	// Proxy overrides the environment proxy lookup. HTTPS tunneled through
	// a proxy is handshaken by net/http with the standard Go hello.
	Proxy func(*http.Request) (*url.URL, error)
}

func helloID(p Profile) (utls.ClientHelloID, error) {
	switch p {
	case ProfileChrome:
		return utls.HelloChrome_Auto, nil
	case ProfileFirefox:
		return utls.HelloFirefox_Auto, nil
	case ProfileSafari:
		return utls.HelloIOS_Auto, nil
	case ProfileRandom:
		return utls.HelloRandomizedNoALPN, nil
	default:
		return utls.ClientHelloID{}, fmt.Errorf("unknown profile %q", p)
	}
}

// Transport returns an http.RoundTripper whose TLS handshakes carry the
// ClientHello of the given profile. ProfileGo returns a plain clone of
// http.DefaultTransport.
//
// The uTLS connection is not a *tls.Conn, so net/http can only speak
// HTTP/1.1 over it; the browser hellos are rewritten to advertise only
// http/1.1 in ALPN.
func Transport(opts Options) (http.RoundTripper, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != nil {
		transport.Proxy = opts.Proxy
	}

	if opts.Profile == "" || opts.Profile == ProfileGo {
		if opts.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // test-only switch
		}
		return transport, nil
	}

	id, err := helloID(opts.Profile)
	if err != nil {
		return nil, err
	}

	dial := transport.DialContext
	transport.ForceAttemptHTTP2 = false
	transport.DialTLSContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		tcpConn, err := dial(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}

		cfg := &utls.Config{ServerName: host, InsecureSkipVerify: opts.InsecureSkipVerify} //nolint:gosec // test-only switch
		uConn, err := newConn(tcpConn, cfg, id)
		if err != nil {
			_ = tcpConn.Close()
			return nil, err
		}
		if err := uConn.HandshakeContext(ctx); err != nil {
			_ = tcpConn.Close()
			return nil, fmt.Errorf("utls handshake with %s: %w", host, err)
		}
		return uConn, nil
	}

	return transport, nil
}

// newConn builds the uTLS client. Named browser hellos are expanded into a
// spec so the ALPN list can be pinned to http/1.1.
func newConn(conn net.Conn, cfg *utls.Config, id utls.ClientHelloID) (*utls.UConn, error) {
	spec, err := utls.UTLSIdToSpec(id)
	if err != nil {
		// randomized hellos have no static spec
		return utls.UClient(conn, cfg, id), nil
	}
	for _, ext := range spec.Extensions {
		if alpn, ok := ext.(*utls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
		}
	}

	uConn := utls.UClient(conn, cfg, utls.HelloCustom)
	if err := uConn.ApplyPreset(&spec); err != nil {
		return nil, fmt.Errorf("apply %s hello: %w", id.Str(), err)
	}
	return uConn, nil
}
