package filter

import (
	"bytes"
	"net/http"
	"slices"
	"strings"

	"github.com/FranksOps/seedcorpus/internal/storage"
)

// Challenge is the fingerprint of a bot-protection vendor's block or
// challenge page. A page matches when its status is listed and any of the
// server, header or body markers is present.
type Challenge struct {
	Vendor   string
	Statuses []int
	Servers  []string // case-insensitive substrings of the Server header
	Headers  []string // response headers whose presence is conclusive
	// Body lists marker groups; every marker in one group must appear.
	Body [][]string
}

// DefaultChallenges covers the vendors most often met on search hits.
func DefaultChallenges() []Challenge {
	return []Challenge{
		{
			Vendor:   "Cloudflare",
			Statuses: []int{http.StatusForbidden, http.StatusServiceUnavailable},
			Servers:  []string{"cloudflare"},
			Body: [][]string{
				{"cf-browser-verification"},
				{"cf-turnstile"},
				{"cloudflare-nginx"},
				{"Attention Required! | Cloudflare"},
			},
		},
		{
			Vendor:   "Akamai",
			Statuses: []int{http.StatusForbidden},
			Servers:  []string{"akamai"},
			Body:     [][]string{{"Access Denied", "Reference #"}},
		},
		{
			Vendor:   "DataDome",
			Statuses: []int{http.StatusForbidden},
			Servers:  []string{"datadome"},
			Headers:  []string{"X-DataDome", "X-DataDome-Response"},
			Body:     [][]string{{"geo.captcha-delivery.com"}, {"datadome"}},
		},
		{
			Vendor:   "PerimeterX",
			Statuses: []int{http.StatusForbidden},
			Headers:  []string{"X-Px-Captcha"},
			Body:     [][]string{{"client.perimeterx.net"}, {"px-captcha"}, {"_pxBlock"}},
		},
	}
}

// Match reports whether p looks like this vendor's challenge.
func (c Challenge) Match(p *storage.Page) bool {
	if !slices.Contains(c.Statuses, p.StatusCode) {
		return false
	}

	h := http.Header(p.Headers)
	server := strings.ToLower(h.Get("Server"))
	for _, s := range c.Servers {
		if strings.Contains(server, s) {
			return true
		}
	}
	for _, name := range c.Headers {
		if h.Get(name) != "" {
			return true
		}
	}
	for _, group := range c.Body {
		if containsAll(p.Body, group) {
			return true
		}
	}
	return false
}

func containsAll(body []byte, markers []string) bool {
	for _, m := range markers {
		if !bytes.Contains(body, []byte(m)) {
			return false
		}
	}
	return len(markers) > 0
}

// Detect returns the vendor of the first matching challenge.
func Detect(p *storage.Page, challenges []Challenge) (string, bool) {
	for _, c := range challenges {
		if c.Match(p) {
			return c.Vendor, true
		}
	}
	return "", false
}

// BotChallenge rejects bot-protection block and challenge pages. Rules
// places it ahead of StatusOK so the reason names the vendor.
func BotChallenge(challenges []Challenge) Rule {
	return func(p *storage.Page) string {
		if vendor, ok := Detect(p, challenges); ok {
			return "bot challenge: " + vendor
		}
		return ""
	}
}
