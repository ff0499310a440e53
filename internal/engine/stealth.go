package engine

import (
	"log/slog"

	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
)

// Re-export stealth types and functions for engine consumers.
type BrowserClient = stealth.BrowserClient

func ChromeHeaders() map[string]string { return stealth.ChromeHeaders() }
func RandomUserAgent() string          { return stealth.RandomUserAgent() }

// browserTimeout is the per-request timeout of the browser client, in seconds.
const browserTimeout = 15

// NewBrowserClient builds a Chrome-fingerprinted client for watch-page scraping.
// A non-empty webshareKey routes requests through the Webshare proxy pool;
// a pool failure is logged and the client runs direct.
func NewBrowserClient(webshareKey string) (*BrowserClient, error) {
	opts := []stealth.ClientOption{stealth.WithTimeout(browserTimeout)}
	if webshareKey != "" {
		pool, err := proxypool.NewWebshare(webshareKey)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	return stealth.NewClient(opts...)
}
