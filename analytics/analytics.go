// Package analytics records who opened and downloaded stories without
// storing raw IP addresses.
package analytics

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"
)

// salt holds the per-installation random salt for IP hashing, protected by sync.Once.
var salt struct {
	once  sync.Once
	value string
}

// InitSalt loads or generates a persistent salt for IP hashing.
// Must be called once at startup before any requests are served.
func InitSalt(store *Store) error {
	var initErr error
	salt.once.Do(func() {
		s, err := store.GetSetting("hash_salt")
		if err != nil {
			initErr = fmt.Errorf("read hash salt: %w", err)
			return
		}
		if s == "" {
			b := make([]byte, 32)
			if _, err := rand.Read(b); err != nil {
				initErr = fmt.Errorf("generate salt: %w", err)
				return
			}
			s = hex.EncodeToString(b)
			if err := store.SetSetting("hash_salt", s); err != nil {
				initErr = fmt.Errorf("store hash salt: %w", err)
				return
			}
		}
		salt.value = s
	})
	return initErr
}

// getSalt returns the initialized salt value.
func getSalt() string {
	return salt.value
}

// Kind is what a visitor did with a story.
type Kind string

const (
	KindView     Kind = "view"
	KindDownload Kind = "download"
)

// Event is one story view or offline download as seen by the server.
type Event struct {
	Slug      string
	Kind      Kind
	IP        string
	UserAgent string
	Referrer  string
	DNT       bool // Do Not Track was set; nothing is stored
}

// Visit is a stored human event.
type Visit struct {
	ID        int64     `json:"-"`
	Slug      string    `json:"slug"`
	Kind      Kind      `json:"kind"`
	VisitorID string    `json:"visitor_id"`
	IPHash    string    `json:"-"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Device    string    `json:"device"`
	Referrer  string    `json:"referrer"`
	Timestamp time.Time `json:"timestamp"`
}

// BotVisit is a stored crawler event.
type BotVisit struct {
	ID        int64     `json:"-"`
	BotName   string    `json:"bot_name"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	Slug      string    `json:"slug"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats holds aggregated analytics data.
type Stats struct {
	Period         string          `json:"period"`
	UniqueVisitors int             `json:"unique_visitors"`
	TotalViews     int             `json:"total_views"`
	TotalDownloads int             `json:"total_downloads"`
	TopSites       []SiteStat      `json:"top_sites"`
	DeviceStats    []DimensionStat `json:"devices"`
	ReferrerStats  []DimensionStat `json:"referrers"`
	DailyViews     []DailyView     `json:"daily_views"`
	BotVisits      int             `json:"bot_visits"`
}

// SiteStat is per-story traffic.
type SiteStat struct {
	Slug      string `json:"slug"`
	Views     int    `json:"views"`
	Downloads int    `json:"downloads"`
}

// DimensionStat represents a dimension breakdown (device, referrer).
type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DailyView represents views per day.
type DailyView struct {
	Date  string `json:"date"`
	Views int    `json:"views"`
}

// HashIP creates a salted SHA-256 hash of an IP address.
func HashIP(ip string) string {
	h := sha256.New()
	h.Write([]byte(getSalt() + ip))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// GenerateVisitorID creates a salted visitor ID from IP and User-Agent.
func GenerateVisitorID(ip, userAgent string) string {
	h := sha256.New()
	h.Write([]byte(getSalt() + ip + "|" + userAgent))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// ParseUserAgent extracts browser, OS, and device from User-Agent string.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// Detect browser (order matters: more specific patterns before generic ones)
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Detect OS (order matters: Android before Linux since Android UA contains "linux")
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	// Detect device type (order matters: iPad contains "mobile" in UA, check tablet first)
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}

	return
}

// IsBot checks if the User-Agent is likely a bot/crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	bots := []string{
		"bot", "crawler", "spider", "crawl", "slurp", "scrape",
		"googlebot", "bingbot", "yandex", "baidu", "duckduckbot",
		"facebookexternalhit", "twitterbot", "linkedinbot",
		"ahrefsbot", "semrushbot", "mj12bot", "dotbot",
	}
	for _, bot := range bots {
		if strings.Contains(ua, bot) {
			return true
		}
	}
	return false
}

// ExtractBotName extracts the bot name from User-Agent string.
func ExtractBotName(ua string) string {
	ua = strings.ToLower(ua)

	// Known bot patterns
	botPatterns := map[string]string{
		"googlebot":           "Googlebot",
		"bingbot":             "Bingbot",
		"yandex":              "Yandex",
		"baidu":               "Baidu",
		"duckduckbot":         "DuckDuckBot",
		"facebookexternalhit": "Facebook",
		"twitterbot":          "Twitterbot",
		"linkedinbot":         "LinkedIn",
		"ahrefsbot":           "Ahrefs",
		"semrushbot":          "SEMrush",
		"mj12bot":             "Majestic",
		"dotbot":              "Moz",
		"slurp":               "Yahoo Slurp",
		"crawler":             "Generic Crawler",
		"spider":              "Generic Spider",
	}

	for pattern, name := range botPatterns {
		if strings.Contains(ua, pattern) {
			return name
		}
	}

	// Generic bot detection
	if strings.Contains(ua, "bot") {
		return "Other Bot"
	}

	return "Unknown"
}

// referrerDomainRegex is pre-compiled for use in CleanReferrer.
var referrerDomainRegex = regexp.MustCompile(`^https?://(?:www\.)?([^/:]+)`)

// knownReferrers maps referrer hosts to a display name. Entries ending in a
// dot match anywhere in the host; the rest must match the host exactly.
var knownReferrers = []struct{ fragment, name string }{
	{"whatsapp.", "WhatsApp"},
	{"wa.me", "WhatsApp"},
	{"t.me", "Telegram"},
	{"telegram.", "Telegram"},
	{"instagram.", "Instagram"},
	{"facebook.", "Facebook"},
	{"messenger.", "Facebook"},
	{"google.", "Google"},
	{"bing.", "Bing"},
}

// CleanReferrer reduces a referrer URL to a short source name.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	matches := referrerDomainRegex.FindStringSubmatch(ref)
	if len(matches) < 2 {
		return "Other"
	}
	host := strings.ToLower(matches[1])
	for _, k := range knownReferrers {
		if strings.HasSuffix(k.fragment, ".") && strings.Contains(host, k.fragment) || host == k.fragment {
			return k.name
		}
	}
	return host
}
