package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/eringen/giftstory/ratelimit"
)

func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "analytics.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := InitSalt(s); err != nil {
		t.Fatalf("init salt: %v", err)
	}
	return s, func() { s.Close() }
}

const (
	iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	botUA    = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"
)

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		ua                    string
		browser, os, device string
	}{
		{iphoneUA, "Safari", "iOS", "Mobile"},
		{chromeUA, "Chrome", "Windows", "Desktop"},
		{"", "Other", "Other", "Desktop"},
	}
	for _, tt := range tests {
		b, o, d := ParseUserAgent(tt.ua)
		if b != tt.browser || o != tt.os || d != tt.device {
			t.Errorf("ParseUserAgent(%q) = %s/%s/%s, want %s/%s/%s", tt.ua, b, o, d, tt.browser, tt.os, tt.device)
		}
	}
}

func TestIsBot(t *testing.T) {
	if !IsBot(botUA) {
		t.Error("googlebot not detected")
	}
	if IsBot(iphoneUA) {
		t.Error("iphone reported as bot")
	}
	if got := ExtractBotName(botUA); got != "Googlebot" {
		t.Errorf("ExtractBotName = %q", got)
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		ref, want string
	}{
		{"", "Direct"},
		{"https://web.whatsapp.com/", "WhatsApp"},
		{"https://wa.me/123", "WhatsApp"},
		{"https://t.me/somechannel", "Telegram"},
		{"https://l.instagram.com/?u=x", "Instagram"},
		{"https://www.google.com/search?q=x", "Google"},
		{"https://www.example.org/page", "example.org"},
		{"https://chat.meetup.com/", "chat.meetup.com"},
		{"not a url", "Other"},
	}
	for _, tt := range tests {
		if got := CleanReferrer(tt.ref); got != tt.want {
			t.Errorf("CleanReferrer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestHashIPIsSaltedAndStable(t *testing.T) {
	_, cleanup := setupTestStore(t)
	defer cleanup()

	a := HashIP("203.0.113.1")
	if a == "203.0.113.1" || len(a) != 16 {
		t.Errorf("HashIP = %q", a)
	}
	if HashIP("203.0.113.1") != a {
		t.Error("HashIP not stable")
	}
	if HashIP("203.0.113.2") == a {
		t.Error("different ips hash equal")
	}
}

func TestSettings(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	if v, err := s.GetSetting("missing"); err != nil || v != "" {
		t.Errorf("missing setting = %q, %v", v, err)
	}
	if err := s.SetSetting("k", "1"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetSetting("k", "2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := s.GetSetting("k"); v != "2" {
		t.Errorf("setting = %q, want 2", v)
	}
	if v, _ := s.GetSetting("schema_version"); v != "1" {
		t.Errorf("schema_version = %q", v)
	}
}

func TestRecorderAndStats(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	r := NewRecorder(s)
	defer r.Close()
	fixed := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return fixed }
	ctx := context.Background()

	events := []Event{
		{Slug: "for-ada", Kind: KindView, IP: "203.0.113.1", UserAgent: iphoneUA, Referrer: "https://wa.me/1"},
		{Slug: "for-ada", Kind: KindView, IP: "203.0.113.2", UserAgent: chromeUA},
		{Slug: "for-ada", Kind: KindDownload, IP: "203.0.113.1", UserAgent: iphoneUA},
		{Slug: "for-bob", Kind: KindView, IP: "203.0.113.3", UserAgent: chromeUA},
		{Slug: "for-bob", Kind: KindView, IP: "203.0.113.4", UserAgent: botUA},
		{Slug: "for-bob", Kind: KindView, IP: "203.0.113.5", UserAgent: chromeUA, DNT: true},
	}
	for _, ev := range events {
		if err := r.Record(ctx, ev); err != nil {
			t.Fatalf("Record(%+v): %v", ev, err)
		}
	}

	stats, err := s.GetStats(ctx, fixed.Add(-time.Hour), fixed.Add(time.Hour))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalViews != 3 {
		t.Errorf("TotalViews = %d, want 3", stats.TotalViews)
	}
	if stats.TotalDownloads != 1 {
		t.Errorf("TotalDownloads = %d, want 1", stats.TotalDownloads)
	}
	if stats.UniqueVisitors != 3 {
		t.Errorf("UniqueVisitors = %d, want 3", stats.UniqueVisitors)
	}
	if stats.BotVisits != 1 {
		t.Errorf("BotVisits = %d, want 1", stats.BotVisits)
	}
	if len(stats.TopSites) != 2 || stats.TopSites[0].Slug != "for-ada" || stats.TopSites[0].Downloads != 1 {
		t.Errorf("TopSites = %+v", stats.TopSites)
	}
	if len(stats.DailyViews) != 1 || stats.DailyViews[0].Date != "2026-05-10" || stats.DailyViews[0].Views != 3 {
		t.Errorf("DailyViews = %+v", stats.DailyViews)
	}

	empty, err := s.GetStats(ctx, fixed.Add(time.Hour), fixed.Add(2*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if empty.TotalViews != 0 || len(empty.TopSites) != 0 {
		t.Errorf("stats outside window = %+v", empty)
	}
}

func TestRecorderRateLimit(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	r := NewRecorder(s)
	r.limiter.Stop()
	r.limiter = ratelimit.New(2, time.Minute)
	defer r.Close()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := r.Record(ctx, Event{Slug: "for-ada", Kind: KindView, IP: "203.0.113.9", UserAgent: chromeUA}); err != nil {
			t.Fatal(err)
		}
	}
	stats, err := s.GetStats(ctx, time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalViews != 2 {
		t.Errorf("TotalViews = %d, want 2", stats.TotalViews)
	}
}

func TestCleanupOldVisits(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	old := &Visit{Slug: "a", Kind: KindView, VisitorID: "v", IPHash: "h", Browser: "b", OS: "o", Device: "d",
		Timestamp: time.Now().AddDate(0, 0, -400)}
	recent := &Visit{Slug: "a", Kind: KindView, VisitorID: "v", IPHash: "h", Browser: "b", OS: "o", Device: "d",
		Timestamp: time.Now()}
	for _, v := range []*Visit{old, recent} {
		if err := s.SaveVisit(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.CleanupOldVisits(365); err != nil {
		t.Fatal(err)
	}
	stats, err := s.GetStats(ctx, time.Now().AddDate(-2, 0, 0), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalViews != 1 {
		t.Errorf("TotalViews after cleanup = %d, want 1", stats.TotalViews)
	}
}

func TestParsePeriod(t *testing.T) {
	tests := map[string]int{"today": 1, "week": 7, "month": 30, "year": 365, "": 7, "bogus": 7}
	for in, want := range tests {
		if got := parsePeriod(in); got != want {
			t.Errorf("parsePeriod(%q) = %d, want %d", in, got, want)
		}
	}
}
