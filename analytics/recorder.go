package analytics

import (
	"context"
	"time"

	"github.com/eringen/giftstory/ratelimit"
)

// Recorder turns server-side story events into stored visits. Events are
// rate limited per IP so a refresh loop cannot flood the table.
type Recorder struct {
	store   *Store
	limiter *ratelimit.Limiter
	now     func() time.Time
}

// NewRecorder returns a Recorder that keeps at most 60 events per IP per minute.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{
		store:   store,
		limiter: ratelimit.New(60, time.Minute),
		now:     time.Now,
	}
}

// Close stops the recorder's rate limiter.
func (r *Recorder) Close() {
	r.limiter.Stop()
}

// Record stores ev. Events with Do Not Track set, and events over the rate
// limit, are dropped without error.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if ev.DNT || ev.Slug == "" {
		return nil
	}
	if !r.limiter.Allow(ev.IP) {
		return nil
	}
	ua := truncate(ev.UserAgent, maxUserAgentLen)
	ts := r.now().UTC()

	if IsBot(ua) {
		return r.store.SaveBotVisit(ctx, &BotVisit{
			BotName:   ExtractBotName(ua),
			IPHash:    HashIP(ev.IP),
			UserAgent: ua,
			Slug:      ev.Slug,
			Timestamp: ts,
		})
	}

	browser, os, device := ParseUserAgent(ua)
	return r.store.SaveVisit(ctx, &Visit{
		Slug:      ev.Slug,
		Kind:      ev.Kind,
		VisitorID: GenerateVisitorID(ev.IP, ua),
		IPHash:    HashIP(ev.IP),
		Browser:   browser,
		OS:        os,
		Device:    device,
		Referrer:  CleanReferrer(truncate(ev.Referrer, maxReferrerLen)),
		Timestamp: ts,
	})
}

const (
	maxReferrerLen  = 2048
	maxUserAgentLen = 512
)

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
