package module

import (
	"time"

	"feedweave/internal/core/compose"
	"feedweave/internal/core/interleave"
	"feedweave/internal/platform/config"
	"feedweave/internal/services/feed/service"
)

// Options controls feed sessions and composition
type Options struct {
	PageSize         int
	MaxInFlight      int
	Window           time.Duration
	DeckEvery        int
	DeckSize         int
	GlimpseEvery     int
	GlimpseSize      int
	MeaningfulMinLen int
	DeckPolicy       compose.DeckPolicy
	SessionTTL       time.Duration
	MutationTimeout  time.Duration
	SweepEvery       time.Duration
	StreamOrigins    []string
}

// FromConfig reads FEED_ keys, stream origins follow the API CORS list
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("FEED_")
	return Options{
		PageSize:         c.MayInt("PAGE_SIZE", 15),
		MaxInFlight:      c.MayInt("MAX_INFLIGHT_PAGES", 2),
		Window:           c.MayDuration("CONSOLIDATION_WINDOW", 24*time.Hour),
		DeckEvery:        c.MayInt("DECK_EVERY", 4),
		DeckSize:         c.MayInt("DECK_SIZE", 5),
		GlimpseEvery:     c.MayInt("GLIMPSE_EVERY", 8),
		GlimpseSize:      c.MayInt("GLIMPSE_SIZE", 8),
		MeaningfulMinLen: c.MayInt("MEANINGFUL_MIN_LEN", 30),
		DeckPolicy:       compose.DeckPolicy(c.MayEnum("DECK_POLICY", string(compose.DeckTier2), compose.DeckPolicies()...)),
		SessionTTL:       c.MayDuration("SESSION_TTL", 30*time.Minute),
		MutationTimeout:  c.MayDuration("MUTATION_TIMEOUT", 10*time.Second),
		SweepEvery:       c.MayDuration("SWEEP_EVERY", time.Minute),
		StreamOrigins:    cfg.MayCSV("FEEDWEAVE_API_CORS_ORIGINS", nil),
	}
}

// Policy returns the composition tunables
func (o Options) Policy() compose.Policy {
	return compose.Policy{
		Deck:             o.DeckPolicy,
		Window:           o.Window,
		MeaningfulMinLen: o.MeaningfulMinLen,
		Interleave: interleave.Options{
			DeckEvery:    o.DeckEvery,
			DeckSize:     o.DeckSize,
			GlimpseEvery: o.GlimpseEvery,
			GlimpseSize:  o.GlimpseSize,
		},
	}
}

// ServiceConfig maps options onto the session registry config
func (o Options) ServiceConfig() service.Config {
	return service.Config{
		PageSize:        o.PageSize,
		MaxInFlight:     o.MaxInFlight,
		Policy:          o.Policy(),
		MutationTimeout: o.MutationTimeout,
		SessionTTL:      o.SessionTTL,
	}
}
