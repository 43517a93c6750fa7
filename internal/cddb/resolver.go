package cddb

import (
	"context"
	"fmt"
	"log/slog"

	"cd2md/internal/disc"
	"cd2md/internal/logging"
	"cd2md/internal/services"
)

// ErrLookupMiss reports that no title data was found for the disc.
var ErrLookupMiss = fmt.Errorf("%w: no cddb entry for disc", services.ErrNotFound)

// Lookup resolves titles for a disc.
type Lookup interface {
	Resolve(ctx context.Context, d disc.Disc) (Titles, error)
}

// Chooser picks one of several candidate matches and returns its index.
type Chooser func(choices []Choice) (int, error)

// FirstChoice always selects the first candidate.
func FirstChoice([]Choice) (int, error) { return 0, nil }

// Titles holds the disc title and one title per track.
type Titles struct {
	Disc   string
	Tracks []string
}

// BlankTitles returns untitled entries for trackCount tracks.
func BlankTitles(trackCount int) Titles {
	return Titles{Tracks: make([]string, trackCount)}
}

// Track returns the title of the 1-based ordinal, or "" when unknown.
func (t Titles) Track(ordinal int) string {
	if ordinal < 1 || ordinal > len(t.Tracks) {
		return ""
	}
	return t.Tracks[ordinal-1]
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithChooser sets the disambiguation callback.
func WithChooser(choose Chooser) ResolverOption {
	return func(r *Resolver) {
		if choose != nil {
			r.choose = choose
		}
	}
}

// WithCache enables the title cache.
func WithCache(cache *Cache) ResolverOption {
	return func(r *Resolver) { r.cache = cache }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver runs query, choose, read and parse.
type Resolver struct {
	fetcher Fetcher
	choose  Chooser
	cache   *Cache
	logger  *slog.Logger
}

var _ Lookup = (*Resolver)(nil)

// NewResolver builds a resolver around fetcher.
func NewResolver(fetcher Fetcher, opts ...ResolverOption) *Resolver {
	r := &Resolver{fetcher: fetcher, choose: FirstChoice, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "cddb")
	return r
}

// Resolve returns the titles for d. ErrLookupMiss means nothing matched.
func (r *Resolver) Resolve(ctx context.Context, d disc.Disc) (Titles, error) {
	discID := d.HexID()
	if entry, ok := r.cache.Lookup(discID); ok {
		r.logger.Info("titles served from cache", logging.String(logging.FieldDiscID, discID))
		return sized(Titles{Disc: entry.Disc, Tracks: entry.Tracks}, len(d.Tracks)), nil
	}

	query := BuildQuery(d)
	r.logger.Debug("cddb query", logging.String(logging.FieldDiscID, discID), logging.String("query", query))

	resp, err := r.fetcher.Query(ctx, query)
	if err != nil {
		return Titles{}, services.Wrap(services.ErrTransient, "lookup", "query", "CDDB query failed", err)
	}
	choices := ParseChoices(resp)
	if len(choices) == 0 {
		return Titles{}, ErrLookupMiss
	}

	idx := 0
	if len(choices) > 1 {
		idx, err = r.choose(choices)
		if err != nil {
			return Titles{}, err
		}
		if idx < 0 || idx >= len(choices) {
			return Titles{}, ErrLookupMiss
		}
	}
	choice := choices[idx]

	body, err := r.fetcher.Read(ctx, choice.QueryToken)
	if err != nil {
		return Titles{}, services.Wrap(services.ErrTransient, "lookup", "read", "CDDB read failed", err)
	}
	titles, ok := titlesFromRecord(parseRecord(body), len(d.Tracks))
	if !ok {
		return Titles{}, ErrLookupMiss
	}

	r.logger.Info("disc identified",
		logging.String(logging.FieldDiscID, discID),
		logging.String("genre", choice.Genre()),
		logging.String("title", titles.Disc),
	)

	if err := r.cache.Store(CacheEntry{
		DiscID:     discID,
		QueryToken: choice.QueryToken,
		Disc:       titles.Disc,
		Tracks:     titles.Tracks,
	}); err != nil {
		logging.WarnWithContext(r.logger, "failed to cache titles", "title_cache_store_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.title_cache permissions"),
		)
	}
	return titles, nil
}

func titlesFromRecord(rec record, trackCount int) (Titles, bool) {
	if len(rec.keys) == 0 {
		return Titles{}, false
	}
	titles := BlankTitles(trackCount)
	titles.Disc = NormalizeTitle(rec.values["DTITLE"])
	for _, key := range rec.keys {
		n, ok := trackIndex(key)
		if !ok || n >= trackCount {
			continue
		}
		titles.Tracks[n] = NormalizeTitle(rec.values[key])
	}
	return titles, true
}

func sized(t Titles, trackCount int) Titles {
	out := BlankTitles(trackCount)
	out.Disc = t.Disc
	copy(out.Tracks, t.Tracks)
	return out
}
