// Package service is the facade over resolution, affidavit acquisition,
// caching and the media-id store. Handlers and the CLI talk only to this
// package.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/cache"
	"github.com/openneta/netawatch/internal/extract"
	"github.com/openneta/netawatch/internal/mediaproxy"
	"github.com/openneta/netawatch/internal/resolve"
)

// Cache namespaces. Profile and affidavit entries expire quickly; static
// covers slow-moving pages such as search results.
const (
	NamespaceProfile   = "profile"
	NamespaceAffidavit = "affidavit"
	NamespaceStatic    = "static"
)

// The affidavit portal fills these tables from scripts well after document
// load; rendering waits for each before snapshotting.
var affidavitMarkers = []string{
	"#movable_assets",
	"#immovable_assets",
	"#liabilities",
	"#income_tax",
}

// MemberQuery identifies one legislator. Constituency and party are optional
// disambiguation hints; when present they refine the cache identity.
type MemberQuery struct {
	Name         string       `json:"name"`
	Role         resolve.Role `json:"role"`
	Constituency string       `json:"constituency,omitempty"`
	Party        string       `json:"party,omitempty"`
}

func (q MemberQuery) validate() error {
	if q.Name == "" || !q.Role.Valid() {
		return fmt.Errorf("member query requires name and role MP|MLA")
	}
	return nil
}

func (q MemberQuery) key() string {
	return cache.Key(string(q.Role), q.Name, q.Constituency, q.Party)
}

// AffidavitQuery identifies one candidate's affidavit.
type AffidavitQuery struct {
	Name         string `json:"name"`
	Constituency string `json:"constituency"`
	Party        string `json:"party"`
}

func (q AffidavitQuery) validate() error {
	if q.Name == "" || q.Constituency == "" || q.Party == "" {
		return fmt.Errorf("affidavit query requires name, constituency and party")
	}
	return nil
}

// AffidavitResult is the outcome of one affidavit acquisition.
type AffidavitResult struct {
	Outcome   resolve.Outcome          `json:"outcome"`
	Record    *extract.AffidavitRecord `json:"record,omitempty"`
	SourceURL string                   `json:"source_url,omitempty"`
}

// Config holds the service-level settings.
type Config struct {
	AffidavitBaseURL string
}

// Service wires the resolver, fetchers, cache and media store together.
type Service struct {
	cfg      Config
	logger   *zap.Logger
	cache    *cache.Coordinator
	plain    PlainFetcher
	rendered RenderFetcher
	resolver *resolve.Resolver
	media    *mediaproxy.Store
}

func New(cfg Config, coordinator *cache.Coordinator, plain PlainFetcher, rendered RenderFetcher, resolver *resolve.Resolver, media *mediaproxy.Store, logger *zap.Logger) *Service {
	return &Service{
		cfg:      cfg,
		logger:   logger,
		cache:    coordinator,
		plain:    plain,
		rendered: rendered,
		resolver: resolver,
		media:    media,
	}
}

// ResolveMember resolves a legislator profile through the cache. Concurrent
// calls with the same normalized query trigger one resolution; a NotFound
// outcome is returned to every caller but never cached, so the next call
// retries.
func (s *Service) ResolveMember(ctx context.Context, q MemberQuery) (*resolve.Result, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	key := q.key()
	v, _, err := s.cache.GetOrCompute(ctx, NamespaceProfile, key, func(ctx context.Context) (any, bool, error) {
		res, err := s.resolver.Resolve(ctx, q.Name, q.Role)
		if err != nil {
			return nil, false, err
		}
		if res.Outcome != resolve.OutcomeFound {
			return res, false, nil
		}
		s.attachImageID(ctx, res.Record)
		return res, true, nil
	})
	if err != nil {
		return nil, err
	}
	res, ok := v.(*resolve.Result)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload for profile %q", key)
	}
	return res, nil
}

func (s *Service) attachImageID(ctx context.Context, rec *resolve.MemberRecord) {
	if s.media == nil || rec == nil {
		return
	}
	id, err := s.media.IDFor(ctx, rec.ImageURL)
	if err != nil {
		s.logger.Warn("image id assignment failed",
			zap.String("url", rec.ImageURL), zap.Error(err))
		return
	}
	rec.ImageID = id
}

// ResolveAffidavit locates a candidate's affidavit page via the portal's
// search results, renders it, and extracts the structured record. The result
// is cached under the composite (name, constituency, party) identity;
// NotFound is never cached. Transport failures propagate as errors.
func (s *Service) ResolveAffidavit(ctx context.Context, q AffidavitQuery) (*AffidavitResult, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}

	key := cache.Key(q.Name, q.Constituency, q.Party)
	v, _, err := s.cache.GetOrCompute(ctx, NamespaceAffidavit, key, func(ctx context.Context) (any, bool, error) {
		res, err := s.fetchAffidavit(ctx, q)
		if err != nil {
			return nil, false, err
		}
		return res, res.Outcome == resolve.OutcomeFound, nil
	})
	if err != nil {
		return nil, err
	}
	res, ok := v.(*AffidavitResult)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload for affidavit %q", key)
	}
	return res, nil
}

func (s *Service) fetchAffidavit(ctx context.Context, q AffidavitQuery) (*AffidavitResult, error) {
	pageURL, err := s.locateAffidavit(ctx, q)
	if err != nil {
		return nil, err
	}
	if pageURL == "" {
		s.logger.Info("affidavit not located",
			zap.String("name", q.Name),
			zap.String("constituency", q.Constituency),
			zap.String("party", q.Party),
		)
		return &AffidavitResult{Outcome: resolve.OutcomeNotFound}, nil
	}

	html, err := s.rendered.Fetch(ctx, pageURL, affidavitMarkers)
	if err != nil {
		return nil, fmt.Errorf("render affidavit page: %w", err)
	}
	rec, err := extract.ParseAffidavit(html)
	if err != nil {
		return nil, err
	}

	s.logger.Info("affidavit extracted",
		zap.String("name", q.Name),
		zap.String("url", pageURL),
		zap.Int("movable_assets", len(rec.MovableAssets)),
		zap.Int("liabilities", len(rec.Liabilities)),
		zap.Int("criminal_cases", len(rec.CriminalCases)),
	)
	return &AffidavitResult{
		Outcome:   resolve.OutcomeFound,
		Record:    rec,
		SourceURL: pageURL,
	}, nil
}

// locateAffidavit finds the candidate's affidavit URL through the portal
// search page. The search page itself is cached in the static namespace
// since results for a name change only around elections.
func (s *Service) locateAffidavit(ctx context.Context, q AffidavitQuery) (string, error) {
	searchKey := cache.Key("search", q.Name)
	v, _, err := s.cache.GetOrCompute(ctx, NamespaceStatic, searchKey, func(ctx context.Context) (any, bool, error) {
		html, err := s.plain.Fetch(ctx, searchURL(s.cfg.AffidavitBaseURL, q.Name))
		if err != nil {
			return nil, false, err
		}
		return html, true, nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch search results: %w", err)
	}
	html, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("unexpected cache payload for search %q", searchKey)
	}

	pageURL, ok := matchSearchResult(html, q, s.cfg.AffidavitBaseURL)
	if !ok {
		return "", nil
	}
	return pageURL, nil
}

// ImageURL resolves an opaque image id for the proxy endpoint.
func (s *Service) ImageURL(ctx context.Context, imageID string) (string, error) {
	if s.media == nil {
		return "", fmt.Errorf("media proxy not configured")
	}
	return s.media.URLFor(ctx, imageID)
}

// Invalidate drops the cached profile for the query's identity.
func (s *Service) Invalidate(q MemberQuery) {
	s.cache.Invalidate(NamespaceProfile, q.key())
}

// Stats reports cache sizes and the media mapping count.
func (s *Service) Stats(ctx context.Context) map[string]any {
	out := map[string]any{
		"cache": s.cache.Sizes(),
	}
	if s.media != nil {
		if n, err := s.media.Count(ctx); err == nil {
			out["image_mappings"] = n
		}
	}
	return out
}
