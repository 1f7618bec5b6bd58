package resolve

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/extract"
	"github.com/openneta/netawatch/internal/metrics"
)

// Outcome tags a resolution result. Only transport failures surface as Go
// errors; "page not found" is an ordinary value.
type Outcome string

const (
	OutcomeFound    Outcome = "found"
	OutcomeNotFound Outcome = "not_found"
)

// Attempt records one candidate URL and how far it got. The sequence lives
// only for the duration of a single resolution and in logs.
type Attempt struct {
	URL          string `json:"url"`
	Bytes        int    `json:"bytes"`
	StructuralOK bool   `json:"structural_ok"`
	Extracted    bool   `json:"extracted"`
	Err          string `json:"err,omitempty"`
}

// MemberRecord is a resolved legislator identity.
type MemberRecord struct {
	Name         string              `json:"name"`
	SearchedAs   Role                `json:"searched_as"`
	FoundAs      Role                `json:"found_as"`
	State        string              `json:"state"`
	Constituency string              `json:"constituency"`
	Party        string              `json:"party"`
	ImageURL     string              `json:"image_url"`
	ImageID      string              `json:"image_id,omitempty"`
	SourceURL    string              `json:"source_url"`
	Performance  extract.Performance `json:"performance"`
	Personal     extract.Personal    `json:"personal"`
}

// Result is the outcome of one resolution call.
type Result struct {
	Outcome  Outcome       `json:"outcome"`
	Record   *MemberRecord `json:"record,omitempty"`
	Attempts []Attempt     `json:"attempts"`
}

// Fetcher fetches one URL and returns the document body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Config controls resolution behavior.
type Config struct {
	BaseURL string
	// Budget bounds the whole resolution wall-clock, fallback included.
	Budget time.Duration
	// FallbackBudget caps the alternate-role search within Budget.
	FallbackBudget time.Duration
	// QuickMode restricts the primary search to the most likely URLs.
	QuickMode bool
	// MinDocumentBytes rejects stub responses before parsing.
	MinDocumentBytes int
}

// Resolver locates legislator profiles.
type Resolver struct {
	cfg     Config
	fetcher Fetcher
	logger  *zap.Logger
}

func New(cfg Config, fetcher Fetcher, logger *zap.Logger) *Resolver {
	if cfg.MinDocumentBytes <= 0 {
		cfg.MinDocumentBytes = 2048
	}
	return &Resolver{cfg: cfg, fetcher: fetcher, logger: logger}
}

// Resolve tries candidate URLs for name under the declared role, then a
// time-boxed quick search under the other role. Candidates run strictly in
// priority order; the first page passing validation wins. Exceeding the
// wall-clock budget yields NotFound, never an error; only cancellation of
// the caller's context propagates as one.
func (r *Resolver) Resolve(ctx context.Context, name string, role Role) (*Result, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	budgetCtx, cancel := context.WithTimeout(ctx, r.cfg.Budget)
	defer cancel()

	result := &Result{Outcome: OutcomeNotFound, Attempts: []Attempt{}}

	rec := r.tryCandidates(budgetCtx, result, name, role,
		CandidateURLs(r.cfg.BaseURL, role, name, r.cfg.QuickMode))
	if rec == nil && budgetCtx.Err() == nil {
		// Members change chamber; spend what remains of the budget, capped,
		// on the most likely URLs of the other role.
		fallbackCtx, cancelFallback := context.WithTimeout(budgetCtx, r.cfg.FallbackBudget)
		rec = r.tryCandidates(fallbackCtx, result, name, role.Other(),
			CandidateURLs(r.cfg.BaseURL, role.Other(), name, true))
		cancelFallback()
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rec == nil {
		metrics.ObserveResolveOutcome(string(role), string(OutcomeNotFound))
		r.logger.Info("member not resolved",
			zap.String("name", name),
			zap.String("role", string(role)),
			zap.Int("attempts", len(result.Attempts)),
		)
		return result, nil
	}

	rec.SearchedAs = role
	result.Outcome = OutcomeFound
	result.Record = rec
	metrics.ObserveResolveOutcome(string(role), string(OutcomeFound))
	r.logger.Info("member resolved",
		zap.String("name", name),
		zap.String("searched_as", string(role)),
		zap.String("found_as", string(rec.FoundAs)),
		zap.String("url", rec.SourceURL),
		zap.Int("attempts", len(result.Attempts)),
	)
	return result, nil
}

func (r *Resolver) tryCandidates(ctx context.Context, result *Result, name string, role Role, urls []string) *MemberRecord {
	for _, candidate := range urls {
		if ctx.Err() != nil {
			return nil
		}
		metrics.ObserveResolveAttempt(string(role))

		attempt := Attempt{URL: candidate}
		html, err := r.fetcher.Fetch(ctx, candidate)
		if err != nil {
			attempt.Err = err.Error()
			result.Attempts = append(result.Attempts, attempt)
			r.logger.Debug("candidate fetch failed",
				zap.String("url", candidate), zap.Error(err))
			continue
		}
		attempt.Bytes = len(html)

		if len(html) < r.cfg.MinDocumentBytes || !structurallyValid(html, name, role) {
			result.Attempts = append(result.Attempts, attempt)
			continue
		}
		attempt.StructuralOK = true

		profile, err := extract.ParseProfile(html)
		if err != nil || !profile.Resolved() {
			result.Attempts = append(result.Attempts, attempt)
			continue
		}
		attempt.Extracted = true
		result.Attempts = append(result.Attempts, attempt)

		return &MemberRecord{
			Name:         name,
			FoundAs:      role,
			State:        profile.State,
			Constituency: profile.Constituency,
			Party:        profile.Party,
			ImageURL:     absolutize(candidate, profile.ImageURL),
			SourceURL:    candidate,
			Performance:  profile.Performance,
			Personal:     profile.Personal,
		}
	}
	return nil
}

// structurallyValid is the cheap pre-extraction gate: the page must carry
// the role's header markup, at least one party/constituency marker, and the
// member's first and last name somewhere in the text.
func structurallyValid(html, name string, role Role) bool {
	lower := strings.ToLower(html)

	roleOK := false
	switch role {
	case RoleMP:
		roleOK = strings.Contains(lower, "mp_state") || strings.Contains(lower, "mp-parliamentary-performance")
	case RoleMLA:
		roleOK = strings.Contains(lower, "mla_state") || strings.Contains(lower, "mla_constituency")
	}
	if !roleOK {
		return false
	}
	if !strings.Contains(lower, "party") && !strings.Contains(lower, "constituency") {
		return false
	}

	parts := strings.Fields(strings.ToLower(name))
	if len(parts) == 0 {
		return false
	}
	return strings.Contains(lower, parts[0]) && strings.Contains(lower, parts[len(parts)-1])
}

// absolutize resolves an image reference found in the page against the page
// URL it came from.
func absolutize(pageURL, ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http") {
		return ref
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	refURL, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(refURL).String()
}
