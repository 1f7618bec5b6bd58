package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openneta/netawatch/internal/cache"
	"github.com/openneta/netawatch/internal/metrics"
	"github.com/openneta/netawatch/internal/resolve"
)

func TestMain(m *testing.M) {
	metrics.Init()
	m.Run()
}

const searchFixture = `
<table class="w3-table">
<tr><th>Candidate</th><th>Party</th><th>Constituency</th><th>State</th><th>Year</th></tr>
<tr>
<td><a href="/bihar2020/candidate.php?candidate_id=42">Ramesh Kumar</a></td>
<td>Bharatiya Janata Party</td>
<td>Patna Sahib (SC)</td>
<td>Bihar</td>
<td>2020</td>
</tr>
<tr>
<td><a href="/bihar2020/candidate.php?candidate_id=99">Ramesh Kumar</a></td>
<td>Independent</td>
<td>Danapur</td>
<td>Bihar</td>
<td>2020</td>
</tr>
</table>`

const affidavitPage = `<html><body>
<h2>Ramesh Kumar</h2>
<h5>Patna Sahib</h5>
<div><div>Party: Bharatiya Janata Party</div></div>
<div><div>Number of Criminal Cases: 0</div></div>
</body></html>`

type stubPlain struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (s *stubPlain) Fetch(_ context.Context, rawURL string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	page, ok := s.pages[rawURL]
	if !ok {
		return "", fmt.Errorf("status 404 for %s", rawURL)
	}
	return page, nil
}

type stubRenderer struct {
	page  string
	err   error
	calls atomic.Int32
	// delay lets tests hold the render open to pile up concurrent callers.
	delay time.Duration
}

func (s *stubRenderer) Fetch(ctx context.Context, _ string, _ []string) (string, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.page, s.err
}

func newTestService(plain PlainFetcher, rendered RenderFetcher) *Service {
	coordinator := cache.New(map[string]time.Duration{
		NamespaceProfile:   time.Minute,
		NamespaceAffidavit: time.Minute,
		NamespaceStatic:    time.Minute,
	}, time.Minute, zap.NewNop())

	resolver := resolve.New(resolve.Config{
		BaseURL:          "https://profiles.example.org",
		Budget:           2 * time.Second,
		FallbackBudget:   time.Second,
		MinDocumentBytes: 16,
	}, plain, zap.NewNop())

	return New(
		Config{AffidavitBaseURL: "https://affidavits.example.org"},
		coordinator, plain, rendered, resolver, nil, zap.NewNop(),
	)
}

func affidavitQuery() AffidavitQuery {
	return AffidavitQuery{
		Name:         "Ramesh Kumar",
		Constituency: "Patna Sahib",
		Party:        "BJP",
	}
}

func searchPageURL() string {
	return searchURL("https://affidavits.example.org", "Ramesh Kumar")
}

func TestResolveAffidavit_LocatesRendersAndExtracts(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{searchPageURL(): searchFixture}}
	rendered := &stubRenderer{page: affidavitPage}
	svc := newTestService(plain, rendered)

	res, err := svc.ResolveAffidavit(context.Background(), affidavitQuery())
	require.NoError(t, err)
	require.Equal(t, resolve.OutcomeFound, res.Outcome)

	assert.Equal(t, "https://affidavits.example.org/bihar2020/candidate.php?candidate_id=42", res.SourceURL)
	assert.Equal(t, "Ramesh Kumar", res.Record.Candidate.Name)
	assert.Equal(t, "Bharatiya Janata Party", res.Record.Candidate.Party)
}

func TestResolveAffidavit_ConcurrentCallersRenderOnce(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{searchPageURL(): searchFixture}}
	rendered := &stubRenderer{page: affidavitPage, delay: 50 * time.Millisecond}
	svc := newTestService(plain, rendered)

	const callers = 8
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.ResolveAffidavit(context.Background(), affidavitQuery())
			assert.NoError(t, err)
			if assert.NotNil(t, res) {
				assert.Equal(t, resolve.OutcomeFound, res.Outcome)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), rendered.calls.Load())
}

func TestResolveAffidavit_NoMatchIsNotFoundAndNotCached(t *testing.T) {
	t.Parallel()

	q := affidavitQuery()
	q.Party = "Indian National Congress"

	plain := &stubPlain{pages: map[string]string{searchPageURL(): searchFixture}}
	rendered := &stubRenderer{page: affidavitPage}
	svc := newTestService(plain, rendered)

	res, err := svc.ResolveAffidavit(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, resolve.OutcomeNotFound, res.Outcome)
	assert.Nil(t, res.Record)
	assert.Equal(t, int32(0), rendered.calls.Load())

	// The search page stays cached but the negative outcome does not.
	res2, err := svc.ResolveAffidavit(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, resolve.OutcomeNotFound, res2.Outcome)

	plain.mu.Lock()
	defer plain.mu.Unlock()
	assert.Equal(t, 1, plain.calls, "search page fetched once")
}

func TestResolveAffidavit_RenderFailurePropagates(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{searchPageURL(): searchFixture}}
	rendered := &stubRenderer{err: fmt.Errorf("browser crashed")}
	svc := newTestService(plain, rendered)

	_, err := svc.ResolveAffidavit(context.Background(), affidavitQuery())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser crashed")
}

func TestResolveAffidavit_RequiresAllQueryFields(t *testing.T) {
	t.Parallel()

	svc := newTestService(&stubPlain{}, &stubRenderer{})
	_, err := svc.ResolveAffidavit(context.Background(), AffidavitQuery{Name: "X"})
	require.Error(t, err)
}

func TestMatchSearchResult_PartyAliasAndConstituencyCleanup(t *testing.T) {
	t.Parallel()

	// "BJP" must match the full party name; "(SC)" on the portal side and
	// exact case differences must not block the match.
	q := AffidavitQuery{Name: "ramesh kumar", Constituency: "PATNA SAHIB", Party: "bjp"}
	u, ok := matchSearchResult(searchFixture, q, "https://affidavits.example.org")
	require.True(t, ok)
	assert.Equal(t, "https://affidavits.example.org/bihar2020/candidate.php?candidate_id=42", u)
}

func TestMatchSearchResult_DistinguishesByParty(t *testing.T) {
	t.Parallel()

	q := AffidavitQuery{Name: "Ramesh Kumar", Constituency: "Danapur", Party: "IND"}
	u, ok := matchSearchResult(searchFixture, q, "https://affidavits.example.org")
	require.True(t, ok)
	assert.Contains(t, u, "candidate_id=99")
}

func TestNormalizeParty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bharatiya janata party", normalizeParty("BJP"))
	assert.Equal(t, "bharatiya janata party", normalizeParty("Bharatiya  Janata Party"))
	assert.Equal(t, "janata dal (united)", normalizeParty("JD(U)"))
	assert.Equal(t, "unlisted party", normalizeParty("Unlisted Party"))
}

const memberProfilePage = `<html><body>
<div class="mp_profile_header_info">
<h1>Ramesh Kumar</h1>
<div class="age">Age : 54</div>
</div>
<div class="mp_state">State : <a href="/state/bihar">Bihar</a></div>
<div class="mp_state">Party : <a href="/party/bjp">Bharatiya Janata Party</a></div>
<div class="mp_constituency">Constituency : Patna Sahib</div>
<div class="mp-parliamentary-performance">
<div class="mp-attendance"><div class="field-name-field-attendance"><div class="field-item even">92%</div></div></div>
</div>
</body></html>`

func memberQuery() MemberQuery {
	return MemberQuery{Name: "Ramesh Kumar", Role: resolve.RoleMP}
}

func memberProfileURL() string {
	return "https://profiles.example.org/mptrack/18th-lok-sabha/ramesh-kumar"
}

func TestResolveMember_CachesPositiveResult(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{memberProfileURL(): memberProfilePage}}
	svc := newTestService(plain, &stubRenderer{})

	res, err := svc.ResolveMember(context.Background(), memberQuery())
	require.NoError(t, err)
	require.Equal(t, resolve.OutcomeFound, res.Outcome)
	assert.Equal(t, "Bharatiya Janata Party", res.Record.Party)
	assert.Equal(t, "Patna Sahib", res.Record.Constituency)

	plain.mu.Lock()
	first := plain.calls
	plain.mu.Unlock()
	require.Equal(t, 1, first)

	_, err = svc.ResolveMember(context.Background(), memberQuery())
	require.NoError(t, err)

	plain.mu.Lock()
	defer plain.mu.Unlock()
	assert.Equal(t, 1, plain.calls, "second call served from cache")
}

func TestResolveMember_HintsRefineCacheIdentity(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{memberProfileURL(): memberProfilePage}}
	svc := newTestService(plain, &stubRenderer{})

	_, err := svc.ResolveMember(context.Background(), memberQuery())
	require.NoError(t, err)

	hinted := memberQuery()
	hinted.Constituency = "Patna Sahib"
	hinted.Party = "BJP"
	_, err = svc.ResolveMember(context.Background(), hinted)
	require.NoError(t, err)
	_, err = svc.ResolveMember(context.Background(), hinted)
	require.NoError(t, err)

	plain.mu.Lock()
	defer plain.mu.Unlock()
	assert.Equal(t, 2, plain.calls, "hinted and unhinted identities resolve independently")
}

func TestResolveMember_RejectsInvalidQuery(t *testing.T) {
	t.Parallel()

	svc := newTestService(&stubPlain{}, &stubRenderer{})

	_, err := svc.ResolveMember(context.Background(), MemberQuery{Role: resolve.RoleMP})
	require.Error(t, err)
	_, err = svc.ResolveMember(context.Background(), MemberQuery{Name: "X", Role: "senator"})
	require.Error(t, err)
}

func TestInvalidate_ForcesRecompute(t *testing.T) {
	t.Parallel()

	plain := &stubPlain{pages: map[string]string{memberProfileURL(): memberProfilePage}}
	svc := newTestService(plain, &stubRenderer{})

	_, err := svc.ResolveMember(context.Background(), memberQuery())
	require.NoError(t, err)

	svc.Invalidate(memberQuery())

	_, err = svc.ResolveMember(context.Background(), memberQuery())
	require.NoError(t, err)

	plain.mu.Lock()
	defer plain.mu.Unlock()
	assert.Equal(t, 2, plain.calls)
}
