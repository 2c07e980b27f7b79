package scanner

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"adlens/internal/classify"
	"adlens/internal/detect"
	"adlens/internal/overlay"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakePage is an in-memory Page: a canned document, canned layout boxes, and
// a rendered-overlay ledger.
type fakePage struct {
	mu sync.Mutex

	html    string
	htmlErr error

	boxes     map[string]Box
	layoutErr error

	markupBySelector map[string]string

	rendered  []overlay.Ad
	renderErr error

	snapshots int
	clears    int
}

func (f *fakePage) SnapshotHTML(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots++
	return f.html, f.htmlErr
}

func (f *fakePage) Layout(ctx context.Context, selectors []string) (map[string]Box, error) {
	if f.layoutErr != nil {
		return nil, f.layoutErr
	}
	out := map[string]Box{}
	for _, sel := range selectors {
		if box, ok := f.boxes[sel]; ok {
			out[sel] = box
		}
	}
	return out, nil
}

func (f *fakePage) CandidatesBySelectors(ctx context.Context, selectors []string) ([]detect.Candidate, error) {
	var out []detect.Candidate
	for _, sel := range selectors {
		if markup, ok := f.markupBySelector[sel]; ok {
			out = append(out, detect.Candidate{Selector: sel, Markup: markup})
		}
	}
	return out, nil
}

func (f *fakePage) RenderOverlays(ctx context.Context, ads []overlay.Ad) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renderErr != nil {
		return 0, f.renderErr
	}
	f.rendered = append([]overlay.Ad(nil), ads...)
	return len(ads), nil
}

func (f *fakePage) ClearOverlays(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	return nil
}

// fakeClient answers confirmation prompts by markup substring.
type fakeClient struct {
	mu      sync.Mutex
	calls   int
	replies map[string]string // markup substring -> reply
	errOn   string            // markup substring that fails at transport
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.errOn != "" && strings.Contains(prompt, f.errOn) {
		return "", errors.New("connection reset")
	}
	for substr, reply := range f.replies {
		if strings.Contains(prompt, substr) {
			return reply, nil
		}
	}
	return `{"isAd": false, "description": ""}`, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func hasCredential() string { return "test-key" }
func noCredential() string  { return "" }

func visibleBox() Box { return Box{Width: 300, Height: 250, Visible: true} }

func newHeuristicScanner(client classify.Client) *Scanner {
	pipeline := classify.NewPipeline(client, 2, nil)
	strategy := &HeuristicStrategy{Scanner: detect.NewScanner(detect.Config{})}
	return New(strategy, pipeline, hasCredential, nil)
}

func TestScanHappyPath(t *testing.T) {
	page := &fakePage{
		html: `<html><body>
			<div id="top-banner" class="ad"><img src="shoe.jpg"></div>
			<article id="story"><p>news text</p></article>
		</body></html>`,
		boxes: map[string]Box{"#top-banner": visibleBox()},
	}
	client := &fakeClient{replies: map[string]string{
		"shoe.jpg": `{"isAd": true, "description": "Shoe sale banner"}`,
	}}
	sc := newHeuristicScanner(client)

	res := sc.Scan(context.Background(), page)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 1, res.Count)
	assert.False(t, res.NeedsConfiguration())

	require.Len(t, page.rendered, 1)
	assert.Equal(t, overlay.Ad{Selector: "#top-banner", Description: "Shoe sale banner"}, page.rendered[0])
	assert.Equal(t, 1, page.clears, "stale overlays cleared before rendering")
}

// Back-to-back scans each start with their own overlay sweep; the second
// clear on an already-swept page succeeds like the first.
func TestScanTwiceClearsBeforeEachRender(t *testing.T) {
	page := &fakePage{
		html:  `<html><body><div id="top-banner" class="ad">x</div></body></html>`,
		boxes: map[string]Box{"#top-banner": visibleBox()},
	}
	client := &fakeClient{replies: map[string]string{
		"top-banner": `{"isAd": true, "description": "banner"}`,
	}}
	sc := newHeuristicScanner(client)

	first := sc.Scan(context.Background(), page)
	second := sc.Scan(context.Background(), page)
	require.Equal(t, StatusSuccess, first.Status, first.Message)
	require.Equal(t, StatusSuccess, second.Status, second.Message)
	assert.Equal(t, 2, page.clears)
}

// A missing credential refuses the scan up front: no snapshot, no AI calls,
// and the result tells the caller to open configuration.
func TestScanWithoutCredential(t *testing.T) {
	page := &fakePage{html: `<body><div class="ad"></div></body>`}
	client := &fakeClient{}
	pipeline := classify.NewPipeline(client, 2, nil)
	sc := New(&HeuristicStrategy{Scanner: detect.NewScanner(detect.Config{})}, pipeline, noCredential, nil)

	res := sc.Scan(context.Background(), page)
	assert.Equal(t, StatusError, res.Status)
	assert.True(t, res.NeedsConfiguration())
	assert.Zero(t, client.callCount())
	assert.Zero(t, page.snapshots)
}

// One confirmation failing at transport excludes that candidate only; the
// rest render normally.
func TestScanPartialConfirmationFailure(t *testing.T) {
	page := &fakePage{
		html: `<html><body>
			<div id="slot-a" class="ad"><span>AAA</span></div>
			<div id="slot-b" class="ad"><span>BBB</span></div>
			<div id="slot-c" class="ad"><span>CCC</span></div>
		</body></html>`,
		boxes: map[string]Box{
			"#slot-a": visibleBox(),
			"#slot-b": visibleBox(),
			"#slot-c": visibleBox(),
		},
	}
	client := &fakeClient{
		replies: map[string]string{
			"AAA": `{"isAd": true, "description": "promo A"}`,
			"CCC": `{"isAd": true, "description": "promo C"}`,
		},
		errOn: "BBB",
	}
	sc := newHeuristicScanner(client)

	res := sc.Scan(context.Background(), page)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Equal(t, 2, res.Count)

	selectors := make([]string, len(page.rendered))
	for i, ad := range page.rendered {
		selectors[i] = ad.Selector
	}
	assert.ElementsMatch(t, []string{"#slot-a", "#slot-c"}, selectors)
}

// A page with no candidates succeeds with zero overlays and never touches
// the classifier.
func TestScanZeroCandidates(t *testing.T) {
	page := &fakePage{html: `<html><body><article><p>just text</p></article></body></html>`}
	client := &fakeClient{}
	sc := newHeuristicScanner(client)

	res := sc.Scan(context.Background(), page)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Zero(t, res.Count)
	assert.Zero(t, client.callCount())
	assert.Empty(t, page.rendered)
	assert.Equal(t, 1, page.clears)
}

// Candidates confirmed as non-ads short-circuit before rendering.
func TestScanAllCandidatesRejected(t *testing.T) {
	page := &fakePage{
		html:  `<html><body><div id="promo-box" class="ad">newsletter</div></body></html>`,
		boxes: map[string]Box{"#promo-box": visibleBox()},
	}
	client := &fakeClient{} // default reply: not an ad
	sc := newHeuristicScanner(client)

	res := sc.Scan(context.Background(), page)
	require.Equal(t, StatusSuccess, res.Status, res.Message)
	assert.Zero(t, res.Count)
	assert.Empty(t, page.rendered)
}

func TestScanDiscoveryFailure(t *testing.T) {
	page := &fakePage{htmlErr: errors.New("target crashed")}
	sc := newHeuristicScanner(&fakeClient{})

	res := sc.Scan(context.Background(), page)
	assert.Equal(t, StatusError, res.Status)
	assert.False(t, res.NeedsConfiguration())
	assert.Contains(t, res.Message, "discovery failed")
}

func TestScanRenderFailure(t *testing.T) {
	page := &fakePage{
		html:      `<html><body><div id="x-ad" class="ad">z</div></body></html>`,
		boxes:     map[string]Box{"#x-ad": visibleBox()},
		renderErr: errors.New("target closed"),
	}
	client := &fakeClient{replies: map[string]string{
		"x-ad": `{"isAd": true, "description": "d"}`,
	}}
	sc := newHeuristicScanner(client)

	res := sc.Scan(context.Background(), page)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Message, "render failed")
}

func TestHeuristicStrategyLayoutFilter(t *testing.T) {
	page := &fakePage{
		html: `<html><body>
			<div id="big-ad" class="ad">a</div>
			<div id="tiny-ad" class="ad">b</div>
			<div id="hidden-ad" class="ad">c</div>
			<div id="gone-ad" class="ad">d</div>
		</body></html>`,
		boxes: map[string]Box{
			"#big-ad":    {Width: 728, Height: 90, Visible: true},
			"#tiny-ad":   {Width: 1, Height: 1, Visible: true},
			"#hidden-ad": {Width: 300, Height: 250, Visible: false},
			// #gone-ad absent: selector did not resolve at probe time.
		},
	}
	strategy := &HeuristicStrategy{Scanner: detect.NewScanner(detect.Config{})}

	got, err := strategy.Discover(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "#big-ad", got[0].Selector)
}

// A failed layout probe keeps the whole candidate set instead of dropping it.
func TestHeuristicStrategyLayoutProbeFailure(t *testing.T) {
	page := &fakePage{
		html:      `<html><body><div id="an-ad" class="ad">x</div></body></html>`,
		layoutErr: errors.New("evaluate failed"),
	}
	strategy := &HeuristicStrategy{Scanner: detect.NewScanner(detect.Config{})}

	got, err := strategy.Discover(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "#an-ad", got[0].Selector)
}

func TestSkeletonStrategy(t *testing.T) {
	page := &fakePage{
		html: `<html><head><script>tracker()</script></head><body><div id="sky-ad"></div></body></html>`,
		markupBySelector: map[string]string{
			"#sky-ad": `<div id="sky-ad">creative</div>`,
			// "#phantom" intentionally absent.
		},
	}
	client := &fakeClient{replies: map[string]string{
		"Page skeleton": `{"selectors": ["#sky-ad", "#phantom"]}`,
	}}
	strategy := &SkeletonStrategy{Pipeline: classify.NewPipeline(client, 1, nil)}

	got, err := strategy.Discover(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "#sky-ad", got[0].Selector)
	assert.Contains(t, got[0].Markup, "creative")
}

func TestFullPageStrategyDegradesOnDiscoveryFailure(t *testing.T) {
	page := &fakePage{html: `<html><body><div id="z"></div></body></html>`}
	client := &fakeClient{errOn: "Page skeleton"} // discovery prompt fails
	strategy := &FullPageStrategy{Pipeline: classify.NewPipeline(client, 1, nil)}

	got, err := strategy.Discover(context.Background(), page)
	require.NoError(t, err)
	assert.Empty(t, got)
}
