// Package classify orchestrates the AI classification stages: an optional
// selector-discovery call over a page skeleton, and a mandatory per-candidate
// confirmation call fanned out over the candidate set.
//
// Neither stage retries. Every failure path degrades to the smallest possible
// scope: a failed discovery call means zero candidates, a failed confirmation
// call means that one candidate is excluded. Nothing here can abort a scan.
package classify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adlens/internal/detect"
)

// Result is the classifier's verdict for one candidate. Description is
// non-empty exactly when IsAd is true.
type Result struct {
	IsAd        bool   `json:"isAd"`
	Description string `json:"description"`
}

// safeDefault excludes a candidate without failing anything.
var safeDefault = Result{}

const defaultConcurrency = 4

// Pipeline runs the classification stages against one Client.
type Pipeline struct {
	client      Client
	log         *zap.Logger
	concurrency int
}

// NewPipeline creates a pipeline. A nil logger is replaced with a no-op one.
func NewPipeline(client Client, concurrency int, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pipeline{client: client, log: log, concurrency: concurrency}
}

// DiscoverSelectors runs the discovery stage: one request carrying the
// reduced document, expecting {"selectors": [...]}. Transport failures and
// malformed replies both degrade to an empty selector list.
func (p *Pipeline) DiscoverSelectors(ctx context.Context, skeleton string) []string {
	reply, err := p.client.Complete(ctx, discoveryPrompt(skeleton))
	if err != nil {
		p.log.Warn("discovery call failed, degrading to zero candidates", zap.Error(err))
		return nil
	}
	obj := ExtractObject(reply)
	if obj == "" {
		p.log.Warn("discovery reply contained no JSON object")
		return nil
	}
	var parsed struct {
		Selectors []string `json:"selectors"`
	}
	if err := json.Unmarshal([]byte(obj), &parsed); err != nil {
		p.log.Warn("discovery reply did not match contract", zap.Error(err))
		return nil
	}
	var out []string
	for _, s := range parsed.Selectors {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ConfirmAll fans the confirmation stage out over all candidates and waits
// for the full set. Each request writes its own slot, so results line up with
// candidates by index; a failure in one slot never touches its siblings.
func (p *Pipeline) ConfirmAll(ctx context.Context, candidates []detect.Candidate) []Result {
	results := make([]Result, len(candidates))

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			results[i] = p.confirm(ctx, c.Markup)
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures are safe defaults

	return results
}

// confirm classifies one markup snippet. Any transport failure, fence-wrapped
// garbage, or payload that is not a single object with exactly the expected
// keys resolves to the safe default.
func (p *Pipeline) confirm(ctx context.Context, markup string) Result {
	reply, err := p.client.Complete(ctx, confirmPrompt(markup))
	if err != nil {
		p.log.Warn("confirmation call failed, excluding candidate", zap.Error(err))
		return safeDefault
	}
	return parseConfirmation(reply, p.log)
}

func parseConfirmation(reply string, log *zap.Logger) Result {
	obj := ExtractObject(reply)
	if obj == "" {
		log.Warn("confirmation reply contained no JSON object")
		return safeDefault
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		log.Warn("confirmation reply is not a JSON object", zap.Error(err))
		return safeDefault
	}
	isAdRaw, okAd := raw["isAd"]
	descRaw, okDesc := raw["description"]
	if !okAd || !okDesc || len(raw) != 2 {
		log.Warn("confirmation reply keys did not match contract")
		return safeDefault
	}

	var res Result
	if err := json.Unmarshal(isAdRaw, &res.IsAd); err != nil {
		return safeDefault
	}
	if err := json.Unmarshal(descRaw, &res.Description); err != nil {
		return safeDefault
	}

	// Contract: description non-empty iff isAd. A "yes" without a
	// description is unusable downstream, so it falls back too.
	if res.IsAd && res.Description == "" {
		return safeDefault
	}
	if !res.IsAd {
		res.Description = ""
	}
	return res
}
