package sourcecheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ppiankov/verity/internal/model"
	"github.com/ppiankov/verity/internal/util"
)

// ErrNoSources is returned by Verify when the text cites no URL
var ErrNoSources = errors.New("no cited sources")

const blockedByRobots = "robots.txt"

// Options configures a Checker
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBodyBytes  int64
	RespectRobots bool
	Workers       int
	HTTPProxy     string
	HTTPSProxy    string
	NoProxy       string
	Authority     *model.AuthorityConfig
	Logger        *slog.Logger
}

// OptionsFromConfig maps the application config onto checker options
func OptionsFromConfig(cfg *model.Config, logger *slog.Logger) Options {
	return Options{
		Timeout:       time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		UserAgent:     cfg.HTTP.UserAgent,
		MaxBodyBytes:  cfg.HTTP.MaxBodyBytes,
		RespectRobots: cfg.HTTP.RespectRobots,
		Workers:       cfg.Concurrency.LinkWorkers,
		HTTPProxy:     cfg.HTTP.HTTPProxy,
		HTTPSProxy:    cfg.HTTP.HTTPSProxy,
		NoProxy:       cfg.HTTP.NoProxy,
		Authority:     &cfg.Authority,
		Logger:        logger,
	}
}

// Checker fetches the sources a thought cites and looks for the claim in them
type Checker struct {
	fetcher   *Fetcher
	authority *AuthorityClassifier
	robots    *util.RobotsChecker
	workers   int
	logger    *slog.Logger
}

// New creates a checker
func New(opts Options) *Checker {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = 5
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	c := &Checker{
		fetcher:   NewFetcher(opts.Timeout, opts.UserAgent, opts.MaxBodyBytes, opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy),
		authority: NewAuthorityClassifier(opts.Authority),
		workers:   opts.Workers,
		logger:    opts.Logger,
	}
	if opts.RespectRobots {
		c.robots = util.NewRobotsChecker(opts.UserAgent, opts.Timeout, opts.Logger)
	}
	return c
}

// Check extracts the URLs cited in text and checks each of them
func (c *Checker) Check(ctx context.Context, text string) ([]model.SourceCheck, error) {
	sources := ExtractSources(text)
	if len(sources) == 0 {
		return []model.SourceCheck{}, nil
	}
	return c.CheckSources(ctx, sources, Keywords(urlPattern.ReplaceAllString(text, ""))), nil
}

// CheckSources checks sources concurrently. Each source is matched against
// the keywords of its anchor sentence, or fallback when the anchor has none.
// Results keep the order of sources.
func (c *Checker) CheckSources(ctx context.Context, sources []model.CitedSource, fallback []string) []model.SourceCheck {
	results := make([]model.SourceCheck, len(sources))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, c.workers)

	for i, src := range sources {
		wg.Add(1)
		go func(idx int, s model.CitedSource) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = model.SourceCheck{URL: s.URL, Error: "context cancelled"}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			keywords := Keywords(s.Anchor)
			if len(keywords) == 0 {
				keywords = fallback
			}
			results[idx] = c.checkOne(ctx, s, keywords)
		}(i, src)
	}

	wg.Wait()
	return results
}

func (c *Checker) checkOne(ctx context.Context, src model.CitedSource, keywords []string) model.SourceCheck {
	result := model.SourceCheck{
		URL:       src.URL,
		Authority: c.authority.Classify(src.URL),
	}

	if c.robots != nil && !c.robots.IsAllowed(ctx, src.URL) {
		c.logger.Debug("source blocked by robots.txt", "url", src.URL)
		result.BlockedBy = blockedByRobots
		return result
	}

	page, err := c.fetcher.FetchWithRetry(ctx, src.URL)
	if err != nil {
		result.Error = err.Error()
		var se *StatusError
		switch {
		case errors.As(err, &se):
			result.StatusCode = se.Code
			result.IsDead = se.Code == 404 || se.Code == 410
		case ctx.Err() == nil:
			// DNS failures and refused connections
			result.IsDead = true
		}
		c.logger.Debug("source fetch failed", "url", src.URL, "error", err)
		return result
	}

	result.IsAccessible = true
	result.StatusCode = page.StatusCode
	result.LastModified = page.LastModified
	if page.FinalURL != src.URL {
		result.RedirectURL = page.FinalURL
	}
	result.Matched, result.Missing = MatchKeywords(page.Text, keywords)
	return result
}

// Verify runs the check and folds it into a tool result: any supporting
// source makes the claim true, then partial, then absence; only dead
// links make it false.
func (c *Checker) Verify(ctx context.Context, text string) (*model.ToolResult, error) {
	checks, err := c.Check(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(checks) == 0 {
		return nil, ErrNoSources
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	validity := Summarize(checks)
	result := &model.ToolResult{
		IsValid: model.ValidityPtr(validity),
		Details: describe(checks),
	}
	for _, ch := range checks {
		switch ch.Support() {
		case model.ValidityTrue, model.ValidityPartial:
			result.Sources = append(result.Sources, ch.URL)
		}
	}
	return result, nil
}

// Summarize combines per-source support into one validity
func Summarize(checks []model.SourceCheck) model.Validity {
	var partial, absence, dead, unknown int
	for _, ch := range checks {
		switch ch.Support() {
		case model.ValidityTrue:
			return model.ValidityTrue
		case model.ValidityPartial:
			partial++
		case model.ValidityAbsence:
			absence++
		case model.ValidityFalse:
			dead++
		default:
			unknown++
		}
	}
	switch {
	case partial > 0:
		return model.ValidityPartial
	case absence > 0:
		return model.ValidityAbsence
	case dead > 0 && unknown == 0:
		return model.ValidityFalse
	default:
		return model.ValidityUnknown
	}
}

func describe(checks []model.SourceCheck) string {
	var accessible, dead, blocked int
	var found []string
	for _, ch := range checks {
		switch {
		case ch.IsAccessible:
			accessible++
		case ch.IsDead:
			dead++
		case ch.BlockedBy != "":
			blocked++
		}
		found = append(found, ch.Matched...)
	}
	line := fmt.Sprintf("%d source(s) consultée(s): %d accessible(s), %d morte(s), %d bloquée(s)",
		len(checks), accessible, dead, blocked)
	if len(found) > 0 {
		line += "; termes retrouvés: " + strings.Join(found, ", ")
	}
	return line
}
