// Package domainlist runs the domain deny list over message events.
package domainlist

import (
	"fmt"

	"github.com/haukened/rr-filter/internal/filter/common/log"
	"github.com/haukened/rr-filter/internal/filter/domain"
)

// Name identifies the domain list in logs and dispatch results.
const Name = "domain"

// Controller orchestrates extraction, evaluation and resolution for the deny
// partition of a list. It does not subscribe itself to any event source.
type Controller struct {
	source    ListSource
	extractor Extractor
	evaluator Evaluator
	resolver  Resolver
	logger    log.Logger
}

// Options carries the Controller's collaborators.
type Options struct {
	Source    ListSource
	Extractor Extractor
	Evaluator Evaluator
	Resolver  Resolver
	Logger    log.Logger
}

// New constructs a Controller from opts.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Controller{
		source:    opts.Source,
		extractor: opts.Extractor,
		evaluator: opts.Evaluator,
		resolver:  opts.Resolver,
		logger:    logger,
	}
}

// Name returns the list name.
func (c *Controller) Name() string { return Name }

// Handle returns the actions to take for ctx and the message to relay to
// moderators. Empty content is a no-match without extraction. A domain that
// triggered a rule is copied to ctx.NotificationDomain.
func (c *Controller) Handle(ctx *domain.FilterContext) (domain.Verdict, error) {
	if ctx.Content == "" {
		return domain.EmptyVerdict(), nil
	}

	targets := c.extractor.Extract(ctx.Content)
	tctx := ctx.WithTargets(targets)

	// one view per event so a concurrent reload is never observed halfway
	deny := c.source.Partition(domain.ListDeny)
	defaults := deny.Defaults()

	triggers, err := c.evaluator.Evaluate(tctx, deny, defaults.Validations)
	if err != nil {
		return domain.EmptyVerdict(), fmt.Errorf("%s list: %w", Name, err)
	}
	ctx.NotificationDomain = tctx.NotificationDomain

	verdict := c.resolver.Resolve(triggers, defaults)
	if verdict.Triggered() {
		ruleIDs := make([]int, len(triggers))
		for i, r := range triggers {
			ruleIDs[i] = r.ID
		}
		c.logger.Debug(map[string]any{
			"list":                Name,
			"event":               ctx.Event.String(),
			"targets":             targets.Sorted(),
			"rule_ids":            ruleIDs,
			"notification_domain": ctx.NotificationDomain,
		}, "list_triggered")
	}
	return verdict, nil
}
