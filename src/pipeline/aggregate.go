package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"prbuild-agent/src/logger"
	"prbuild-agent/src/provider"
	"prbuild-agent/src/ranking"
	"prbuild-agent/src/teamcity"
)

// ErrorKind is the whole-panel failure an aggregation collapses into.
type ErrorKind int

const (
	ConnectionFailed ErrorKind = iota
	Unauthorized
)

func (k ErrorKind) String() string {
	if k == Unauthorized {
		return "unauthorized"
	}
	return "connection failed"
}

// AggregationError is returned when any single definition could not be
// queried. The panel never shows partial results.
type AggregationError struct {
	Kind        ErrorKind
	BuildTypeID string
	Err         error
}

func (e *AggregationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.BuildTypeID, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.BuildTypeID)
}

func (e *AggregationError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if e.Kind == Unauthorized {
		return provider.ErrUnauthorized
	}
	return provider.ErrTransport
}

// RenderRow is one build definition as shown in the panel.
type RenderRow struct {
	Definition   provider.BuildDefinition
	Status       ranking.Status
	Stale        bool
	WebURL       string
	BuildNumber  string
	LastFinished *time.Time

	// Problem is set when the server answered with a build the classifier
	// does not understand.
	Problem error
}

// FinishedLabel formats LastFinished for display, or "" when unknown.
func (r RenderRow) FinishedLabel() string {
	if r.LastFinished == nil {
		return ""
	}
	return r.LastFinished.Format(DisplayTimeLayout)
}

// DisplayTimeLayout is how finish times are shown, e.g. "31 Jan 24 15:45".
const DisplayTimeLayout = "02 Jan 06 15:04"

// Group is a run of rows sharing a group name. Ungrouped rows form a final
// group with an empty name.
type Group struct {
	Name string
	Rows []RenderRow
}

// Panel is the render model for one change request.
type Panel struct {
	ChangeRef string
	Rows      []RenderRow
	Groups    []Group
}

// Problems returns every per-row classification failure.
func (p *Panel) Problems() []error {
	var errs []error
	for _, row := range p.Rows {
		if row.Problem != nil {
			errs = append(errs, fmt.Errorf("%s: %w", row.Definition.BuildTypeID, row.Problem))
		}
	}
	return errs
}

// Aggregator queries every definition of a repository and builds the panel.
type Aggregator struct {
	provider provider.Provider
	logger   logger.Logger
}

// NewAggregator creates an aggregator over p.
func NewAggregator(p provider.Provider, log logger.Logger) *Aggregator {
	return &Aggregator{provider: p, logger: log}
}

// Aggregate queries all definitions concurrently and waits for every query to
// settle before building any row. A transport failure anywhere wins over an
// authorization failure anywhere.
func (a *Aggregator) Aggregate(ctx context.Context, defs []provider.BuildDefinition, changeRef string) (*Panel, error) {
	results := make([]*provider.QueryResult, len(defs))
	failures := make([]error, len(defs))

	var g errgroup.Group
	for i, def := range defs {
		g.Go(func() error {
			res, err := a.provider.QueryBuild(ctx, def, changeRef)
			if err == nil && res == nil {
				err = fmt.Errorf("%w: empty result", provider.ErrTransport)
			}
			if err != nil {
				failures[i] = err
				return err
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range failures {
		if err != nil {
			a.logger.Error("[Aggregator] %s query failed: %v", defs[i].BuildTypeID, err)
			return nil, &AggregationError{Kind: ConnectionFailed, BuildTypeID: defs[i].BuildTypeID, Err: err}
		}
	}
	for i, res := range results {
		if !res.Authorized {
			a.logger.Warn("[Aggregator] %s: not authorized", defs[i].BuildTypeID)
			return nil, &AggregationError{Kind: Unauthorized, BuildTypeID: defs[i].BuildTypeID}
		}
	}

	return a.buildPanel(defs, results, changeRef), nil
}

func (a *Aggregator) buildPanel(defs []provider.BuildDefinition, results []*provider.QueryResult, changeRef string) *Panel {
	byID := make(map[string]*provider.QueryResult, len(results))
	for _, res := range results {
		if _, dup := byID[res.Definition.BuildTypeID]; !dup {
			byID[res.Definition.BuildTypeID] = res
		}
	}

	linker, _ := a.provider.(provider.Linker)

	panel := &Panel{ChangeRef: changeRef}
	for _, i := range ranking.SortIndex(defs) {
		res := results[i]
		row := RenderRow{Definition: defs[i]}

		status, err := ranking.Classify(res.Payload)
		row.Status = status
		if err != nil {
			a.logger.Warn("[Aggregator] %s: %v", defs[i].BuildTypeID, err)
			row.Problem = err
		}

		if dep := defs[i].DependsOn; dep != "" {
			row.Stale = ranking.ResolveStaleness(res, byID[dep])
		}

		if build, ok := res.Payload.Latest(); ok {
			row.WebURL = build.WebURL
			row.BuildNumber = build.Number
			if build.FinishOnAgentDate != "" {
				if ts, err := teamcity.ParseTimestamp(build.FinishOnAgentDate); err == nil {
					row.LastFinished = &ts
				} else {
					a.logger.Debug("[Aggregator] %s: %v", defs[i].BuildTypeID, err)
				}
			}
		}
		if row.WebURL == "" && linker != nil {
			row.WebURL = linker.DefinitionURL(defs[i].BuildTypeID)
		}

		panel.Rows = append(panel.Rows, row)
	}

	panel.Groups = groupRows(panel.Rows)
	return panel
}

func groupRows(rows []RenderRow) []Group {
	if len(rows) == 0 {
		return nil
	}
	defs := make([]provider.BuildDefinition, len(rows))
	for i, r := range rows {
		defs[i] = r.Definition
	}
	starts := ranking.Partition(defs)

	groups := make([]Group, 0, len(starts))
	for n, start := range starts {
		end := len(rows)
		if n+1 < len(starts) {
			end = starts[n+1]
		}
		groups = append(groups, Group{Name: rows[start].Definition.Group, Rows: rows[start:end]})
	}
	return groups
}

// IsUnauthorized reports whether err is a whole-panel authorization failure.
func IsUnauthorized(err error) bool {
	var aggErr *AggregationError
	return errors.As(err, &aggErr) && aggErr.Kind == Unauthorized
}
