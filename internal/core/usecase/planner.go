package usecase

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// Planner turns a question into read-only analytical queries and executes
// them. Recognized intents are tried first in a fixed order; when none
// match, an optional model planning pass runs; a synthesized fallback
// query covers the rest. Execution failures become errored citations so
// the audit trail survives, and the pipeline only sees ErrPlanningFailure
// when no usable table exists at all.
type Planner struct {
	store            ports.TableStore
	chat             ports.ChatModel
	model            string
	useModel         bool
	maxPlans         int
	catalogMaxTables int
	previewMaxRows   int
	log              *slog.Logger
}

func NewPlanner(
	store ports.TableStore,
	chat ports.ChatModel,
	model string,
	useModel bool,
	maxPlans, catalogMaxTables, previewMaxRows int,
	log *slog.Logger,
) *Planner {
	if maxPlans <= 0 {
		maxPlans = 3
	}
	if catalogMaxTables <= 0 {
		catalogMaxTables = 80
	}
	if previewMaxRows <= 0 {
		previewMaxRows = 50
	}
	if log == nil {
		log = slog.Default()
	}
	return &Planner{
		store:            store,
		chat:             chat,
		model:            model,
		useModel:         useModel,
		maxPlans:         maxPlans,
		catalogMaxTables: catalogMaxTables,
		previewMaxRows:   previewMaxRows,
		log:              log,
	}
}

func (p *Planner) PlanAndExecute(ctx context.Context, question, tickerHint string) ([]domain.QueryPlan, []domain.Citation, error) {
	catalog, err := p.store.TableSummaries(ctx, tickerHint)
	if err != nil {
		return nil, nil, domain.WrapError(domain.ErrTemporary, "discover table catalog", err)
	}
	if len(catalog) == 0 && strings.TrimSpace(tickerHint) != "" {
		catalog, err = p.store.TableSummaries(ctx, "")
		if err != nil {
			return nil, nil, domain.WrapError(domain.ErrTemporary, "discover table catalog", err)
		}
	}
	if len(catalog) == 0 {
		return nil, nil, fmt.Errorf("no analytical tables available: %w", domain.ErrPlanningFailure)
	}

	facts := extractQuestionFacts(question)
	tables := tablesForTicker(catalog, tickerHint)

	plans := p.intentPlans(facts, tables)
	if len(plans) == 0 && p.useModel && p.chat != nil {
		plans = p.modelPlans(ctx, question, catalog)
	}

	citations := p.execute(ctx, plans)

	if allErrored(citations) {
		if fallback, ok := p.fallbackPlan(tables); ok {
			fallbackCits := p.execute(ctx, []domain.QueryPlan{fallback})
			if !allErrored(fallbackCits) {
				plans = []domain.QueryPlan{fallback}
				citations = fallbackCits
			}
		}
	}

	if len(plans) == 0 {
		return nil, nil, fmt.Errorf("no executable query for the question: %w", domain.ErrPlanningFailure)
	}
	return plans, citations, nil
}

// questionFacts are the deterministic signals intents match against.
type questionFacts struct {
	lower       string
	years       []string
	segmentTerm string
}

var yearPattern = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)

func extractQuestionFacts(question string) questionFacts {
	facts := questionFacts{lower: strings.ToLower(question)}

	seen := map[string]struct{}{}
	for _, y := range yearPattern.FindAllString(question, -1) {
		if _, ok := seen[y]; ok {
			continue
		}
		seen[y] = struct{}{}
		facts.years = append(facts.years, y)
	}
	sort.Strings(facts.years)

	facts.segmentTerm = extractSegmentTerm(question)
	return facts
}

// extractSegmentTerm picks a product/segment name out of the question: a
// token with an interior capital ("iPhone", "MacBook"). Returned
// lowercased and reduced to alphanumerics so it is safe to inline in a
// LIKE pattern.
func extractSegmentTerm(question string) string {
	for _, field := range strings.Fields(question) {
		field = strings.Trim(field, `"'.,;:!?()`)
		hasLower := false
		interiorUpper := false
		for i, r := range field {
			switch {
			case r >= 'a' && r <= 'z':
				hasLower = true
			case r >= 'A' && r <= 'Z' && i > 0:
				interiorUpper = true
			}
		}
		if hasLower && interiorUpper {
			return strings.Join(splitAlphaNumLower(field), "")
		}
	}
	return ""
}

type tableIntent struct {
	name    string
	matches func(facts questionFacts) bool
	build   func(t domain.TableSchema, facts questionFacts) (sql, rationale string, ok bool)
}

// Ordered; the first intent that matches the question and finds a capable
// table wins.
var intents = []tableIntent{
	{
		name: "segment_yoy_change",
		matches: func(f questionFacts) bool {
			return len(f.years) >= 2 && containsAny(f.lower,
				"year-over-year", "year over year", "yoy", "growth", "grew",
				"change", "increase", "decrease", "decline")
		},
		build: buildYoYQuery,
	},
	{
		name: "segment_revenue_by_year",
		matches: func(f questionFacts) bool {
			return strings.Contains(f.lower, "revenue") && (len(f.years) > 0 ||
				containsAny(f.lower, "segment", "by year", "per year", "each year", "annual"))
		},
		build: buildSegmentRevenueQuery,
	},
	{
		name: "top_segment_by_metric",
		matches: func(f questionFacts) bool {
			return containsAny(f.lower, "top", "largest", "biggest", "highest") &&
				containsAny(f.lower, "segment", "revenue", "product")
		},
		build: buildTopSegmentQuery,
	},
}

func (p *Planner) intentPlans(facts questionFacts, tables []domain.TableSchema) []domain.QueryPlan {
	for _, intent := range intents {
		if !intent.matches(facts) {
			continue
		}
		for _, t := range tables {
			sql, rationale, ok := intent.build(t, facts)
			if !ok {
				continue
			}
			return []domain.QueryPlan{{
				ID:        "S1",
				SQL:       sql,
				Rationale: rationale,
				Source:    domain.PlanIntent,
			}}
		}
	}
	return nil
}

// fallbackPlan synthesizes a query guaranteed to run against the ticker's
// default table: the segment revenue aggregation when the table has the
// columns for it, a plain bounded scan otherwise.
func (p *Planner) fallbackPlan(tables []domain.TableSchema) (domain.QueryPlan, bool) {
	for _, t := range tables {
		if sql, rationale, ok := buildSegmentRevenueQuery(t, questionFacts{}); ok {
			return domain.QueryPlan{
				ID:        "S_auto1",
				SQL:       sql,
				Rationale: rationale,
				Source:    domain.PlanFallback,
			}, true
		}
	}
	if len(tables) > 0 {
		t := tables[0]
		return domain.QueryPlan{
			ID:        "S_auto1",
			SQL:       fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(t.Name), p.previewMaxRows),
			Rationale: fmt.Sprintf("bounded scan of default table %s", t.Name),
			Source:    domain.PlanFallback,
		}, true
	}
	return domain.QueryPlan{}, false
}

const sqlPlannerSystem = `You are a SQL planning assistant.

Rules:
- You may ONLY reference the tables explicitly listed under "Valid tables".
- Use the column names exactly as shown.
- Queries must be read-only SELECT statements; never modify data.
- Prefer concise SQL; compute aggregates as needed.
- If no matching table exists, return an empty array [].

Output strictly a JSON array (no code fences, no prose), e.g.:
[
  {"id":"S1","sql":"SELECT ...","rationale":"..."}
]`

func (p *Planner) modelPlans(ctx context.Context, question string, catalog []domain.TableSchema) []domain.QueryPlan {
	var schema strings.Builder
	for i, t := range catalog {
		if i >= p.catalogMaxTables {
			break
		}
		cols := make([]string, 0, len(t.Columns))
		for j, c := range t.Columns {
			if j >= 16 {
				break
			}
			cols = append(cols, c.Name)
		}
		fmt.Fprintf(&schema, "- %s: %s\n", t.Name, strings.Join(cols, ", "))
	}

	user := fmt.Sprintf("Question: %s\n\nValid tables:\n%s", question, schema.String())
	raw, err := p.chat.CompleteJSON(ctx, p.model, sqlPlannerSystem, user)
	if err != nil {
		p.log.Warn("model_planner_skipped", "error", err)
		return nil
	}

	var parsed []struct {
		ID        string `json:"id"`
		SQL       string `json:"sql"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if err := json.Unmarshal([]byte(extractJSONArray(raw)), &parsed); err != nil {
			p.log.Warn("model_planner_unparsable", "error", err)
			return nil
		}
	}

	plans := make([]domain.QueryPlan, 0, len(parsed))
	for _, pl := range parsed {
		if !referencesKnownTable(pl.SQL, catalog) {
			continue
		}
		id := pl.ID
		if id == "" {
			id = fmt.Sprintf("S%d", len(plans)+1)
		}
		plans = append(plans, domain.QueryPlan{
			ID:        id,
			SQL:       pl.SQL,
			Rationale: pl.Rationale,
			Source:    domain.PlanModel,
		})
		if len(plans) == p.maxPlans {
			break
		}
	}
	return plans
}

// execute runs every plan and captures a query citation per plan, errored
// when the statement was rejected or failed. The SQL stays verbatim so a
// human can re-run it.
func (p *Planner) execute(ctx context.Context, plans []domain.QueryPlan) []domain.Citation {
	citations := make([]domain.Citation, 0, len(plans))
	for i, plan := range plans {
		marker := plan.ID
		if marker == "" {
			marker = fmt.Sprintf("S%d", i+1)
		}
		citation := domain.Citation{
			Kind:   domain.CitationQuery,
			Marker: marker,
			SQL:    plan.SQL,
		}

		result, err := p.store.Query(ctx, plan.SQL)
		if err != nil {
			citation.Errored = true
			citation.Error = err.Error()
			p.log.Warn("query_plan_errored", "plan", marker, "error", err)
		} else {
			citation.Preview = csvPreview(result, p.previewMaxRows)
		}
		citations = append(citations, citation)
	}
	return citations
}

func allErrored(citations []domain.Citation) bool {
	for _, c := range citations {
		if !c.Errored {
			return false
		}
	}
	return true
}

func tablesForTicker(catalog []domain.TableSchema, tickerHint string) []domain.TableSchema {
	hint := strings.ToLower(strings.TrimSpace(tickerHint))
	if hint == "" {
		return catalog
	}
	matched := make([]domain.TableSchema, 0, len(catalog))
	for _, t := range catalog {
		if strings.Contains(strings.ToLower(t.Name), hint) {
			matched = append(matched, t)
		}
	}
	if len(matched) == 0 {
		return catalog
	}
	return matched
}

func referencesKnownTable(sql string, catalog []domain.TableSchema) bool {
	lower := strings.ToLower(sql)
	for _, t := range catalog {
		if strings.Contains(lower, strings.ToLower(t.Name)) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func csvPreview(result domain.ResultSet, maxRows int) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	_ = w.Write(result.Columns)
	for i, row := range result.Rows {
		if i >= maxRows {
			break
		}
		_ = w.Write(row)
	}
	w.Flush()
	return b.String()
}
