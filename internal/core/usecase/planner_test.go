package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

func TestExtractQuestionFacts(t *testing.T) {
	facts := extractQuestionFacts("How did iPhone revenue change from 2023 to 2022? And 2023 again.")
	if len(facts.years) != 2 || facts.years[0] != "2022" || facts.years[1] != "2023" {
		t.Fatalf("years = %v", facts.years)
	}
	if facts.segmentTerm != "iphone" {
		t.Fatalf("segmentTerm = %q", facts.segmentTerm)
	}
	if !strings.Contains(facts.lower, "revenue") {
		t.Fatalf("lower not populated: %q", facts.lower)
	}
}

func TestExtractSegmentTermIgnoresPlainWords(t *testing.T) {
	if got := extractQuestionFacts("What was total revenue in 2023?").segmentTerm; got != "" {
		t.Fatalf("segmentTerm = %q, want empty", got)
	}
	if got := extractQuestionFacts("Compare MacBook and iPad sales").segmentTerm; got != "macbook" {
		t.Fatalf("segmentTerm = %q, want macbook", got)
	}
}

func TestBuildYoYQueryNeedsTwoYears(t *testing.T) {
	schema := segmentsSchema("aapl_segments")
	if _, _, ok := buildYoYQuery(schema, questionFacts{years: []string{"2023"}}); ok {
		t.Fatalf("one year should not build a YoY query")
	}
}

func TestBuildYoYQueryShape(t *testing.T) {
	schema := segmentsSchema("aapl_segments")
	facts := questionFacts{years: []string{"2022", "2023"}, segmentTerm: "iphone"}

	sql, rationale, ok := buildYoYQuery(schema, facts)
	if !ok {
		t.Fatalf("expected a query")
	}
	for _, want := range []string{
		`"aapl_segments"`,
		"rev_2022",
		"rev_2023",
		"yoy_delta",
		"yoy_pct",
		"LIKE '%iphone%'",
		"WHEN rev_2022 = 0 THEN NULL",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("sql missing %q:\n%s", want, sql)
		}
	}
	if !strings.Contains(rationale, "2022") || !strings.Contains(rationale, "2023") {
		t.Fatalf("rationale = %q", rationale)
	}
}

func TestBuildSegmentRevenueQueryYearFilter(t *testing.T) {
	schema := segmentsSchema("aapl_segments")

	sql, _, ok := buildSegmentRevenueQuery(schema, questionFacts{years: []string{"2023"}})
	if !ok {
		t.Fatalf("expected a query")
	}
	if !strings.Contains(sql, "IN ('2023')") {
		t.Fatalf("missing year filter:\n%s", sql)
	}

	sql, _, ok = buildSegmentRevenueQuery(schema, questionFacts{})
	if !ok || strings.Contains(sql, "WHERE") {
		t.Fatalf("no years should mean no filter:\n%s", sql)
	}
}

func TestBuildQueriesRequireSegmentColumns(t *testing.T) {
	plain := domain.TableSchema{
		Name:    "aapl_balance",
		Columns: []domain.Column{{Name: "year"}, {Name: "assets"}},
	}
	if _, _, ok := buildSegmentRevenueQuery(plain, questionFacts{}); ok {
		t.Fatalf("table without segment columns should not build")
	}
	if _, _, ok := buildTopSegmentQuery(plain, questionFacts{}); ok {
		t.Fatalf("table without segment columns should not build")
	}
}

func TestPlannerIntentMatchesFirst(t *testing.T) {
	store := &fakeTableStore{schemas: []domain.TableSchema{segmentsSchema("aapl_segments")}}
	planner := NewPlanner(store, nil, "", false, 3, 80, 50, nil)

	plans, citations, err := planner.PlanAndExecute(context.Background(), "How did iPhone revenue change from 2022 to 2023?", "AAPL")
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "S1" || plans[0].Source != domain.PlanIntent {
		t.Fatalf("unexpected plans %+v", plans)
	}
	if len(citations) != 1 || citations[0].Kind != domain.CitationQuery || citations[0].Errored {
		t.Fatalf("unexpected citations %+v", citations)
	}
	if citations[0].SQL != plans[0].SQL {
		t.Fatalf("citation SQL should match the plan verbatim")
	}
}

func TestPlannerEmptyCatalogIsPlanningFailure(t *testing.T) {
	store := &fakeTableStore{}
	planner := NewPlanner(store, nil, "", false, 3, 80, 50, nil)

	_, _, err := planner.PlanAndExecute(context.Background(), "revenue in 2023?", "AAPL")
	if !domain.IsKind(err, domain.ErrPlanningFailure) {
		t.Fatalf("expected ErrPlanningFailure, got %v", err)
	}
}

func TestPlannerCatalogErrorIsTemporary(t *testing.T) {
	store := &fakeTableStore{schemasErr: context.DeadlineExceeded}
	planner := NewPlanner(store, nil, "", false, 3, 80, 50, nil)

	_, _, err := planner.PlanAndExecute(context.Background(), "revenue?", "")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestPlannerTickerHintFallsBackToFullCatalog(t *testing.T) {
	store := &fakeTableStore{schemas: []domain.TableSchema{segmentsSchema("msft_segments")}}
	planner := NewPlanner(store, nil, "", false, 3, 80, 50, nil)

	plans, _, err := planner.PlanAndExecute(context.Background(), "Segment revenue by year?", "AAPL")
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(plans) != 1 || !strings.Contains(plans[0].SQL, "msft_segments") {
		t.Fatalf("expected fallback to full catalog, got %+v", plans)
	}
}

func TestPlannerModelPlansFilteredByCatalog(t *testing.T) {
	store := &fakeTableStore{schemas: []domain.TableSchema{segmentsSchema("aapl_segments")}}
	chat := &fakeChat{responses: map[string]string{
		"SQL planning assistant": `[
			{"id":"S1","sql":"SELECT * FROM aapl_segments LIMIT 5","rationale":"scan"},
			{"id":"S2","sql":"SELECT * FROM secret_table","rationale":"bad"}
		]`,
	}}
	planner := NewPlanner(store, chat, "test-model", true, 3, 80, 50, nil)

	// A question no intent matches, forcing the model pass.
	plans, citations, err := planner.PlanAndExecute(context.Background(), "What does the data say about Apple?", "AAPL")
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(plans) != 1 || plans[0].Source != domain.PlanModel {
		t.Fatalf("expected one whitelisted model plan, got %+v", plans)
	}
	if len(citations) != 1 {
		t.Fatalf("expected one citation, got %d", len(citations))
	}
}

func TestPlannerFallbackWhenAllErrored(t *testing.T) {
	store := &fakeTableStore{schemas: []domain.TableSchema{segmentsSchema("aapl_segments")}}
	chat := &fakeChat{responses: map[string]string{
		"SQL planning assistant": `[{"id":"S1","sql":"SELECT broken FROM aapl_segments","rationale":"bad column"}]`,
	}}
	store.queryErr = domain.WrapError(domain.ErrExecutionFailed, "sql query", context.DeadlineExceeded)
	planner := NewPlanner(store, chat, "test-model", true, 3, 80, 50, nil)

	plans, citations, err := planner.PlanAndExecute(context.Background(), "Tell me about Apple", "AAPL")
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	// With the store still failing, the original errored plan is kept and
	// its citation carries the error.
	if len(plans) != 1 || len(citations) != 1 {
		t.Fatalf("plans=%d citations=%d", len(plans), len(citations))
	}
	if !citations[0].Errored || citations[0].Error == "" {
		t.Fatalf("expected errored citation, got %+v", citations[0])
	}
}

func TestPlannerFallbackRecoversWhenFallbackRuns(t *testing.T) {
	store := &recoveringStore{
		fakeTableStore: fakeTableStore{schemas: []domain.TableSchema{segmentsSchema("aapl_segments")}},
		failFirst:      1,
	}
	chat := &fakeChat{responses: map[string]string{
		"SQL planning assistant": `[{"id":"S1","sql":"SELECT broken FROM aapl_segments","rationale":"bad"}]`,
	}}
	planner := NewPlanner(store, chat, "test-model", true, 3, 80, 50, nil)

	plans, citations, err := planner.PlanAndExecute(context.Background(), "Tell me about Apple", "AAPL")
	if err != nil {
		t.Fatalf("PlanAndExecute() error = %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "S_auto1" || plans[0].Source != domain.PlanFallback {
		t.Fatalf("expected the fallback plan, got %+v", plans)
	}
	if citations[0].Errored {
		t.Fatalf("fallback citation should not be errored: %+v", citations[0])
	}
}

// recoveringStore fails the first N queries, then succeeds.
type recoveringStore struct {
	fakeTableStore
	failFirst int
	calls     int
}

func (s *recoveringStore) Query(ctx context.Context, sql string) (domain.ResultSet, error) {
	s.calls++
	if s.calls <= s.failFirst {
		return domain.ResultSet{}, domain.WrapError(domain.ErrExecutionFailed, "sql query", context.DeadlineExceeded)
	}
	return s.fakeTableStore.Query(ctx, sql)
}

func TestTablesForTicker(t *testing.T) {
	catalog := []domain.TableSchema{
		segmentsSchema("aapl_segments"),
		segmentsSchema("msft_segments"),
	}
	matched := tablesForTicker(catalog, "MSFT")
	if len(matched) != 1 || matched[0].Name != "msft_segments" {
		t.Fatalf("matched = %+v", matched)
	}
	if got := tablesForTicker(catalog, ""); len(got) != 2 {
		t.Fatalf("empty hint should keep catalog, got %d", len(got))
	}
	if got := tablesForTicker(catalog, "TSLA"); len(got) != 2 {
		t.Fatalf("no match should keep catalog, got %d", len(got))
	}
}

func TestCSVPreviewCapsRows(t *testing.T) {
	result := domain.ResultSet{
		Columns: []string{"year", "revenue"},
		Rows:    [][]string{{"2022", "1"}, {"2023", "2"}, {"2024", "3"}},
	}
	preview := csvPreview(result, 2)
	lines := strings.Split(strings.TrimSpace(preview), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines:\n%s", len(lines), preview)
	}
	if lines[0] != "year,revenue" {
		t.Fatalf("header = %q", lines[0])
	}
}
