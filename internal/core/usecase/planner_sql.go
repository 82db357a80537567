package usecase

import (
	"fmt"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
)

// segmentColumns resolves the Year/Segment/Revenue column triple a
// segment-analytics query needs, using the exact stored column names.
func segmentColumns(t domain.TableSchema) (year, segment, revenue string, ok bool) {
	year, ok = t.Column("year")
	if !ok {
		return "", "", "", false
	}
	segment, ok = t.Column("segment")
	if !ok {
		return "", "", "", false
	}
	revenue, ok = revenueColumn(t)
	return year, segment, revenue, ok
}

func revenueColumn(t domain.TableSchema) (string, bool) {
	if c, ok := t.Column("revenue_usd_m"); ok {
		return c, true
	}
	if c, ok := t.Column("revenue"); ok {
		return c, true
	}
	for _, c := range t.Columns {
		if strings.Contains(strings.ToLower(c.Name), "revenue") {
			return c.Name, true
		}
	}
	return "", false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// buildYoYQuery pivots segment revenue across the earliest and latest year
// named in the question, with delta and percentage change. When the
// question names a segment, rows are narrowed to it.
func buildYoYQuery(t domain.TableSchema, facts questionFacts) (string, string, bool) {
	if len(facts.years) < 2 {
		return "", "", false
	}
	yearCol, segCol, revCol, ok := segmentColumns(t)
	if !ok {
		return "", "", false
	}
	y0 := facts.years[0]
	y1 := facts.years[len(facts.years)-1]

	segmentFilter := ""
	if facts.segmentTerm != "" {
		segmentFilter = fmt.Sprintf("\n    AND LOWER(%s) LIKE '%%%s%%'", quoteIdent(segCol), facts.segmentTerm)
	}

	sql := fmt.Sprintf(`WITH base AS (
  SELECT CAST(%[1]s AS TEXT) AS year, %[2]s AS segment, %[3]s AS revenue
  FROM %[4]s
  WHERE CAST(%[1]s AS TEXT) IN ('%[5]s', '%[6]s')%[7]s
),
agg AS (
  SELECT year, segment, SUM(revenue) AS revenue
  FROM base
  GROUP BY 1, 2
),
wide AS (
  SELECT segment,
    SUM(CASE WHEN year = '%[5]s' THEN revenue ELSE 0 END) AS rev_%[5]s,
    SUM(CASE WHEN year = '%[6]s' THEN revenue ELSE 0 END) AS rev_%[6]s
  FROM agg
  GROUP BY 1
)
SELECT segment, rev_%[5]s, rev_%[6]s,
  rev_%[6]s - rev_%[5]s AS yoy_delta,
  CASE WHEN rev_%[5]s = 0 THEN NULL
       ELSE (rev_%[6]s - rev_%[5]s) * 100.0 / rev_%[5]s
  END AS yoy_pct
FROM wide
ORDER BY segment`,
		quoteIdent(yearCol), quoteIdent(segCol), quoteIdent(revCol), quoteIdent(t.Name),
		y0, y1, segmentFilter)

	return sql, fmt.Sprintf("segment revenue change %s to %s on %s", y0, y1, t.Name), true
}

// buildSegmentRevenueQuery lists aggregated segment revenue per year,
// narrowed to the years the question names when any.
func buildSegmentRevenueQuery(t domain.TableSchema, facts questionFacts) (string, string, bool) {
	yearCol, segCol, revCol, ok := segmentColumns(t)
	if !ok {
		return "", "", false
	}

	where := ""
	if len(facts.years) > 0 {
		quoted := make([]string, len(facts.years))
		for i, y := range facts.years {
			quoted[i] = "'" + y + "'"
		}
		where = fmt.Sprintf("\nWHERE CAST(%s AS TEXT) IN (%s)", quoteIdent(yearCol), strings.Join(quoted, ", "))
	}

	sql := fmt.Sprintf(`SELECT CAST(%[1]s AS TEXT) AS year, %[2]s AS segment, SUM(%[3]s) AS revenue
FROM %[4]s%[5]s
GROUP BY 1, 2
ORDER BY 1, 2`,
		quoteIdent(yearCol), quoteIdent(segCol), quoteIdent(revCol), quoteIdent(t.Name), where)

	return sql, fmt.Sprintf("segment revenue by year on %s", t.Name), true
}

// buildTopSegmentQuery ranks segments by total revenue.
func buildTopSegmentQuery(t domain.TableSchema, facts questionFacts) (string, string, bool) {
	yearCol, segCol, revCol, ok := segmentColumns(t)
	if !ok {
		return "", "", false
	}

	where := ""
	if len(facts.years) > 0 {
		y := facts.years[len(facts.years)-1]
		where = fmt.Sprintf("\nWHERE CAST(%s AS TEXT) = '%s'", quoteIdent(yearCol), y)
	}

	sql := fmt.Sprintf(`SELECT %[1]s AS segment, SUM(%[2]s) AS revenue
FROM %[3]s%[4]s
GROUP BY 1
ORDER BY 2 DESC
LIMIT 5`,
		quoteIdent(segCol), quoteIdent(revCol), quoteIdent(t.Name), where)

	return sql, fmt.Sprintf("top segments by revenue on %s", t.Name), true
}
