package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// Generator drafts an answer from the fused text evidence and the query
// result previews. The draft carries inline citation markers and is not
// released until the verifier has scored it.
type Generator struct {
	chat            ports.ChatModel
	model           string
	snippetMaxChars int
}

func NewGenerator(chat ports.ChatModel, model string, snippetMaxChars int) *Generator {
	if snippetMaxChars <= 0 {
		snippetMaxChars = 450
	}
	return &Generator{chat: chat, model: model, snippetMaxChars: snippetMaxChars}
}

const claimBinderSystem = `Given the user question, the retrieved filing snippets, and SQL results (CSV previews),
write a short answer with [#] footnotes per claim (e.g., [1a] for text, [S1] for SQL).
Answer ONLY from the supplied evidence. Every numeric claim must cite a SQL footnote;
every statement about filing content must cite a text footnote.
Never use a SQL footnote whose result is marked ERROR.
Then list the atomic claims you made. Be concise and factual.
If evidence is insufficient, answer exactly "Not enough evidence".

Return ONLY a JSON object (no prose, no code fences) with keys:
{
  "answer_markdown": "...",
  "claims":[{"text":"...","doc_refs":["1a","2a"],"sql_refs":["S1"]}]
}`

type draftAnswer struct {
	Text     string
	Claims   []domain.Claim
	TextCits []domain.Citation
}

// Generate performs the single blocking drafting call. Non-JSON model
// output degrades to the raw text with no claims rather than failing.
func (g *Generator) Generate(
	ctx context.Context,
	question string,
	evidence []domain.ScoredCandidate,
	queryCitations []domain.Citation,
	planningFailed bool,
) (draftAnswer, error) {
	textCits := make([]domain.Citation, 0, len(evidence))
	var evidenceBlock strings.Builder
	for i, cand := range evidence {
		marker := fmt.Sprintf("%da", i+1)
		quote := cand.Text
		if len(quote) > g.snippetMaxChars {
			quote = truncateAtRune(quote, g.snippetMaxChars) + "..."
		}
		textCits = append(textCits, domain.Citation{
			Kind:    domain.CitationText,
			Marker:  marker,
			ChunkID: cand.ID,
			Quote:   quote,
		})
		fmt.Fprintf(&evidenceBlock, "[%s] (ticker=%s form=%s) %s\n", marker, cand.Ticker, cand.Form, quote)
	}

	var sqlBlock strings.Builder
	sqlIDs := make([]string, 0, len(queryCitations))
	for _, cit := range queryCitations {
		sqlIDs = append(sqlIDs, cit.Marker)
		if cit.Errored {
			fmt.Fprintf(&sqlBlock, "[%s] ERROR: %s\n", cit.Marker, cit.Error)
			continue
		}
		preview := truncateAtRune(cit.Preview, 800)
		fmt.Fprintf(&sqlBlock, "[%s]\n%s\n", cit.Marker, preview)
	}

	idList := "(none)"
	if len(sqlIDs) > 0 {
		idList = strings.Join(sqlIDs, ", ")
	}
	sqlNote := ""
	if planningFailed || len(queryCitations) == 0 {
		sqlNote = "\nNo structured data could be queried for this question. Do not state any numbers."
	}

	user := fmt.Sprintf(`Question: %s

Text evidence:
%s
SQL results (CSV preview) - IDs available: %s
%s%s`, question, evidenceBlock.String(), idList, sqlBlock.String(), sqlNote)

	raw, err := g.chat.CompleteJSON(ctx, g.model, claimBinderSystem, user)
	if err != nil {
		return draftAnswer{}, fmt.Errorf("draft answer: %w", err)
	}

	var parsed struct {
		AnswerMarkdown string `json:"answer_markdown"`
		Claims         []struct {
			Text    string   `json:"text"`
			DocRefs []string `json:"doc_refs"`
			SQLRefs []string `json:"sql_refs"`
		} `json:"claims"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
			// Last resort: treat the whole response as the answer text.
			return draftAnswer{Text: strings.TrimSpace(raw), TextCits: textCits}, nil
		}
	}

	claims := make([]domain.Claim, 0, len(parsed.Claims))
	for _, c := range parsed.Claims {
		claims = append(claims, domain.Claim{Text: c.Text, DocRefs: c.DocRefs, SQLRefs: c.SQLRefs})
	}

	return draftAnswer{
		Text:     strings.TrimSpace(parsed.AnswerMarkdown),
		Claims:   claims,
		TextCits: textCits,
	}, nil
}
