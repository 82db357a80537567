package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/edgarqa/edgarqa/internal/core/domain"
	"github.com/edgarqa/edgarqa/internal/core/ports"
)

// Verifier judges whether a draft answer is supported by the evidence it
// cites and produces the faithfulness score the abstention gate reads.
type Verifier struct {
	chat  ports.ChatModel
	model string
}

func NewVerifier(chat ports.ChatModel, model string) *Verifier {
	return &Verifier{chat: chat, model: model}
}

const judgeSystem = `You judge whether an answer is supported by provided evidence.
Return a single JSON object: {"faithfulness": float in [0,1], "notes": "..."}.
Higher score means stronger support. Penalize any numbers or statements not clearly grounded.`

// Verify issues the judging call and extracts the score. Transport errors
// propagate as domain.ErrTemporary; an unusable response propagates as
// domain.ErrParseFailure, which the caller treats as score zero.
func (v *Verifier) Verify(
	ctx context.Context,
	question, draft string,
	textCitations, queryCitations []domain.Citation,
) (float64, string, error) {
	var evidence strings.Builder
	for i, cit := range textCitations {
		if i >= 8 {
			break
		}
		fmt.Fprintf(&evidence, "[%s] %s\n", cit.Marker, cit.Quote)
	}

	var previews strings.Builder
	for i, cit := range queryCitations {
		if i >= 3 {
			break
		}
		if cit.Errored {
			fmt.Fprintf(&previews, "[%s] ERROR: %s\n", cit.Marker, cit.Error)
			continue
		}
		preview := truncateAtRune(cit.Preview, 600)
		fmt.Fprintf(&previews, "[%s]\n%s\n", cit.Marker, preview)
	}

	user := fmt.Sprintf(`Question: %s

Answer:
%s

Evidence (text):
%s
Evidence (SQL previews):
%s`, question, draft, evidence.String(), previews.String())

	raw, err := v.chat.Complete(ctx, v.model, judgeSystem, user)
	if err != nil {
		return 0, "", fmt.Errorf("judge answer: %w", err)
	}

	score, notes, err := parseFaithfulness(raw)
	if err != nil {
		return 0, "", err
	}
	return score, notes, nil
}

type judgeVerdict struct {
	Faithfulness *float64 `json:"faithfulness"`
	Score        *float64 `json:"score"`
	Notes        string   `json:"notes"`
}

var scorePattern = regexp.MustCompile(`(?i)"?(?:faithfulness|score)"?\s*[:=]\s*(-?[0-9]*\.?[0-9]+)`)

// parseFaithfulness recovers a numeric score from the judge response:
// strict decoding first, then object extraction from surrounding noise,
// then a regex scan as the deterministic fallback. Scores clamp to [0,1].
func parseFaithfulness(raw string) (float64, string, error) {
	var verdict judgeVerdict
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		if err := json.Unmarshal([]byte(extractJSONObject(raw)), &verdict); err != nil {
			verdict = judgeVerdict{}
		}
	}

	switch {
	case verdict.Faithfulness != nil:
		return clampScore(*verdict.Faithfulness), verdict.Notes, nil
	case verdict.Score != nil:
		return clampScore(*verdict.Score), verdict.Notes, nil
	}

	if m := scorePattern.FindStringSubmatch(raw); m != nil {
		score, err := strconv.ParseFloat(m[1], 64)
		if err == nil {
			return clampScore(score), strings.TrimSpace(raw), nil
		}
	}

	return 0, "", fmt.Errorf("no faithfulness score in judge response: %w", domain.ErrParseFailure)
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
