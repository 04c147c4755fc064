// ABOUTME: Tests for sentiment lexicon refinement
// ABOUTME: Question rule, lopsided-hit overrides, and the cases where the model stands
package twoaxis

import "testing"

const testLexicon = `
positive: '감사|고마|고맙|덕분|덕에|감동|최고|좋은|대박|응원|화이팅|축하|행복'
negative: '불만|실망|답답|환불|불편|짜증|걱정|불안|손실|폭락|오류|버그'
question: '\?|인가요|할까요|나요|궁금|문의|어떻게'
`

func mustLexicon(t *testing.T) *Lexicon {
	t.Helper()
	lex, err := ParseLexicon([]byte(testLexicon))
	if err != nil {
		t.Fatalf("ParseLexicon() error = %v", err)
	}
	return lex
}

func TestParseLexicon_Defaults(t *testing.T) {
	lex := mustLexicon(t)
	if lex.Margin != 3 || lex.WeakMax != 1 {
		t.Errorf("Margin/WeakMax = %d/%d, want 3/1", lex.Margin, lex.WeakMax)
	}
	if lex.PositiveLabel != SentimentPositive || lex.NegativeLabel != SentimentNegative || lex.NeutralLabel != SentimentNeutral {
		t.Errorf("labels = %s/%s/%s", lex.PositiveLabel, lex.NegativeLabel, lex.NeutralLabel)
	}
}

func TestParseLexicon_Invalid(t *testing.T) {
	for _, data := range []string{
		"negative: a\nquestion: b",
		"positive: '('\nnegative: a\nquestion: b",
		"positive: [",
	} {
		if _, err := ParseLexicon([]byte(data)); err == nil {
			t.Errorf("ParseLexicon(%q) should fail", data)
		}
	}
}

func TestRefine(t *testing.T) {
	lex := mustLexicon(t)

	tests := []struct {
		name        string
		text        string
		model       string
		want        string
		wantRefined bool
	}{
		{"plain question goes neutral", "이 종목 언제 사야 할까요?", SentimentNegative, SentimentNeutral, true},
		{"question with one hit goes neutral", "환불은 어떻게 하나요?", SentimentNegative, SentimentNeutral, true},
		{"question with strong sentiment stays", "답답하고 실망이고 불만인데 환불 되나요?", SentimentNegative, SentimentNegative, false},
		{"three positives override negative", "감사합니다 덕분에 최고예요", SentimentNegative, SentimentPositive, true},
		{"three negatives override positive", "오류 때문에 답답하고 실망입니다", SentimentPositive, SentimentNegative, true},
		{"mixed hits leave the model alone", "감사 덕분 최고 그런데 불만 실망", SentimentNeutral, SentimentNeutral, false},
		{"two hits are not enough", "감사 덕분", SentimentNegative, SentimentNegative, false},
		{"agreeing override is not a refinement", "감사 덕분 최고", SentimentPositive, SentimentPositive, false},
		{"no hits", "오늘 날씨", SentimentNeutral, SentimentNeutral, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, refined := lex.Refine(tt.text, tt.model)
			if got != tt.want || refined != tt.wantRefined {
				t.Errorf("Refine(%q, %s) = %s/%v, want %s/%v", tt.text, tt.model, got, refined, tt.want, tt.wantRefined)
			}
		})
	}
}
