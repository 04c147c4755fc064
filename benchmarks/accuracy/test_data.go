// ABOUTME: Labeled evaluation cases for the accuracy benchmark
// ABOUTME: Ships a small held-out set and loads larger sets from JSON or YAML files

package accuracy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case is one labeled text.
type Case struct {
	ID    string `json:"id" yaml:"id"`
	Text  string `json:"text" yaml:"text"`
	Label string `json:"label" yaml:"label"`
}

// BuiltinCases is a held-out set phrased differently from the seed examples.
func BuiltinCases() []Case {
	return []Case{
		{ID: "held-thanks-1", Text: "오늘 방송도 정말 감사했습니다", Label: "감사·후기"},
		{ID: "held-thanks-2", Text: "강의 덕분에 많이 배웠어요 감사합니다", Label: "감사·후기"},
		{ID: "held-question-1", Text: "ISA 계좌는 어떻게 운용하는 게 좋을까요?", Label: "질문·토론"},
		{ID: "held-question-2", Text: "지금 비중을 늘려도 괜찮을지 궁금합니다", Label: "질문·토론"},
		{ID: "held-info-1", Text: "오늘 발표된 금리 결정 관련 기사 공유드립니다", Label: "정보성 글"},
		{ID: "held-info-2", Text: "이번 분기 실적 발표 일정 정리해봤습니다", Label: "정보성 글"},
		{ID: "held-service-1", Text: "앱에서 강의 영상이 자꾸 끊겨요", Label: "서비스 피드백"},
		{ID: "held-service-2", Text: "알림 설정 기능이 있으면 좋겠습니다", Label: "서비스 피드백"},
		{ID: "held-complaint-1", Text: "결제했는데 구독이 안되고 환불도 답이 없네요", Label: "불편사항"},
		{ID: "held-complaint-2", Text: "멤버십 혜택이 너무 줄어서 실망입니다", Label: "불편사항"},
		{ID: "held-daily-1", Text: "오늘 날씨가 좋아서 산책 다녀왔어요", Label: "일상·공감"},
		{ID: "held-daily-2", Text: "부친상 소식에 삼가 고인의 명복을 빕니다", Label: "일상·공감"},
	}
}

// LoadCases reads cases from a .json or .yaml file. Cases without text or
// label are an error; missing ids are filled from the position.
func LoadCases(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cases: %w", err)
	}

	var cases []Case
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cases)
	default:
		err = json.Unmarshal(data, &cases)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse cases %s: %w", path, err)
	}

	for i := range cases {
		cases[i].Text = strings.TrimSpace(cases[i].Text)
		cases[i].Label = strings.TrimSpace(cases[i].Label)
		if cases[i].Text == "" || cases[i].Label == "" {
			return nil, fmt.Errorf("case %d: text and label are required", i)
		}
		if cases[i].ID == "" {
			cases[i].ID = fmt.Sprintf("case-%d", i+1)
		}
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no cases in %s", path)
	}
	return cases, nil
}
