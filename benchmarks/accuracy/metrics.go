// ABOUTME: Accuracy metrics for labeled classification runs
// ABOUTME: Computes overall accuracy, per-label precision/recall/F1, and per-method breakdowns

package accuracy

import (
	"math"
	"sort"
)

// LabelMetrics scores one label across a run.
type LabelMetrics struct {
	Label     string  `json:"label"`
	Support   int     `json:"support"`
	Predicted int     `json:"predicted"`
	Correct   int     `json:"correct"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// MethodMetrics scores the items one method decided.
type MethodMetrics struct {
	Method   string  `json:"method"`
	Count    int     `json:"count"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// Accuracy is the share of predictions equal to their expected label.
func Accuracy(expected, predicted []string) float64 {
	if len(expected) == 0 {
		return 0
	}
	correct := 0
	for i := range expected {
		if expected[i] == predicted[i] {
			correct++
		}
	}
	return round(float64(correct) / float64(len(expected)))
}

// PerLabel returns metrics for every label seen in either slice, sorted by
// label. A label never predicted has precision 0; one never expected has
// recall 0.
func PerLabel(expected, predicted []string) []LabelMetrics {
	byLabel := map[string]*LabelMetrics{}
	get := func(label string) *LabelMetrics {
		m, ok := byLabel[label]
		if !ok {
			m = &LabelMetrics{Label: label}
			byLabel[label] = m
		}
		return m
	}

	for i := range expected {
		get(expected[i]).Support++
		get(predicted[i]).Predicted++
		if expected[i] == predicted[i] {
			get(expected[i]).Correct++
		}
	}

	out := make([]LabelMetrics, 0, len(byLabel))
	for _, m := range byLabel {
		if m.Predicted > 0 {
			m.Precision = round(float64(m.Correct) / float64(m.Predicted))
		}
		if m.Support > 0 {
			m.Recall = round(float64(m.Correct) / float64(m.Support))
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = round(2 * m.Precision * m.Recall / (m.Precision + m.Recall))
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}

// ByMethod groups predictions by the method that produced them.
func ByMethod(expected, predicted, methods []string) []MethodMetrics {
	byMethod := map[string]*MethodMetrics{}
	for i := range expected {
		m, ok := byMethod[methods[i]]
		if !ok {
			m = &MethodMetrics{Method: methods[i]}
			byMethod[methods[i]] = m
		}
		m.Count++
		if expected[i] == predicted[i] {
			m.Correct++
		}
	}

	out := make([]MethodMetrics, 0, len(byMethod))
	for _, m := range byMethod {
		m.Accuracy = round(float64(m.Correct) / float64(m.Count))
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// MacroF1 averages F1 over labels with support.
func MacroF1(labels []LabelMetrics) float64 {
	sum, n := 0.0, 0
	for _, m := range labels {
		if m.Support == 0 {
			continue
		}
		sum += m.F1
		n++
	}
	if n == 0 {
		return 0
	}
	return round(sum / float64(n))
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
