// ABOUTME: Tests for collection export
// ABOUTME: Verifies YAML, Markdown, and JSON vector output for an indexed collection
package sqlite

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func seedExportCollection(t *testing.T, db *DB) {
	t.Helper()
	createCollection(t, db, "feedback_examples")
	err := NewExampleStore(db).Insert(context.Background(), "feedback_examples", []StoredExample{
		{ID: "a", Text: "정말 감사합니다", Category: "감사·후기", Metadata: map[string]string{"source": "seed"}, Vector: []float64{1, 0}},
		{ID: "b", Text: "앱이  자꾸\n꺼져요", Category: "불편사항", Metadata: map[string]string{"source": "reviewed"}, Vector: []float64{0, 1}},
		{ID: "c", Text: "덕분에 공부가 됐어요", Category: "감사·후기", Vector: []float64{0.5, 0.5}},
	})
	if err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
}

func TestExport(t *testing.T) {
	db := newTestDB(t)
	seedExportCollection(t, db)

	data, err := Export(context.Background(), db, "feedback_examples")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if data.Version != ExportVersion {
		t.Errorf("Version = %d, want %d", data.Version, ExportVersion)
	}
	if data.EmbeddingModel != "hash-256" {
		t.Errorf("EmbeddingModel = %q, want hash-256", data.EmbeddingModel)
	}
	if len(data.Examples) != 3 {
		t.Fatalf("len(Examples) = %d, want 3", len(data.Examples))
	}
	if data.Examples[0].ID != "a" || data.Examples[2].ID != "c" {
		t.Errorf("Examples order = %s,%s, want a,c", data.Examples[0].ID, data.Examples[2].ID)
	}
	if data.Examples[1].Source != "reviewed" {
		t.Errorf("Examples[1].Source = %q, want reviewed", data.Examples[1].Source)
	}
	if data.Examples[2].Source != "" {
		t.Errorf("Examples[2].Source = %q, want empty", data.Examples[2].Source)
	}
}

func TestExport_MissingCollection(t *testing.T) {
	db := newTestDB(t)
	if _, err := Export(context.Background(), db, "missing"); err == nil {
		t.Fatal("Export(missing) error = nil, want error")
	}
}

func TestWriteYAML(t *testing.T) {
	db := newTestDB(t)
	seedExportCollection(t, db)

	data, err := Export(context.Background(), db, "feedback_examples")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteYAML(&buf, data); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}

	var decoded ExportData
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if decoded.Collection != "feedback_examples" {
		t.Errorf("Collection = %q, want feedback_examples", decoded.Collection)
	}
	if len(decoded.Examples) != 3 || decoded.Examples[1].Text != "앱이  자꾸\n꺼져요" {
		t.Errorf("Examples = %+v, want original texts", decoded.Examples)
	}
	if strings.Contains(buf.String(), "vector") {
		t.Error("YAML export should not contain vectors")
	}
}

func TestWriteMarkdown(t *testing.T) {
	db := newTestDB(t)
	seedExportCollection(t, db)

	data, err := Export(context.Background(), db, "feedback_examples")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, data); err != nil {
		t.Fatalf("WriteMarkdown() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Collection Export - feedback_examples",
		"| 감사·후기 | 2 |",
		"| 불편사항 | 1 |",
		"- `b` (reviewed) 앱이 자꾸 꺼져요",
		"- `c` 덕분에 공부가 됐어요",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
	if strings.Index(out, "## 감사·후기") > strings.Index(out, "## 불편사항") {
		t.Error("larger category should come first")
	}
}

func TestWriteVectorsJSON(t *testing.T) {
	db := newTestDB(t)
	seedExportCollection(t, db)

	var buf bytes.Buffer
	if err := WriteVectorsJSON(context.Background(), db, "feedback_examples", &buf); err != nil {
		t.Fatalf("WriteVectorsJSON() error = %v", err)
	}

	var decoded []struct {
		ID       string    `json:"id"`
		Category string    `json:"category"`
		Vector   []float64 `json:"vector"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("len = %d, want 3", len(decoded))
	}
	if decoded[1].ID != "b" || decoded[1].Vector[1] != 1 {
		t.Errorf("decoded[1] = %+v, want b with vector [0 1]", decoded[1])
	}
}
