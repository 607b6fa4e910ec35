package run

import (
	"os"
	"path/filepath"
	"testing"
)

const jsonJob = `{
  "article": {"id": "101", "source_url": "https://www.elperiodico.com/es/a-123456"},
  "primary_source": {"primary_source": {"url": "https://www.boe.es/x", "confidence": 0.8}},
  "content": "<p>text</p>",
  "related_links": [{"url": "https://barna.news/a", "anchor_text": "a"}]
}`

const yamlJob = `article:
  id: "102"
  filename: custom.json
primary_source:
  primary_source:
    url: https://www.lamoncloa.gob.es/x
content: <p>text</p>
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestJobFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "b.json"), jsonJob)
	writeFile(t, filepath.Join(dir, "a.yaml"), yamlJob)
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "sub", "c.json"), jsonJob)

	single := filepath.Join(t.TempDir(), "job.txt")
	writeFile(t, single, jsonJob)

	got, err := JobFiles([]string{dir, single})
	if err != nil {
		t.Fatalf("JobFiles() error = %v", err)
	}
	want := []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.json"), single}
	if len(got) != len(want) {
		t.Fatalf("JobFiles() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("JobFiles()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestJobFiles_Errors(t *testing.T) {
	if _, err := JobFiles([]string{filepath.Join(t.TempDir(), "missing.json")}); err == nil {
		t.Error("JobFiles() with a missing path should fail")
	}
	if _, err := JobFiles([]string{t.TempDir()}); err == nil {
		t.Error("JobFiles() with an empty directory should fail")
	}
}

func TestLoadJobs(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "101.json")
	yamlPath := filepath.Join(dir, "102.yaml")
	writeFile(t, jsonPath, jsonJob)
	writeFile(t, yamlPath, yamlJob)

	jobs, err := LoadJobs([]string{jsonPath, yamlPath})
	if err != nil {
		t.Fatalf("LoadJobs() error = %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("LoadJobs() returned %d jobs, want 2", len(jobs))
	}

	if jobs[0].Article.ID != "101" || jobs[0].Article.Filename != "101.json" {
		t.Errorf("jobs[0].Article = %+v", jobs[0].Article)
	}
	if jobs[0].PrimarySource.PrimarySource.Confidence != 0.8 || len(jobs[0].RelatedLinks) != 1 {
		t.Errorf("jobs[0] = %+v", jobs[0])
	}
	if jobs[1].Article.Filename != "custom.json" || jobs[1].PrimarySource.PrimarySource.URL != "https://www.lamoncloa.gob.es/x" {
		t.Errorf("jobs[1] = %+v", jobs[1])
	}
}

func TestLoadJobs_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, path, `{"article": `)
	if _, err := LoadJobs([]string{path}); err == nil {
		t.Error("LoadJobs() with malformed JSON should fail")
	}
}
