package run

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hughisie/agent0-article-pipeline/internal/common"
	"github.com/hughisie/agent0-article-pipeline/models"
)

var jobExtensions = map[string]bool{".json": true, ".yaml": true, ".yml": true}

// JobFiles expands args into job file paths. Directories contribute their
// .json and .yaml files (not recursively), sorted by name.
func JobFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !jobExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		paths = append(paths, found...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no job files found")
	}
	return paths, nil
}

// LoadJobs parses each file as one ArticleJob. A job without an article
// filename gets the file's base name.
func LoadJobs(paths []string) ([]models.ArticleJob, error) {
	jobs := make([]models.ArticleJob, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read job %s: %w", path, err)
		}
		var job models.ArticleJob
		if err := common.Decode(data, &job); err != nil {
			return nil, fmt.Errorf("failed to parse job %s: %w", path, err)
		}
		if job.Article.Filename == "" {
			job.Article.Filename = filepath.Base(path)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
