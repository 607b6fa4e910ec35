package common

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/hughisie/agent0-article-pipeline/models"
)

// GlobalFlags are shared by every command.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.yaml",
		Usage:   "YAML or JSON config file; a missing file means defaults",
	},
	&cli.BoolFlag{
		Name:    "quiet",
		Aliases: []string{"q"},
		Usage:   "only log errors",
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "log debug details",
	},
	&cli.StringFlag{
		Name:  "format",
		Value: "yaml",
		Usage: "output format: yaml or json",
	},
}

// NewLogger builds the JSON stderr logger honouring --quiet and --verbose.
func NewLogger(c *cli.Context) *slog.Logger {
	logLevel := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		logLevel = slog.LevelError
	case c.Bool("verbose"):
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: logLevel}))
}

// LoadConfig reads --config and applies the environment overrides.
func LoadConfig(c *cli.Context) (*models.Config, error) {
	cfg, err := models.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// WriteOutput encodes v to the app's writer in the --format encoding.
func WriteOutput(c *cli.Context, v any) error {
	return Encode(c.App.Writer, c.String("format"), v)
}

func Encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode YAML output: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("failed to encode JSON output: %w", err)
		}
		return nil
	}
	return fmt.Errorf("unknown output format %q", format)
}

// ReadInput returns the contents of path, or of stdin when path is "" or "-".
func ReadInput(c *cli.Context, path string) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Decode parses JSON or YAML input into v. YAML is a superset of JSON, but
// JSON input goes through encoding/json so its field tags apply.
func Decode(data []byte, v any) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("failed to parse JSON input: %w", err)
		}
		return nil
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse YAML input: %w", err)
	}
	return nil
}

// WriteContent writes article content to path, or to the app's writer when
// path is "" or "-".
func WriteContent(c *cli.Context, path, content string) error {
	if path == "" || path == "-" {
		_, err := io.WriteString(c.App.Writer, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
