package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	ssp "github.com/goliatone/go-socialshare"
	"github.com/goliatone/go-socialshare/internal/config"
	"github.com/goliatone/go-socialshare/network"
)

var (
	resolveFormat string
	resolveTrace  []string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the resolved widget configuration",
	Long: `Merges the built-in defaults, the caller options and the host attributes
from the config file and prints the result with the module order and the
share uri. --trace shows which layer supplied a setting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		opts := []ssp.Option{ssp.WithEvaluatorLogger(ssp.SlogEvaluatorLogger(newLogger()))}
		res, err := ssp.Resolve(network.Defaults(), cfg.CallerValues(), cfg.NewHost(), opts...)
		if err != nil {
			var evalErr *ssp.EvaluationError
			if errors.As(err, &evalErr) && evalErr.Attribute() != "" {
				return fmt.Errorf("%w (check host attribute %s)", err, evalErr.Attribute())
			}
			return err
		}
		return writeResolution(cmd.OutOrStdout(), resolveFormat, res, resolveTrace)
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveFormat, "format", "f", "yaml", "output format: yaml or json")
	resolveCmd.Flags().StringSliceVar(&resolveTrace, "trace", nil, "setting paths to trace, e.g. services.twitter.status")
	rootCmd.AddCommand(resolveCmd)
}

type traceOutput struct {
	Path     string   `json:"path" yaml:"path"`
	Layer    string   `json:"layer,omitempty" yaml:"layer,omitempty"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Shadowed []string `json:"shadowed,omitempty" yaml:"shadowed,omitempty"`
}

func describeTrace(trace ssp.Trace) traceOutput {
	out := traceOutput{Path: trace.Path}
	winner, ok := trace.Winner()
	if !ok {
		return out
	}
	out.Layer = winner.Scope.Name
	out.Value = winner.Value
	for _, layer := range trace.Layers {
		if layer.Found && layer.Scope.Name != winner.Scope.Name {
			out.Shadowed = append(out.Shadowed, layer.Scope.Name)
		}
	}
	return out
}

func writeResolution(out io.Writer, format string, res *ssp.Resolution, paths []string) error {
	// the json tags of ssp.Config are the canonical setting names
	raw, err := json.Marshal(res.Config)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return err
	}
	doc := map[string]any{
		"config": tree,
		"order":  res.Order,
		"uri":    res.URI,
	}
	if len(paths) > 0 {
		traces := make([]traceOutput, 0, len(paths))
		for _, path := range paths {
			traces = append(traces, describeTrace(res.Trace(path)))
		}
		doc["trace"] = traces
	}

	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml", "":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
