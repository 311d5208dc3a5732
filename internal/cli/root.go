package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/punchout/dashboard/internal/bootstrap"
	"github.com/punchout/dashboard/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type options struct {
	cfgFile string
	mock    bool
	output  string
}

// NewRootCmd builds the punchout-test command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "punchout-test",
		Short: "Run cXML PunchOut setup tests against a gateway",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.output != "json" && opts.output != "yaml" {
				return fmt.Errorf("unsupported output format %q (use json or yaml)", opts.output)
			}
			return nil
		},
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Path to a YAML config file")
	root.PersistentFlags().BoolVar(&opts.mock, "mock", false, "Use the in-process mock gateway and backend")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")

	root.AddCommand(newRunCmd(opts), newPreviewCmd(opts), newCustomersCmd(opts))
	return root
}

func (o *options) load() (*bootstrap.App, error) {
	var overrides map[string]interface{}
	if o.mock {
		overrides = map[string]interface{}{"mock": true}
	}

	cfg, err := config.LoadWithOverrides(o.cfgFile, overrides)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(cfg)
}

func (o *options) print(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if o.output == "json" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	// Round-trip through JSON so YAML keys match the API field names
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
