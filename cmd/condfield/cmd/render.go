package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/condfield/internal/engine"
	"github.com/solatis/condfield/internal/htmlform"
)

var (
	renderInput    string
	renderOutput   string
	renderDefaults map[string]string
	renderState    bool
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Apply condition rules to a rendered form",
	Long: `Render reads an HTML form, binds an engine to every select that carries a
data-conditions attribute and applies the rules for each current selection:
dependent rows are hidden or shown, required indicators are toggled and
hidden-and-cleared inputs are reset to their defaults.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		in := cmd.InOrStdin()
		if renderInput != "" && renderInput != "-" {
			f, err := os.Open(renderInput)
			if err != nil {
				return fmt.Errorf("failed to open form: %w", err)
			}
			defer f.Close()
			in = f
		}

		out := cmd.OutOrStdout()
		var file *os.File
		if renderOutput != "" && renderOutput != "-" {
			file, err = os.Create(renderOutput)
			if err != nil {
				return fmt.Errorf("failed to create output: %w", err)
			}
			defer file.Close()
			out = file
		}
		buf := bufio.NewWriter(out)

		binder := htmlform.Binder{
			Defaults:       engine.StaticDefaults(renderDefaults),
			HideInitially:  cfg.Engine.HideInitiallyDefault,
			RequiredMarkup: cfg.Engine.RequiredMarkup,
			Options: []engine.Option{
				engine.WithLogger(logger),
				engine.WithClearOnInitialHide(cfg.Engine.ClearOnInitialHide),
			},
		}
		engines, err := binder.Render(cmd.Context(), in, buf)
		if err != nil {
			return err
		}
		if err := buf.Flush(); err != nil {
			return fmt.Errorf("failed to write form: %w", err)
		}
		if file != nil {
			if err := file.Sync(); err != nil {
				return fmt.Errorf("failed to write form: %w", err)
			}
		}
		logger.Info("form rendered", "controlling_fields", len(engines))

		if renderState {
			return writeState(cmd, engines)
		}
		return nil
	},
}

func writeState(cmd *cobra.Command, engines []*engine.Engine) error {
	w := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROL\tSELECTED\tFIELD\tVISIBILITY\tINDICATOR")
	for _, e := range engines {
		state := e.State()
		names := make([]string, 0, len(state))
		for name := range state {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			s := state[name]
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", e.Field(), e.Selected(), name, s.Visibility, s.Indicator)
		}
	}
	return w.Flush()
}

func init() {
	renderCmd.Flags().StringVarP(&renderInput, "input", "i", "", "form HTML to read (default stdin)")
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "file to write the rendered form to (default stdout)")
	renderCmd.Flags().StringToStringVar(&renderDefaults, "default", nil, "default value restored on hidden-and-cleared fields (field=value)")
	renderCmd.Flags().BoolVar(&renderState, "state", false, "print the resulting row states to stderr")
	renderCmd.Flags().Bool("hide-initially", false, "hide dependent rows until a choice is made, for selects that do not say")
	renderCmd.Flags().Bool("clear-on-initial-hide", false, "also clear hidden-and-cleared fields at first render")
	rootCmd.AddCommand(renderCmd)
}
