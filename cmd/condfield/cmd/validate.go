package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/condfield/internal/conditions"
	"github.com/solatis/condfield/internal/i18n"
)

var (
	validateOptionsFile    string
	validateConditionsFile string
	validateField          string
	validateCatalog        []string
	validateFromDB         bool
	validateLocale         string
)

// errInvalidDefinition makes the command exit non-zero after the messages
// have been printed.
var errInvalidDefinition = errors.New("condition configuration is invalid")

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a condition configuration before saving it",
	Long: `Validate reads a newline separated option list and a condition configuration
and reports every problem the authoring form would report, localized.

The field catalog is either given with --fields or read from the database
with --from-db. Index-keyed configurations are rewritten to label keying
before they are checked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if validateOptionsFile == "" || validateConditionsFile == "" {
			return fmt.Errorf("--options and --conditions are required")
		}
		if validateOptionsFile == "-" && validateConditionsFile == "-" {
			return fmt.Errorf("only one of --options and --conditions may read stdin")
		}
		rawOptions, err := readInput(validateOptionsFile, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read options: %w", err)
		}
		rawConditions, err := readInput(validateConditionsFile, cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read conditions: %w", err)
		}

		catalog := conditions.CatalogSet{}
		for _, f := range validateCatalog {
			if f = strings.TrimSpace(f); f != "" {
				catalog[f] = true
			}
		}
		if validateFromDB {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, _, closeDB, err := openStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			stored, err := st.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			for name := range stored {
				if name != validateField {
					catalog[name] = true
				}
			}
		}

		options := conditions.SplitOptions(string(rawOptions))
		def := conditions.Definition{
			Shortname:  validateField,
			Options:    options,
			Conditions: string(rawConditions),
		}
		if conditions.DetectFormat(def.Conditions) == conditions.FormatLegacyIndex {
			migrated, err := conditions.MigrateLegacy(def.Conditions, options)
			if err != nil {
				return reportDefinitionErrors(cmd, []*conditions.DefinitionError{{Code: conditions.CodeMalformed, Err: err}})
			}
			logger.Debug("index-keyed configuration rewritten", "field", validateField)
			def.Conditions = migrated
		}

		if errs := conditions.ValidateDefinition(def, catalog); len(errs) > 0 {
			return reportDefinitionErrors(cmd, errs)
		}

		set, err := conditions.Parse(def.Conditions)
		if err != nil {
			return reportDefinitionErrors(cmd, []*conditions.DefinitionError{{Code: conditions.CodeMalformed, Err: err}})
		}
		canonical, err := set.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), canonical)
		return nil
	},
}

func reportDefinitionErrors(cmd *cobra.Command, errs []*conditions.DefinitionError) error {
	bundle := i18n.Default()
	w := cmd.ErrOrStderr()
	for _, e := range errs {
		msg := bundle.Message(validateLocale, e.Code)
		switch {
		case e.Option != "" && e.Field != "":
			fmt.Fprintf(w, "%s [option %q, field %q]\n", msg, e.Option, e.Field)
		case e.Option != "":
			fmt.Fprintf(w, "%s [option %q]\n", msg, e.Option)
		case e.Field != "":
			fmt.Fprintf(w, "%s [field %q]\n", msg, e.Field)
		default:
			fmt.Fprintln(w, msg)
		}
		logger.Debug("definition error", "error", e)
	}
	return errInvalidDefinition
}

func init() {
	validateCmd.Flags().StringVar(&validateOptionsFile, "options", "", "file with one option per line (- for stdin)")
	validateCmd.Flags().StringVar(&validateConditionsFile, "conditions", "", "file with the condition configuration JSON (- for stdin)")
	validateCmd.Flags().StringVar(&validateField, "field", "", "shortname of the controlling field")
	validateCmd.Flags().StringSliceVar(&validateCatalog, "fields", nil, "shortnames of the other fields in the form")
	validateCmd.Flags().BoolVar(&validateFromDB, "from-db", false, "read the field catalog from the database")
	validateCmd.Flags().StringVar(&validateLocale, "locale", i18n.BaseLocale, "message locale")
	rootCmd.AddCommand(validateCmd)
}
