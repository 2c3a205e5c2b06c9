package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/condfield/internal/core/store"
	"github.com/solatis/condfield/internal/types"
)

var (
	fieldShortname      string
	fieldName           string
	fieldDatatype       string
	fieldOptionsFile    string
	fieldConditionsFile string
	fieldHidden         bool
	fieldSortOrder      int
)

var fieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Manage stored field definitions",
}

var fieldCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a field",
	RunE: func(cmd *cobra.Command, args []string) error {
		nf := store.NewField{
			Shortname:     fieldShortname,
			Name:          fieldName,
			Datatype:      fieldDatatype,
			HideInitially: fieldHidden,
			SortOrder:     fieldSortOrder,
		}
		if fieldDatatype == types.DatatypeConditional {
			def, err := readDefinition(cmd)
			if err != nil {
				return err
			}
			nf.Options, nf.Conditions = def.Options, def.Conditions
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, _, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		id, err := st.CreateField(cmd.Context(), nf)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var fieldSetCmd = &cobra.Command{
	Use:   "set-conditions <shortname>",
	Short: "Save a new condition configuration for a conditional field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := readDefinition(cmd)
		if err != nil {
			return err
		}
		def.HideInitially = fieldHidden

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, _, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		f, err := st.GetFieldByShortname(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		rev, err := st.SaveDefinition(cmd.Context(), f.ID, def)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), rev)
		return nil
	},
}

var fieldListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fields in display order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, _, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		fields, err := st.ListFields(cmd.Context())
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSHORTNAME\tNAME")
		for _, f := range fields {
			fmt.Fprintf(w, "%d\t%s\t%s\n", f.ID, f.Shortname, f.Name)
		}
		return w.Flush()
	},
}

var fieldShowCmd = &cobra.Command{
	Use:   "show <shortname>",
	Short: "Print a field definition and its saved revisions as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, _, closeDB, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		f, err := st.GetFieldByShortname(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		revisions, err := st.ListRevisions(cmd.Context(), f.ID)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			store.FieldDefinition
			Revisions []store.Revision `json:"revisions"`
		}{f, revisions})
	},
}

func readDefinition(cmd *cobra.Command) (store.Definition, error) {
	if fieldOptionsFile == "" || fieldConditionsFile == "" {
		return store.Definition{}, fmt.Errorf("--options and --conditions are required for conditional fields")
	}
	if fieldOptionsFile == "-" && fieldConditionsFile == "-" {
		return store.Definition{}, fmt.Errorf("only one of --options and --conditions may read stdin")
	}
	options, err := readInput(fieldOptionsFile, cmd.InOrStdin())
	if err != nil {
		return store.Definition{}, fmt.Errorf("failed to read options: %w", err)
	}
	conds, err := readInput(fieldConditionsFile, cmd.InOrStdin())
	if err != nil {
		return store.Definition{}, fmt.Errorf("failed to read conditions: %w", err)
	}
	return store.Definition{Options: string(options), Conditions: string(conds)}, nil
}

func init() {
	for _, c := range []*cobra.Command{fieldCreateCmd, fieldSetCmd} {
		c.Flags().StringVar(&fieldOptionsFile, "options", "", "file with one option per line (- for stdin)")
		c.Flags().StringVar(&fieldConditionsFile, "conditions", "", "file with the condition configuration JSON (- for stdin)")
		c.Flags().BoolVar(&fieldHidden, "hidden-initially", false, "hide dependent fields until a choice is made")
	}
	fieldCreateCmd.Flags().StringVar(&fieldShortname, "shortname", "", "field shortname")
	fieldCreateCmd.Flags().StringVar(&fieldName, "name", "", "display name (defaults to the shortname)")
	fieldCreateCmd.Flags().StringVar(&fieldDatatype, "datatype", "text", "field datatype ("+types.DatatypeConditional+" for controlling fields)")
	fieldCreateCmd.Flags().IntVar(&fieldSortOrder, "sortorder", 0, "display position")

	fieldCmd.AddCommand(fieldCreateCmd, fieldSetCmd, fieldListCmd, fieldShowCmd)
	rootCmd.AddCommand(fieldCmd)
}
