package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AndreLecona/Dotate/internal/adapter/ecod"
)

var mappingCmd = &cobra.Command{
	Use:   "mapping",
	Short: "Manage the ECOD identifier mapping database",
}

var (
	mappingDB      string
	mappingRelease string
)

var mappingImportCmd = &cobra.Command{
	Use:   "import <mapping.json|mapping.tsv>",
	Short: "Compile a name-to-f_id mapping into a database",
	Long: `Import reads a mapping source (a {"name": "f_id"} JSON object or a
two-column TSV) and compiles it into a database that annotate runs open with
--mapping. The previous contents of the database are replaced.`,
	Args: cobra.ExactArgs(1),
	RunE: runMappingImport,
}

var mappingLookupCmd = &cobra.Command{
	Use:   "lookup <name...>",
	Short: "Resolve profile names against the mapping database",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMappingLookup,
}

var mappingStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show mapping database release and size",
	Args:  cobra.NoArgs,
	RunE:  runMappingStats,
}

func init() {
	mappingCmd.PersistentFlags().StringVar(&mappingDB, "db", "ecod.db", "mapping database path")
	mappingImportCmd.Flags().StringVar(&mappingRelease, "release", "", "ECOD release the mapping was taken from")
	mappingCmd.AddCommand(mappingImportCmd)
	mappingCmd.AddCommand(mappingLookupCmd)
	mappingCmd.AddCommand(mappingStatsCmd)
	rootCmd.AddCommand(mappingCmd)
}

func runMappingImport(cmd *cobra.Command, args []string) error {
	table, err := ecod.LoadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}

	st, err := ecod.Open(mappingDB)
	if err != nil {
		return err
	}
	defer st.Close()

	n, err := st.Import(table.Entries(), mappingRelease)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d entries into %s\n", n, mappingDB)
	if mappingRelease != "" {
		fmt.Printf("Release: %s\n", mappingRelease)
	}
	return nil
}

func runMappingLookup(cmd *cobra.Command, args []string) error {
	st, err := ecod.OpenReadOnly(mappingDB)
	if err != nil {
		return err
	}
	defer st.Close()

	for _, name := range args {
		fid, ok, err := st.Lookup(name)
		if err != nil {
			return err
		}
		if ok {
			fmt.Printf("%s\t%s\n", name, fid)
		} else {
			fmt.Printf("%s\t%s\t(unmapped)\n", name, fid)
		}
	}
	return nil
}

func runMappingStats(cmd *cobra.Command, args []string) error {
	st, err := ecod.OpenReadOnly(mappingDB)
	if err != nil {
		return err
	}
	defer st.Close()

	release, count, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Printf("Mapping database: %s\n", mappingDB)
	fmt.Printf("  Entries: %d\n", count)
	if release != "" {
		fmt.Printf("  Release: %s\n", release)
	}
	return nil
}
