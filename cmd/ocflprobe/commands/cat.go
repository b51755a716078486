package commands

import (
	"fmt"

	"ocflprobe/pkg/app"
	"ocflprobe/pkg/exporter"
	"ocflprobe/pkg/types"

	"github.com/spf13/cobra"
)

var (
	catVersion string
	catExport  string
)

var catCmd = &cobra.Command{
	Use:   "cat <object-id>",
	Short: "Show a version of an object",
	Long: `Print the metadata and file listing of an object version (head by default).
The connection is read from config/env/flags. With --export the version is also
downloaded into the given directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id := types.ObjectID(args[0])

		v, err := types.ParseVersionNum(catVersion)
		if err != nil {
			return err
		}
		ovid := types.AtVersion(id, v)

		conn, err := staticConnection().Connection(ctx)
		if err != nil {
			return err
		}
		opts := app.OptionsFromViper()
		opts.Logger = logger
		client, err := app.NewClient(ctx, conn, workDir(), opts)
		if err != nil {
			return err
		}
		defer client.Close()

		version, state, err := client.DescribeObject(ctx, ovid)
		if err != nil {
			return fmt.Errorf("cat failed: %w", err)
		}
		if err := exporter.PrintVersion(version, state, cmd.OutOrStdout()); err != nil {
			return err
		}

		if catExport != "" {
			if _, err := client.GetObject(ctx, ovid, catExport); err != nil {
				return fmt.Errorf("export failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nExported %s to %s\n", ovid, catExport)
		}
		return nil
	},
}

func init() {
	catCmd.Flags().StringVar(&catVersion, "version", "head", "version to show (v1, v2, ... or head)")
	catCmd.Flags().StringVar(&catExport, "export", "", "also download the version into this directory")
	rootCmd.AddCommand(catCmd)
}
