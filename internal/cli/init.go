package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/bgvideo/internal/director"
)

func (a *app) initCommand() *cobra.Command {
	var (
		dir   string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write example scenario files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, s := range director.Examples() {
				path := filepath.Join(dir, s.VideoName+".yaml")
				if _, err := os.Stat(path); err == nil && !force {
					fmt.Fprintf(out, "[=] %s exists, skipping\n", path)
					continue
				}
				if err := director.WriteScenario(s, path); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				fmt.Fprintf(out, "[+] %s\n", path)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", director.ScenariosDir, "directory for the scenario files")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")
	return cmd
}
