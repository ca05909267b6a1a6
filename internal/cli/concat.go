package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ivlev/bgvideo/internal/video"
)

func (a *app) concatCommand() *cobra.Command {
	var (
		dir  string
		name string
	)

	cmd := &cobra.Command{
		Use:   "concat",
		Short: "Rebuild the final video from segment files already on disk",
		Long: `Concatenates segment_NN.mp4 files of a previous run, in numeric order,
into <name>.mp4. Useful when a run stopped after some segments were saved.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dir == "" {
				dir = a.cfg.OutputDir
			}
			if dir == "" {
				return fmt.Errorf("--dir is required")
			}
			if name == "" {
				// videos/<name>/<timestamp>
				name = filepath.Base(filepath.Dir(filepath.Clean(dir)))
			}

			paths, err := video.LoadSegments(dir)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("%w in %s", video.ErrNoSegments, dir)
			}

			m, err := video.NewSegmentManager(name, dir, a.newEncoder(a.cfg), a.log)
			if err != nil {
				return err
			}
			if err := m.Adopt(ctx, paths); err != nil {
				return err
			}
			out, err := m.Save(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "directory holding segment_NN.mp4 files (default --output-dir)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "video name (default: name of the parent directory)")
	return cmd
}
