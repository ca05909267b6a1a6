package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ivlev/bgvideo/internal/director"
	"github.com/ivlev/bgvideo/internal/engine"
	"github.com/ivlev/bgvideo/internal/source"
	"github.com/ivlev/bgvideo/internal/system"
)

func (a *app) generateCommand() *cobra.Command {
	var (
		scenarioPath string
		baseImage    string
		basePage     int
		showStats    bool
		concatMode   string
		chain        bool
		resolution   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a background video from a scenario file",
		Long: `Generates the base image, one clip per segment and the final video.
Segments without an action reuse a single base clip. With --chain every
clip starts from the last frame of the one before it.
Without --scenario the newest file in ./scenarios is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if scenarioPath == "" {
				latest, err := director.FindLatestScenario(director.ScenariosDir)
				if err != nil {
					return fmt.Errorf("%w (run `bgvideo init` or pass --scenario)", err)
				}
				scenarioPath = latest
			}
			scenario, err := director.ReadScenario(scenarioPath)
			if err != nil {
				return fmt.Errorf("scenario %s: %w", scenarioPath, err)
			}

			if showStats {
				a.cfg.ShowStats = true
			}
			if concatMode != "" {
				a.cfg.ConcatMode = concatMode
			}
			if chain {
				a.cfg.Chain = true
			}
			if resolution != "" {
				a.cfg.Resolution = resolution
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			gens, err := a.newGenerators(ctx, a.cfg, a.log)
			if err != nil {
				return err
			}

			project := engine.NewVideoProject(a.cfg, scenario, gens.images, gens.videos, a.newEncoder(a.cfg), a.log)
			if baseImage != "" {
				src, page, err := openBaseSource(baseImage, basePage)
				if err != nil {
					return err
				}
				defer src.Close()
				project.Source = src
				project.SourcePage = page
			}

			a.log.Info("Using scenario", zap.String("path", scenarioPath))
			out, err := project.Run(ctx)
			if err != nil {
				return fmt.Errorf("generate %s: %w", scenario.VideoName, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "scenario YAML file")
	cmd.Flags().StringVar(&baseImage, "base-image", "", "use a local image, image directory or PDF instead of Imagen")
	cmd.Flags().IntVar(&basePage, "base-page", 0, "1-based PDF page or image number in a directory (default: first page, newest image)")
	cmd.Flags().BoolVar(&showStats, "stats", false, "print a performance report")
	cmd.Flags().StringVar(&concatMode, "concat-mode", "", "reencode or copy")
	cmd.Flags().BoolVar(&chain, "chain", false, "start each clip from the previous clip's last frame")
	cmd.Flags().StringVar(&resolution, "resolution", "", "720p or 1080p (default: model default)")
	return cmd
}

// openBaseSource opens a PDF, an image or an image directory and returns the
// 0-based page to use. page is 1-based; 0 selects the first PDF page or the
// newest image of a directory.
func openBaseSource(path string, page int) (source.Source, int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if fi.IsDir() && page == 0 {
		latest, err := system.FindLatestImage(path)
		if err != nil {
			return nil, 0, err
		}
		path = latest
	}

	src, err := source.Open(path)
	if err != nil {
		return nil, 0, err
	}
	if page > 0 {
		page--
	}
	if page >= src.PageCount() {
		src.Close()
		return nil, 0, fmt.Errorf("%s has %d pages, asked for %d", path, src.PageCount(), page+1)
	}
	return src, page, nil
}
