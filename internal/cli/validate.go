package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ivlev/bgvideo/internal/director"
)

func (a *app) validateCommand() *cobra.Command {
	var (
		checkConfig bool
		showPrompts bool
	)

	cmd := &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files and print their segment plan",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			d := director.NewDirector()

			var failed []string
			for _, path := range args {
				scenario, err := director.ReadScenario(path)
				if err != nil {
					fmt.Fprintf(out, "[-] %s: %v\n", path, err)
					failed = append(failed, path)
					continue
				}
				plans, err := d.Plan(scenario)
				if err != nil {
					fmt.Fprintf(out, "[-] %s: %v\n", path, err)
					failed = append(failed, path)
					continue
				}

				calls := len(scenario.Actions)
				if scenario.NeedsBaseClip() {
					calls++
				}
				fmt.Fprintf(out, "[+] %s: %s, %d segments (%ds), %d video generations\n",
					path, scenario.VideoName, scenario.Length, scenario.Length*a.cfg.SegmentSeconds, calls)
				for _, p := range plans {
					kind := "base"
					if !p.Base {
						kind = "action"
					}
					fmt.Fprintf(out, "    segment_%02d.mp4  %s\n", p.Index+1, kind)
					if showPrompts {
						fmt.Fprintf(out, "      %s\n", strings.ReplaceAll(p.Prompt, "\n\n", "\n      "))
					}
				}
			}

			if checkConfig {
				if err := a.cfg.Validate(); err != nil {
					fmt.Fprintf(out, "[-] config: %v\n", err)
					failed = append(failed, "config")
				} else {
					fmt.Fprintln(out, "[+] config ok")
				}
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d invalid: %s", len(failed), strings.Join(failed, ", "))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&checkConfig, "check-config", false, "also validate the loaded configuration")
	cmd.Flags().BoolVar(&showPrompts, "prompts", false, "print the assembled prompt of every segment")
	return cmd
}
