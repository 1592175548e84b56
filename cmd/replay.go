package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/log"
	"firestige.xyz/osisim/internal/medium"
)

var replayFile string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Decode every wire frame recorded in a pcap file",
	Long: `Read frames recorded by 'osisim send --pcap' and run each one up the
configured stack. The stack must match the one used for recording.

Examples:
  osisim replay -f wire.pcap
  osisim replay -f wire.pcap -c mac.yml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReplay(globalConfig, replayFile, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "pcap file to replay (required)")
	replayCmd.MarkFlagRequired("file")
}

func runReplay(cfg *config.GlobalConfig, path string, out io.Writer) error {
	frames, err := medium.Open(path)
	if err != nil {
		return err
	}
	p, err := newPipeline(cfg, out)
	if err != nil {
		return err
	}

	failed := 0
	for i, f := range frames {
		got, err := p.Receive(f.Wire)
		if err != nil {
			failed++
			log.GetLogger().WithError(err).WithField("frame", i+1).Warn("replay failed")
			fmt.Fprintf(out, "#%d from %s: ERROR %v\n", i+1, f.Sender, err)
			continue
		}
		fmt.Fprintf(out, "#%d from %s: %s\n", i+1, f.Sender, got)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d frames failed to decode", failed, len(frames))
	}
	fmt.Fprintf(out, "Replayed %d frame(s)\n", len(frames))
	return nil
}
