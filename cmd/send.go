package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/config"
	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/identity"
	"firestige.xyz/osisim/internal/log"
	"firestige.xyz/osisim/internal/medium"
)

type sendOptions struct {
	structured bool
	profile    string
	sender     string
	iface      string
	pcap       string
}

var sendOpts sendOptions

var sendCmd = &cobra.Command{
	Use:   "send [message...]",
	Short: "Send a message through the stack and receive it back",
	Long: `Encode a message top-down into a wire bit string, then decode it
bottom-up, tracing every layer.

The message is taken from the arguments, or from the first line of stdin
when no arguments are given.

Examples:
  osisim send "Hello, World!"
  osisim send --profile mac --sender aa:bb:cc:dd:ee:ff hi
  osisim send --structured '{"id": 7, "tags": ["a"]}'
  echo hello | osisim send --pcap wire.pcap`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(globalConfig, sendOpts, args, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	sendCmd.Flags().BoolVar(&sendOpts.structured, "structured", false, "parse the message as JSON and send it as a structured value")
	sendCmd.Flags().StringVarP(&sendOpts.profile, "profile", "p", "", "stack profile: binary, marker, mac")
	sendCmd.Flags().StringVar(&sendOpts.sender, "sender", "", "sender id embedded by MAC framing")
	sendCmd.Flags().StringVarP(&sendOpts.iface, "interface", "i", "", "interface to take the sender MAC from")
	sendCmd.Flags().StringVar(&sendOpts.pcap, "pcap", "", "record the wire frame into this pcap file")
}

func runSend(base *config.GlobalConfig, opts sendOptions, args []string, in io.Reader, out io.Writer) error {
	cfg := *base
	if opts.profile != "" {
		cfg.Stack.Profile = opts.profile
	}
	if opts.sender != "" {
		cfg.Stack.Sender.ID = opts.sender
	}
	if opts.iface != "" {
		cfg.Stack.Sender.Interface = opts.iface
	}
	if opts.pcap != "" {
		cfg.Capture.Pcap.Enabled = true
		cfg.Capture.Pcap.Path = opts.pcap
	}

	message, err := readMessage(args, in)
	if err != nil {
		return err
	}
	payload, err := toPayload(message, opts.structured)
	if err != nil {
		return err
	}

	p, err := newPipeline(&cfg, out)
	if err != nil {
		return err
	}
	senderID := identity.Resolve(cfg.Stack.Sender)
	log.GetLogger().WithFields(map[string]interface{}{
		"profile": cfg.Stack.Profile,
		"sender":  senderID,
	}).Debug("sending message")

	wire, err := p.Send(payload, core.Metadata{SenderID: senderID})
	if err != nil {
		return fmt.Errorf("send failed: %w", err)
	}
	fmt.Fprintf(out, "Wire (%d bits): %s\n", len(wire), wire)

	if cfg.Capture.Pcap.Enabled {
		if err := record(cfg.Capture.Pcap.Path, wire, senderID); err != nil {
			return err
		}
		fmt.Fprintf(out, "Recorded to %s\n", cfg.Capture.Pcap.Path)
	}

	got, err := p.Receive(wire)
	if err != nil {
		return fmt.Errorf("receive failed: %w", err)
	}
	fmt.Fprintf(out, "Received: %s\n", got)
	return nil
}

func readMessage(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	sc := bufio.NewScanner(in)
	if sc.Scan() {
		return sc.Text(), nil
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}
	return "", fmt.Errorf("no message given")
}

func toPayload(message string, structured bool) (core.Payload, error) {
	if !structured {
		return core.TextPayload(message), nil
	}
	var v any
	if err := json.Unmarshal([]byte(message), &v); err != nil {
		return core.Payload{}, fmt.Errorf("invalid structured message: %w", err)
	}
	return core.StructuredPayload(v)
}

func record(path string, wire []byte, senderID string) error {
	rec, err := medium.Create(path)
	if err != nil {
		return err
	}
	if err := rec.Record(wire, senderID); err != nil {
		return errors.Join(err, rec.Close())
	}
	return rec.Close()
}
