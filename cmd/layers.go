package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"firestige.xyz/osisim/internal/core"
	"firestige.xyz/osisim/internal/core/codec"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "List layers, their codec variants and the built-in profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLayers(cmd.OutOrStdout())
	},
}

func runLayers(out io.Writer) error {
	r := lipgloss.NewRenderer(out)
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	cell := r.NewStyle()
	dim := r.NewStyle().Faint(true)

	const colLayer, colKey = 22, 14
	fmt.Fprintln(out, header.Width(colLayer).Render("LAYER")+header.Width(colKey).Render("KEY")+header.Render("VARIANTS"))
	for _, layer := range core.Layers() {
		fmt.Fprintln(out, cell.Width(colLayer).Render(layer.String())+
			cell.Width(colKey).Render(layer.Key())+
			cell.Render(strings.Join(codec.Variants(layer), ", ")))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, header.Render("PROFILES"))
	for _, name := range codec.Profiles() {
		variants, err := codec.Profile(name)
		if err != nil {
			return err
		}
		parts := make([]string, 0, len(variants))
		for _, layer := range core.Layers() {
			parts = append(parts, layer.Key()+"/"+variants[layer])
		}
		fmt.Fprintln(out, cell.Width(colLayer).Render(name)+dim.Render(strings.Join(parts, " ")))
	}
	return nil
}
