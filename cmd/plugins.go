package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/km-arc/pibox/framework/plugins"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("240"))
	rankStyles  = map[string]lipgloss.Style{
		"framework": lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
		"other":     lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"host":      lipgloss.NewStyle().Foreground(lipgloss.Color("46")),
	}
)

func newPluginsCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "Boot the host and print the plugins of every extension point in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := newApplication(flags, io.Discard)
			if err != nil {
				return err
			}
			if err := application.Boot(); err != nil {
				return err
			}
			defer func() { _ = application.Shutdown(context.WithoutCancel(cmd.Context())) }()

			sections := make([]string, 0, len(plugins.Points))
			for _, point := range plugins.Points {
				records, err := application.Plan(point)
				if err != nil {
					return err
				}
				sections = append(sections, renderPoint(point, records))
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), lipgloss.JoinVertical(lipgloss.Left, sections...))
			return err
		},
	}
}

// renderPoint renders one extension point as a fixed-width table.
func renderPoint(point plugins.Point, records []plugins.Record) string {
	rows := []string{
		titleStyle.Render(string(point)),
		headerStyle.Render(fmt.Sprintf("%-3s │ %-24s │ %-24s │ %-9s │ %s", "#", "PLUGIN", "COMPONENT", "RANK", "ORDER")),
	}
	if len(records) == 0 {
		rows = append(rows, headerStyle.Render("    (none)"))
	}
	for _, rec := range records {
		order := "-"
		if rec.Ordered {
			order = strconv.Itoa(rec.Order)
		}
		rank := rec.Rank.String()
		rows = append(rows, fmt.Sprintf("%-3d │ %-24s │ %-24s │ %s │ %s",
			rec.Index, rec.Plugin, rec.Component,
			rankStyles[rank].Render(fmt.Sprintf("%-9s", rank)), order))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(rows, "")...)
}
