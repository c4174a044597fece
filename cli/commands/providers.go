package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/hiddenpath/relay/drivers"
)

func (a *App) newProvidersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List driver styles and configured providers",
		RunE:  a.runProviders,
	}
}

func (a *App) runProviders(cmd *cobra.Command, args []string) error {
	styles := drivers.List()

	if a.jsonOutput {
		configured := make([]map[string]string, 0, len(a.cfg.Providers))
		for id, pc := range a.cfg.Providers {
			entry := map[string]string{"id": id}
			if pc.Style != "" {
				entry["style"] = pc.Style
			}
			if pc.BaseURL != "" {
				entry["base_url"] = pc.BaseURL
			}
			configured = append(configured, entry)
		}
		sort.Slice(configured, func(i, j int) bool { return configured[i]["id"] < configured[j]["id"] })

		return a.outputJSON(map[string]any{
			"styles":    styles,
			"providers": configured,
		})
	}

	fmt.Fprintln(a.stdout, "Driver styles:")
	for _, s := range styles {
		marker := ""
		if string(s) == a.provider {
			marker = " (default)"
		}
		fmt.Fprintf(a.stdout, "  - %s%s\n", s, marker)
	}

	if len(a.cfg.Providers) == 0 {
		return nil
	}

	ids := make([]string, 0, len(a.cfg.Providers))
	for id := range a.cfg.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	fmt.Fprintln(a.stdout, "Configured providers:")
	for _, id := range ids {
		pc := a.cfg.Providers[id]
		line := "  - " + id
		if pc.Style != "" {
			line += " (style: " + pc.Style + ")"
		}
		if pc.BaseURL != "" {
			line += " -> " + pc.BaseURL
		}
		fmt.Fprintln(a.stdout, line)
	}
	return nil
}
