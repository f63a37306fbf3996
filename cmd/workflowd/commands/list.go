package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listDAGsCmd = &cobra.Command{
	Use:   "list-dags",
	Short: "List every registered DAG",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "DAG_ID\tNAME\tNODES")
		for _, s := range dagReg.List() {
			fmt.Fprintf(w, "%s\t%s\t%d\n", s.DAGID, s.Name, s.NodeCount)
		}
		return w.Flush()
	},
}

var listToolsCmd = &cobra.Command{
	Use:   "list-tools",
	Short: "List every loaded tool, with remote endpoint health",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tKIND\tENABLED")
		for _, d := range toolReg.List() {
			fmt.Fprintf(w, "%s\t%s\t%t\n", d.Name, d.Kind, d.Enabled)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		statuses := toolReg.RemoteStatuses(context.Background())
		if len(statuses) == 0 {
			return nil
		}
		fmt.Println("\nremote endpoints:")
		rw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(rw, "NAME\tURL\tONLINE\tTOOLS")
		for _, s := range statuses {
			fmt.Fprintf(rw, "%s\t%s\t%t\t%d\n", s.Name, s.URL, s.Online, s.ToolCount)
		}
		return rw.Flush()
	},
}

var listAgentsCmd = &cobra.Command{
	Use:   "list-agents",
	Short: "List every loaded agent descriptor",
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT_ID\tNAME\tPROVIDER\tMODEL")
		for _, d := range agentReg.List() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.AgentID, d.Name, d.Provider, d.Model)
		}
		return w.Flush()
	},
}
