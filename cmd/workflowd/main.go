// Command workflowd is the process entry point that wires the graph, DAG
// registry, tool/agent registries, LLM facade, persistent store, and
// orchestrator into a runnable CLI, grounded on cmd/task-cli in the
// go-coffee example repo (cobra root command + viper-backed config.Load).
package main

import "github.com/algowizzzz/agentsmcp/cmd/workflowd/commands"

func main() {
	commands.Execute()
}
