package toolregistry

import "context"

// DefaultFactories returns the built-in local tool factories shipped with
// the core: presently just "echo", used by the S1/S2 end-to-end scenarios
// in spec.md §8 and as a smoke-test tool in deployments. Real deployments
// add their own handler keys (filesystem, code_parser, ...) via their own
// factory map merged with this one.
func DefaultFactories() map[string]Factory {
	return map[string]Factory{
		"echo": newEchoFactory,
	}
}

// newEchoFactory builds the echo tool's Handler: it returns its input
// verbatim, minus the orchestrator-injected workflow_id/node_id/debug_dir
// keys, matching spec.md §8 scenario S1 ("Echo tool returns
// {msg: <input.msg>}").
func newEchoFactory(_ map[string]any) (Handler, error) {
	return func(_ context.Context, args map[string]any) (any, error) {
		out := make(map[string]any, len(args))
		for k, v := range args {
			switch k {
			case "workflow_id", "node_id", "debug_dir":
				continue
			}
			out[k] = v
		}
		return out, nil
	}, nil
}
