package orchestrator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/algowizzzz/agentsmcp/internal/graph"
)

// placeholderPattern matches {node_id.result(.key)*} and, additively per the
// bare-parameter form this module adds to spec.md's grammar, {param_name}
// (no ".result" segment). Both are resolved by substituteValue below.
var placeholderPattern = regexp.MustCompile(`^\{([A-Za-z0-9_]+)((?:\.[A-Za-z0-9_]+)*)\}$`)

// embeddedPlaceholderPattern finds placeholders that occur inside a larger
// string, where only string-typed results may be spliced in.
var embeddedPlaceholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_]+)((?:\.[A-Za-z0-9_]+)*)\}`)

// substituteInput walks input (the node's config.input value; the rest of
// the config is not substituted) replacing placeholder leaves with values drawn
// from completed upstream node results and from params (the workflow's
// parameter snapshot, resolved under bare {param_name} tokens). It never
// mutates its argument; it returns a fresh value tree. A whole-string leaf
// matching the grammar is replaced with the typed referenced value; a
// leaf with an embedded placeholder requires the reference to resolve to a
// string, else a *SubstitutionError is returned.
func substituteInput(nodeID string, input any, results map[string]*graph.Node, params map[string]any) (any, error) {
	return substituteValue(nodeID, input, results, params)
}

func substituteValue(nodeID string, v any, results map[string]*graph.Node, params map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		return substituteString(nodeID, val, results, params)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			sub, err := substituteValue(nodeID, child, results, params)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			sub, err := substituteValue(nodeID, child, results, params)
			if err != nil {
				return nil, err
			}
			out[i] = sub
		}
		return out, nil
	default:
		return v, nil
	}
}

func substituteString(nodeID, s string, results map[string]*graph.Node, params map[string]any) (any, error) {
	if m := placeholderPattern.FindStringSubmatch(s); m != nil {
		resolved, ok, err := resolvePlaceholder(nodeID, s, m[1], m[2], results, params)
		if err != nil {
			return nil, err
		}
		if !ok {
			return s, nil // unresolved reference: left in place per spec.md §4.6
		}
		return resolved, nil
	}

	if !embeddedPlaceholderPattern.MatchString(s) {
		return s, nil
	}

	var substErr error
	out := embeddedPlaceholderPattern.ReplaceAllStringFunc(s, func(token string) string {
		if substErr != nil {
			return token
		}
		m := embeddedPlaceholderPattern.FindStringSubmatch(token)
		resolved, ok, err := resolvePlaceholder(nodeID, token, m[1], m[2], results, params)
		if err != nil {
			substErr = err
			return token
		}
		if !ok {
			return token
		}
		str, isStr := resolved.(string)
		if !isStr {
			substErr = &SubstitutionError{NodeID: nodeID, Placeholder: token, Reason: "embedded placeholder requires a string-valued reference"}
			return token
		}
		return str
	})
	if substErr != nil {
		return nil, substErr
	}
	return out, nil
}

// resolvePlaceholder resolves the root token (node id or param name) plus
// dotted path segments. ok is false when the reference is to a node that
// has not completed or does not exist — the caller leaves the placeholder
// untouched in that case, per spec.md §4.6.
func resolvePlaceholder(nodeID, token, root, dotted string, results map[string]*graph.Node, params map[string]any) (any, bool, error) {
	segments := splitDotted(dotted)

	if n, ok := results[root]; ok {
		if len(segments) == 0 || segments[0] != "result" {
			return nil, false, nil
		}
		if n.Status != graph.StatusCompleted || n.Result == nil {
			return nil, false, nil
		}
		val, err := navigate(n.Result, segments[1:])
		if err != nil {
			return nil, false, &SubstitutionError{NodeID: nodeID, Placeholder: token, Reason: err.Error()}
		}
		return val, true, nil
	}

	if params != nil {
		if val, ok := params[root]; ok {
			navigated, err := navigate(val, segments)
			if err != nil {
				return nil, false, &SubstitutionError{NodeID: nodeID, Placeholder: token, Reason: err.Error()}
			}
			return navigated, true, nil
		}
	}

	return nil, false, nil
}

func splitDotted(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(s, "."), ".")
	return parts
}

func navigate(v any, keys []string) (any, error) {
	cur := v
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, errNavigate("cannot navigate key %q into non-object value", k)
		}
		next, ok := m[k]
		if !ok {
			return nil, errNavigate("key %q not found", k)
		}
		cur = next
	}
	return cur, nil
}

func errNavigate(format string, args ...any) error {
	return &navigateError{msg: fmt.Sprintf(format, args...)}
}

type navigateError struct{ msg string }

func (e *navigateError) Error() string { return e.msg }
