package dyndag

import (
	"fmt"

	"github.com/algowizzzz/agentsmcp/internal/dagregistry"
	"github.com/algowizzzz/agentsmcp/internal/graph"
)

// fileSummarySections are the H1 section ids that additionally receive raw
// per-file summaries in their drafting context, grounded on
// dynamic_dag_generator.py::_create_section_nodes.
var fileSummarySections = map[string]struct{}{
	"implementation": {},
	"methodology":    {},
	"data":           {},
}

// Generate builds a dagregistry.File from a documentation template: three
// fixed preprocessing nodes, one draft_<section_id> node per H1 section,
// a fan-in assemble_document node, and a terminal write_final_doc node
// (spec.md §4.7). dagID defaults to "<template_name>_generated_dag" when
// empty.
func Generate(templateName string, t Template, dagID string) *dagregistry.File {
	if dagID == "" {
		dagID = templateName + "_generated_dag"
	}

	h1 := extractH1Sections(t)

	nodes := preprocessingNodes()
	nodes = append(nodes, sectionNodes(h1, templateName)...)
	nodes = append(nodes, assemblyNodes(h1)...)

	return &dagregistry.File{
		DAGID:       dagID,
		Name:        "Dynamic " + t.Name,
		Description: fmt.Sprintf("Auto-generated from template: %s. Adapts to template changes automatically.", t.Name),
		StartNodes:  []string{"scan_codebase"},
		Parameters:  parameters(templateName, dagID),
		Nodes:       nodes,
	}
}

func parameters(templateName, dagID string) map[string]dagregistry.ParameterSpec {
	return map[string]dagregistry.ParameterSpec{
		"codebase_path": {
			Description: "Path to the codebase to document",
			Required:    true,
			Type:        "string",
			Example:     "/path/to/project",
		},
		"output_path": {
			Description: "Path to write final documentation",
			Required:    false,
			Type:        "string",
			Default:     fmt.Sprintf("/tmp/workflowd_%s_output.md", dagID),
		},
		"template_name": {
			Description: "Template to use for documentation structure",
			Required:    false,
			Type:        "string",
			Default:     templateName,
		},
		"metadata": {
			Description: "Project metadata (name, version, authors, etc.)",
			Required:    false,
			Type:        "object",
			Default: map[string]any{
				"doc_id":           "AUTO-GENERATED",
				"model_name":       "Unknown Model",
				"doc_version":      "1.0",
				"status":           "Draft",
				"publication_date": "AUTO",
			},
		},
	}
}

func preprocessingNodes() []dagregistry.NodeFile {
	return []dagregistry.NodeFile{
		{
			NodeID:   "scan_codebase",
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "filesystem_tool",
				"input": map[string]any{
					"action":     "list_directory",
					"path":       "{codebase_path}",
					"extensions": []any{".py", ".js", ".ts", ".java", ".go", ".md", ".json"},
					"recursive":  true,
				},
			},
			Dependencies: nil,
		},
		{
			NodeID:   "parse_all_files",
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "code_parser_tool",
				"input": map[string]any{
					"action": "analyze_structure",
					"files":  "{scan_codebase.result.files}",
				},
			},
			Dependencies: []string{"scan_codebase"},
		},
		{
			NodeID:   "generate_file_summaries",
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "llm_summarization_tool",
				"input": map[string]any{
					"action":         "hierarchical_summary",
					"file_summaries": "{parse_all_files.result.summaries}",
					"use_mock":       false,
				},
			},
			Dependencies: []string{"parse_all_files"},
		},
	}
}

func sectionNodes(sections []Section, templateName string) []dagregistry.NodeFile {
	nodes := make([]dagregistry.NodeFile, 0, len(sections))
	for _, s := range sections {
		context := map[string]any{
			"hierarchical_summary": "{generate_file_summaries.result.hierarchical_summary}",
			"metadata":             "{metadata}",
		}
		if _, ok := fileSummarySections[s.ID]; ok {
			context["file_summaries"] = "{parse_all_files.result.summaries}"
		}

		nodes = append(nodes, dagregistry.NodeFile{
			NodeID:   "draft_" + s.ID,
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "section_drafting_tool",
				"input": map[string]any{
					"action":        "draft_section",
					"section_id":    s.ID,
					"template_name": "{template_name}",
					"context":       context,
					"use_mock":      false,
				},
			},
			Dependencies: []string{"generate_file_summaries"},
		})
	}
	return nodes
}

func assemblyNodes(sections []Section) []dagregistry.NodeFile {
	sectionIDs := make([]string, 0, len(sections))
	sectionsMapping := make(map[string]any, len(sections))
	for _, s := range sections {
		nodeID := "draft_" + s.ID
		sectionIDs = append(sectionIDs, nodeID)
		sectionsMapping[s.ID] = fmt.Sprintf("{%s.result}", nodeID)
	}

	return []dagregistry.NodeFile{
		{
			NodeID:   "assemble_document",
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "document_assembler_tool",
				"input": map[string]any{
					"action":        "assemble_document",
					"template_name": "{template_name}",
					"sections":      sectionsMapping,
					"metadata":      "{metadata}",
					"output_path":   nil,
				},
			},
			Dependencies: sectionIDs,
		},
		{
			NodeID:   "write_final_doc",
			NodeType: graph.KindTool,
			Config: map[string]any{
				"tool_name": "filesystem_tool",
				"input": map[string]any{
					"action":    "write_file",
					"file_path": "{output_path}",
					"content":   "{assemble_document.result.document}",
				},
			},
			Dependencies: []string{"assemble_document"},
		},
	}
}
