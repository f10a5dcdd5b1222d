package mcp

import (
	"database/sql"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/detect"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"veil_register": {
		def:     registerToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRegister },
	},
	"veil_login": {
		def:     loginToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogin },
	},
	"veil_logout": {
		def:     logoutToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLogout },
	},
	"veil_project_create": {
		def:     projectCreateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectCreate },
	},
	"veil_project_select": {
		def:     projectSelectToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectSelect },
	},
	"veil_project_list": {
		def:     projectListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProjectList },
	},
	"veil_files_add": {
		def:     filesAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilesAdd },
	},
	"veil_files_list": {
		def:     filesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFilesList },
	},
	"veil_names_add": {
		def:     namesAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNamesAdd },
	},
	"veil_names_list": {
		def:     namesListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNamesList },
	},
	"veil_names_delete": {
		def:     namesDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleNamesDelete },
	},
	"veil_obscure_text": {
		def:     obscureTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleObscureText },
	},
	"veil_restore_text": {
		def:     restoreTextToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestoreText },
	},
	"veil_obscure_files": {
		def:     obscureFilesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleObscureFiles },
	},
	"veil_restore_files": {
		def:     restoreFilesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestoreFiles },
	},
	"veil_mappings_list": {
		def:     mappingsListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMappingsList },
	},
	"veil_history_list": {
		def:     historyListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHistoryList },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates a new MCP server with Veil tools registered.
// Tools listed in cfg.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, det *detect.Detector, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"veil",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, det)

	disabled := make(map[string]bool, len(cfg.DisabledTools))
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, det *detect.Detector, version string) error {
	s := NewServer(db, cfg, det, version)
	return server.ServeStdio(s)
}
