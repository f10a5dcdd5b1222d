package mcp

import "github.com/mark3labs/mcp-go/mcp"

// Tool definitions. Descriptions are what MCP clients show the model, so
// they state when to use the tool and what comes back.

var stringItems = map[string]any{"type": "string"}

var registerToolDef = mcp.NewTool("veil_register",
	mcp.WithDescription("Create a new Veil account. Returns the new user id. Does not log in."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Account name, unique across the database")),
	mcp.WithString("password", mcp.Required(), mcp.Description("Password, at least 8 characters")),
)

var loginToolDef = mcp.NewTool("veil_login",
	mcp.WithDescription("Log in and start a session. The last-selected project, if any, becomes active again."),
	mcp.WithString("username", mcp.Required(), mcp.Description("Account name")),
	mcp.WithString("password", mcp.Required(), mcp.Description("Account password")),
)

var logoutToolDef = mcp.NewTool("veil_logout",
	mcp.WithDescription("End the current session."),
)

var projectCreateToolDef = mcp.NewTool("veil_project_create",
	mcp.WithDescription("Create a project and make it the active one. Mappings and pseudonym counters are scoped per project."),
	mcp.WithString("name", mcp.Required(), mcp.Description("Project name, unique per account")),
	mcp.WithString("notes", mcp.Description("Free-form project notes (markdown)")),
)

var projectSelectToolDef = mcp.NewTool("veil_project_select",
	mcp.WithDescription("Switch the active project by id or name. Only the owner may select a project."),
	mcp.WithNumber("project_id", mcp.Description("Project id")),
	mcp.WithString("name", mcp.Description("Project name, resolved among your own projects")),
)

var projectListToolDef = mcp.NewTool("veil_project_list",
	mcp.WithDescription("List your projects, oldest first."),
)

var filesAddToolDef = mcp.NewTool("veil_files_add",
	mcp.WithDescription("Register file paths with the active project. Only a hash of each path is stored."),
	mcp.WithArray("paths", mcp.Required(), mcp.Description("File paths to register"), mcp.Items(stringItems)),
)

var filesListToolDef = mcp.NewTool("veil_files_list",
	mcp.WithDescription("List the active project's registered files, most recently used first."),
)

var namesAddToolDef = mcp.NewTool("veil_names_add",
	mcp.WithDescription("Add names to the user or project known-name list. Known names are always obscured as PERSON, even when detection would miss them."),
	mcp.WithString("scope", mcp.Required(), mcp.Description("Which list to add to: user or project"), mcp.Enum("user", "project")),
	mcp.WithArray("names", mcp.Description("Names to add"), mcp.Items(stringItems)),
	mcp.WithString("from_file", mcp.Description("Path to a file of comma- or newline-separated names")),
)

var namesListToolDef = mcp.NewTool("veil_names_list",
	mcp.WithDescription("List one known-name list."),
	mcp.WithString("scope", mcp.Required(), mcp.Description("Which list: user or project"), mcp.Enum("user", "project")),
)

var namesDeleteToolDef = mcp.NewTool("veil_names_delete",
	mcp.WithDescription("Remove one name from a known-name list. Existing mappings keep working; already-obscured documents still restore."),
	mcp.WithString("scope", mcp.Required(), mcp.Description("Which list: user or project"), mcp.Enum("user", "project")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Exact name to remove")),
)

var obscureTextToolDef = mcp.NewTool("veil_obscure_text",
	mcp.WithDescription("Replace sensitive spans in text with project-stable pseudonyms (Person_001, Org_002, ...). Re-running on the same text gives the same output. Dates, quarters, and seasons are never touched."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to obscure")),
)

var restoreTextToolDef = mcp.NewTool("veil_restore_text",
	mcp.WithDescription("Reverse obscuring: replace pseudonyms in text with the original values from the active project's mapping table."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text containing pseudonyms")),
)

var obscureFilesToolDef = mcp.NewTool("veil_obscure_files",
	mcp.WithDescription("Obscure each listed file, writing Obscured_<name> next to the source. Per-file failures do not stop the batch."),
	mcp.WithArray("paths", mcp.Required(), mcp.Description("UTF-8 text files to obscure"), mcp.Items(stringItems)),
)

var restoreFilesToolDef = mcp.NewTool("veil_restore_files",
	mcp.WithDescription("Restore each listed file, writing Restored_<name> next to the source. Per-file failures do not stop the batch."),
	mcp.WithArray("paths", mcp.Required(), mcp.Description("Previously obscured files"), mcp.Items(stringItems)),
)

var mappingsListToolDef = mcp.NewTool("veil_mappings_list",
	mcp.WithDescription("List the active project's value-to-pseudonym mappings, oldest first."),
)

var historyListToolDef = mcp.NewTool("veil_history_list",
	mcp.WithDescription("List the active project's obscure runs (run id plus input/output content hashes), newest first."),
)
