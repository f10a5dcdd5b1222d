package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/detect"
	"github.com/veil-sh/veil/internal/errors"
	"github.com/veil-sh/veil/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers. The stdio transport
// serves one local client, so the logged-in session lives here, guarded by
// a mutex since the SDK may dispatch tool calls concurrently.
type Handlers struct {
	db  *sql.DB
	cfg *config.Config
	det *detect.Detector

	mu      sync.Mutex
	session ops.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, det *detect.Detector) *Handlers {
	return &Handlers{db: db, cfg: cfg, det: det}
}

func (h *Handlers) currentSession() ops.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session
}

func (h *Handlers) setSession(s ops.Session) {
	h.mu.Lock()
	h.session = s
	h.mu.Unlock()
}

func (h *Handlers) setProject(projectID int64) {
	h.mu.Lock()
	h.session.ProjectID = projectID
	h.mu.Unlock()
}

// Request types for each tool

// RegisterRequest represents the arguments for register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginRequest represents the arguments for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ProjectCreateRequest represents the arguments for project_create.
type ProjectCreateRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes,omitempty"`
}

// ProjectSelectRequest represents the arguments for project_select.
type ProjectSelectRequest struct {
	ProjectID int64  `json:"project_id,omitempty"`
	Name      string `json:"name,omitempty"`
}

// FilesAddRequest represents the arguments for files_add.
type FilesAddRequest struct {
	Paths []string `json:"paths"`
}

// NamesAddRequest represents the arguments for names_add.
type NamesAddRequest struct {
	Scope    string   `json:"scope"`
	Names    []string `json:"names,omitempty"`
	FromFile string   `json:"from_file,omitempty"`
}

// NamesListRequest represents the arguments for names_list.
type NamesListRequest struct {
	Scope string `json:"scope"`
}

// NamesDeleteRequest represents the arguments for names_delete.
type NamesDeleteRequest struct {
	Scope string `json:"scope"`
	Name  string `json:"name"`
}

// TextRequest represents the arguments for obscure_text and restore_text.
type TextRequest struct {
	Text string `json:"text"`
}

// PathsRequest represents the arguments for obscure_files and restore_files.
type PathsRequest struct {
	Paths []string `json:"paths"`
}

// Handler implementations

// HandleRegister handles the register tool call.
func (h *Handlers) HandleRegister(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RegisterRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Register(h.db, ops.RegisterInput{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleLogin handles the login tool call. On success the session is set
// for all subsequent tool calls, with the user's last project active.
func (h *Handlers) HandleLogin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LoginRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Login(h.db, ops.LoginInput{
		Username: input.Username,
		Password: input.Password,
	})
	if err != nil {
		return errorResult(err), nil
	}

	s := ops.Session{UserID: result.UserID}
	if result.LastProjectID != nil {
		s.ProjectID = *result.LastProjectID
	}
	h.setSession(s)

	return successResult(result)
}

// HandleLogout handles the logout tool call.
func (h *Handlers) HandleLogout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	h.setSession(ops.Session{})
	return successResult(map[string]any{"logged_out": true})
}

// HandleProjectCreate handles the project_create tool call.
func (h *Handlers) HandleProjectCreate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectCreateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.CreateProject(h.db, h.currentSession(), ops.CreateProjectInput{
		Name:  input.Name,
		Notes: input.Notes,
	})
	if err != nil {
		return errorResult(err), nil
	}
	h.setProject(result.Project.ID)

	return successResult(result)
}

// HandleProjectSelect handles the project_select tool call.
func (h *Handlers) HandleProjectSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ProjectSelectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SelectProject(h.db, h.currentSession(), ops.SelectProjectInput{
		ProjectID: input.ProjectID,
		Name:      input.Name,
	})
	if err != nil {
		return errorResult(err), nil
	}
	h.setProject(result.Project.ID)

	return successResult(result)
}

// HandleProjectList handles the project_list tool call.
func (h *Handlers) HandleProjectList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListProjects(h.db, h.currentSession())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilesAdd handles the files_add tool call.
func (h *Handlers) HandleFilesAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[FilesAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddFiles(h.db, h.currentSession(), ops.AddFilesInput{Paths: input.Paths})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleFilesList handles the files_list tool call.
func (h *Handlers) HandleFilesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListFiles(h.db, h.currentSession())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNamesAdd handles the names_add tool call.
func (h *Handlers) HandleNamesAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NamesAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.AddNames(h.db, h.currentSession(), ops.AddNamesInput{
		Scope:    ops.NameScope(input.Scope),
		Names:    input.Names,
		FromFile: input.FromFile,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNamesList handles the names_list tool call.
func (h *Handlers) HandleNamesList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NamesListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ListNames(h.db, h.currentSession(), ops.NameScope(input.Scope))
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleNamesDelete handles the names_delete tool call.
func (h *Handlers) HandleNamesDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[NamesDeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	if err := ops.DeleteName(h.db, h.currentSession(), ops.DeleteNameInput{
		Scope: ops.NameScope(input.Scope),
		Name:  input.Name,
	}); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"deleted": input.Name})
}

// HandleObscureText handles the obscure_text tool call.
func (h *Handlers) HandleObscureText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ObscureText(h.db, h.det, h.currentSession(), ops.ObscureTextInput{Text: input.Text})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRestoreText handles the restore_text tool call.
func (h *Handlers) HandleRestoreText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TextRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RestoreText(h.db, h.currentSession(), ops.RestoreTextInput{Text: input.Text})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleObscureFiles handles the obscure_files tool call.
func (h *Handlers) HandleObscureFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ObscureFiles(h.db, h.det, h.currentSession(), ops.ObscureFilesInput{Paths: input.Paths})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRestoreFiles handles the restore_files tool call.
func (h *Handlers) HandleRestoreFiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.RestoreFiles(h.db, h.currentSession(), ops.RestoreFilesInput{Paths: input.Paths})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleMappingsList handles the mappings_list tool call.
func (h *Handlers) HandleMappingsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListMappings(h.db, h.currentSession())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleHistoryList handles the history_list tool call.
func (h *Handlers) HandleHistoryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListHistory(h.db, h.currentSession())
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if veilErr, ok := err.(*errors.VeilError); ok {
		errorObj := map[string]any{
			"code":    veilErr.Code,
			"message": veilErr.Message,
			"status":  veilErr.Status,
		}
		// Only include details for non-internal errors to avoid leaking
		// sensitive info like file paths or SQL errors
		if veilErr.Code != errors.ErrInternal && veilErr.Details != nil {
			errorObj["details"] = veilErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
