package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/veil-sh/veil/internal/db"
	"github.com/veil-sh/veil/internal/errors"
	"github.com/veil-sh/veil/internal/ops"
)

// Handlers contains HTTP route handlers for the read-only web viewer. The
// viewer is started from the CLI by a logged-in user and shows only that
// user's projects; session carries the authenticated user.
type Handlers struct {
	db       *sql.DB
	session  ops.Session
	renderer *Renderer
}

// HandleProjects handles GET /projects — list the user's projects.
func (h *Handlers) HandleProjects(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListProjects(h.db, h.session)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "projects", ProjectsPageData{
		PageData: PageData{
			Title:   "Projects",
			Version: h.renderer.version,
			Nav:     "projects",
		},
		Projects: result.Projects,
	})
}

// HandleProjectDetail handles GET /projects/{id} — notes, mappings, files,
// and history for one project.
func (h *Handlers) HandleProjectDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid project id"))
		return
	}

	// Viewing a project is the same ownership check as operating on it.
	s := ops.Session{UserID: h.session.UserID, ProjectID: id}

	mappings, err := ops.ListMappings(h.db, s)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	files, err := ops.ListFiles(h.db, s)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	history, err := ops.ListHistory(h.db, s)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	project, err := db.GetProject(h.db, id)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "project", ProjectPageData{
		PageData: PageData{
			Title:   project.Name,
			Version: h.renderer.version,
			Nav:     "projects",
		},
		Project:   *project,
		NotesHTML: renderMarkdown(project.Notes),
		Mappings:  mappings.Mappings,
		Files:     files.Files,
		History:   history.Entries,
	})
}
