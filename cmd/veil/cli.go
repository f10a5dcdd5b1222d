package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/veil-sh/veil/internal/detect"
	"github.com/veil-sh/veil/internal/errors"
	"github.com/veil-sh/veil/internal/ops"
	"github.com/veil-sh/veil/internal/web"
)

// newCLIApp creates the CLI application with all commands. baseDir holds the
// persisted session so login survives across invocations.
func newCLIApp(db *sql.DB, det *detect.Detector, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "veil",
		Usage:   "Reversible document anonymizer",
		Version: Version,
		Commands: []*cli.Command{
			registerCmd(db),
			loginCmd(db, baseDir),
			logoutCmd(baseDir),
			projectCmd(db, baseDir),
			filesCmd(db, baseDir),
			namesCmd(db, baseDir),
			obscureCmd(db, det, baseDir),
			restoreCmd(db, baseDir),
			obscureTextCmd(db, det, baseDir),
			restoreTextCmd(db, baseDir),
			mappingsCmd(db, baseDir),
			historyCmd(db, baseDir),
			webCmd(db, baseDir),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func outputFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: "json", Usage: "Output format: json|table"}
}

func scopeFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "scope", Aliases: []string{"s"}, Value: "project", Usage: "Name list scope: user|project"}
}

// registerCmd creates the register command.
func registerCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create a new account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account username"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Account password"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Register(db, ops.RegisterInput{
				Username: c.String("username"),
				Password: c.String("password"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// loginCmd creates the login command. A successful login persists the
// session, restoring the last selected project when one exists.
func loginCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Log in and persist the session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true, Usage: "Account username"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Account password"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Login(db, ops.LoginInput{
				Username: c.String("username"),
				Password: c.String("password"),
			})
			if err != nil {
				return outputError(err)
			}

			s := ops.Session{UserID: output.UserID}
			if output.LastProjectID != nil {
				s.ProjectID = *output.LastProjectID
			}
			if err := saveSession(baseDir, s); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(output)
		},
	}
}

// logoutCmd creates the logout command.
func logoutCmd(baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Log out and forget the session",
		Action: func(_ *cli.Context) error {
			if err := clearSession(baseDir); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return outputJSON(map[string]bool{"logged_out": true})
		},
	}
}

// projectCmd creates the project command group.
func projectCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage projects",
		Subcommands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a project and make it active",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Project name"},
					&cli.StringFlag{Name: "notes", Usage: "Project notes (markdown)"},
				},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.CreateProject(db, s, ops.CreateProjectInput{
						Name:  c.String("name"),
						Notes: c.String("notes"),
					})
					if err != nil {
						return outputError(err)
					}
					s.ProjectID = output.Project.ID
					if err := saveSession(baseDir, s); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List your projects",
				Flags: []cli.Flag{outputFlag()},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.ListProjects(db, s)
					if err != nil {
						return outputError(err)
					}
					if c.String("output") == "table" {
						fmt.Println(projectTable(output.Projects))
						return nil
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "select",
				Usage:     "Switch the active project by ID or name",
				ArgsUsage: "[id]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Project name"},
				},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}

					input := ops.SelectProjectInput{Name: c.String("name")}
					if c.NArg() > 0 {
						id, err := parseID(c.Args().First())
						if err != nil {
							return outputError(errors.NewInvalidRequest(err.Error()))
						}
						input.ProjectID = id
					}

					output, err := ops.SelectProject(db, s, input)
					if err != nil {
						return outputError(err)
					}
					s.ProjectID = output.Project.ID
					if err := saveSession(baseDir, s); err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// filesCmd creates the files command group.
func filesCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "files",
		Usage: "Manage project files",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Register files with the active project",
				ArgsUsage: "<path>...",
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.AddFiles(db, s, ops.AddFilesInput{Paths: c.Args().Slice()})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List the active project's files",
				Flags: []cli.Flag{outputFlag()},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.ListFiles(db, s)
					if err != nil {
						return outputError(err)
					}
					if c.String("output") == "table" {
						fmt.Println(fileTable(output.Files))
						return nil
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// namesCmd creates the names command group for known-name lists.
func namesCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "names",
		Usage: "Manage known-name lists",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add names to a known-name list",
				ArgsUsage: "[name]...",
				Flags: []cli.Flag{
					scopeFlag(),
					&cli.StringFlag{Name: "from-file", Aliases: []string{"f"}, Usage: "Read names from a comma/newline-delimited file"},
				},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.AddNames(db, s, ops.AddNamesInput{
						Scope:    ops.NameScope(c.String("scope")),
						Names:    c.Args().Slice(),
						FromFile: c.String("from-file"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List a known-name list",
				Flags: []cli.Flag{scopeFlag()},
				Action: func(c *cli.Context) error {
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					output, err := ops.ListNames(db, s, ops.NameScope(c.String("scope")))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "delete",
				Usage:     "Remove one name from a known-name list",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{scopeFlag()},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return outputError(errors.NewInvalidRequest("exactly one name is required"))
					}
					s, err := loadSession(baseDir)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					if err := ops.DeleteName(db, s, ops.DeleteNameInput{
						Scope: ops.NameScope(c.String("scope")),
						Name:  c.Args().First(),
					}); err != nil {
						return outputError(err)
					}
					return outputJSON(map[string]bool{"deleted": true})
				},
			},
		},
	}
}

// obscureCmd creates the obscure command for batches of files.
func obscureCmd(db *sql.DB, det *detect.Detector, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "obscure",
		Usage:     "Obscure files, writing Obscured_* siblings",
		ArgsUsage: "<path>...",
		Action: func(c *cli.Context) error {
			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.ObscureFiles(db, det, s, ops.ObscureFilesInput{Paths: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreCmd creates the restore command for batches of files.
func restoreCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Restore obscured files, writing Restored_* siblings",
		ArgsUsage: "<path>...",
		Action: func(c *cli.Context) error {
			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.RestoreFiles(db, s, ops.RestoreFilesInput{Paths: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// obscureTextCmd creates the obscure-text command (reads text from stdin).
func obscureTextCmd(db *sql.DB, det *detect.Detector, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "obscure-text",
		Usage: "Obscure text piped via stdin",
		Action: func(_ *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("text must be piped via stdin"))
			}
			text, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.ObscureText(db, det, s, ops.ObscureTextInput{Text: text})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// restoreTextCmd creates the restore-text command (reads text from stdin).
func restoreTextCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "restore-text",
		Usage: "Restore obscured text piped via stdin",
		Action: func(_ *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("text must be piped via stdin"))
			}
			text, err := readStdin()
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.RestoreText(db, s, ops.RestoreTextInput{Text: text})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// mappingsCmd creates the mappings command.
func mappingsCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "mappings",
		Usage: "List the active project's pseudonym mappings",
		Flags: []cli.Flag{outputFlag()},
		Action: func(c *cli.Context) error {
			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.ListMappings(db, s)
			if err != nil {
				return outputError(err)
			}
			if c.String("output") == "table" {
				fmt.Println(mappingTable(output.Mappings))
				return nil
			}
			return outputJSON(output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List the active project's obscure runs",
		Flags: []cli.Flag{outputFlag()},
		Action: func(c *cli.Context) error {
			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.ListHistory(db, s)
			if err != nil {
				return outputError(err)
			}
			if c.String("output") == "table" {
				fmt.Println(historyTable(output.Entries))
				return nil
			}
			return outputJSON(output)
		},
	}
}

// webCmd creates the web command, serving the read-only viewer for the
// logged-in user.
func webCmd(db *sql.DB, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Serve the read-only project viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Aliases: []string{"b"}, Value: "127.0.0.1", Usage: "Bind address"},
			&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 8787, Usage: "Listen port"},
		},
		Action: func(c *cli.Context) error {
			s, err := loadSession(baseDir)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			if s.UserID == 0 {
				return outputError(errors.NewNotAuthenticated())
			}

			srv := web.NewServer(db, s, Version, c.String("bind"), c.Int("port"))
			if err := web.Run(srv); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if veilErr, ok := err.(*errors.VeilError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", veilErr.Code, veilErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin.
func readStdin() (string, error) {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// parseID parses a positional numeric ID argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id: %s", s)
	}
	return id, nil
}
