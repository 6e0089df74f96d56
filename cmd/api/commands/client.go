package commands

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/xpresstask/core/internal/client"
	"github.com/xpresstask/core/internal/domain/entities"
	"github.com/xpresstask/core/internal/infrastructure/config"
	"github.com/xpresstask/core/internal/infrastructure/logger"
	"github.com/xpresstask/core/internal/ports"
)

const defaultServerURL = "http://localhost:3001"

// reportedError is a failure the client has already logged
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already written to the log
func IsReported(err error) bool {
	var r *reportedError
	return errors.As(err, &r)
}

type clientOptions struct {
	server  string
	session string
	grace   time.Duration
}

// clientRuntime is one CLI invocation's view of the API
type clientRuntime struct {
	api      *client.Client
	session  *client.Session
	logger   *logger.Logger
	loginReq chan struct{}
	once     sync.Once
}

func (r *clientRuntime) close() {
	r.session.Close()
	_ = r.logger.Close()
}

// awaitLoginPrompt blocks until the session asks for a new login or the
// grace period has clearly passed.
func (r *clientRuntime) awaitLoginPrompt(out io.Writer, grace time.Duration) {
	select {
	case <-r.loginReq:
		fmt.Fprintln(out, "Your session has ended. Run 'xpresstask client login' to sign in again.")
	case <-time.After(grace + time.Second):
	}
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".xpresstask", "session.json")
	}
	return filepath.Join(home, ".xpresstask", "session.json")
}

func newClientRuntime(opts *clientOptions) (*clientRuntime, error) {
	log, err := logger.New(config.LoggerConfig{Level: "warn", Format: "console", Output: "stderr"})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	rt := &clientRuntime{logger: log, loginReq: make(chan struct{})}
	rt.session = client.NewSession(client.NewFileTokenStore(opts.session), opts.grace, func() {
		rt.once.Do(func() { close(rt.loginReq) })
	}, log)
	rt.api = client.New(opts.server, rt.session, log)
	return rt, nil
}

// NewClientCommand creates the command-line client for a running API
func NewClientCommand() *cobra.Command {
	opts := &clientOptions{}

	clientCmd := &cobra.Command{
		Use:   "client",
		Short: "Use a running XpressTask API from the terminal",
		Long:  "Sign up, log in and manage tasks against a running XpressTask API. The token is kept in a session file between runs.",
	}

	clientCmd.PersistentFlags().StringVar(&opts.server, "server", defaultServerURL, "API base URL")
	clientCmd.PersistentFlags().StringVar(&opts.session, "session", defaultSessionPath(), "Session file holding the token")
	clientCmd.PersistentFlags().DurationVar(&opts.grace, "grace", client.DefaultGracePeriod, "Delay before asking to log in again after a rejected token")

	clientCmd.AddCommand(
		newCredentialsCommand(opts, "signup", "Create an account and log in"),
		newCredentialsCommand(opts, "login", "Log in with an existing account"),
		newLogoutCommand(opts),
		newListCommand(opts, "tasks", "List every task"),
		newListCommand(opts, "mine", "List the tasks you own"),
		newCreateTaskCommand(opts),
		newUpdateTaskCommand(opts),
		newDeleteTaskCommand(opts),
	)

	return clientCmd
}

func newCredentialsCommand(opts *clientOptions, use, short string) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			var resp *ports.AuthResponse
			if use == "signup" {
				resp, err = rt.api.Signup(cmd.Context(), username, password)
			} else {
				resp, err = rt.api.Login(cmd.Context(), username, password)
			}
			if err != nil {
				return fmt.Errorf("%s failed: %w", use, err)
			}

			if resp.Message != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s. ", strings.ToUpper(resp.Message[:1])+resp.Message[1:])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", resp.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username")
	cmd.Flags().StringVar(&password, "password", "", "Password")
	return cmd
}

func newLogoutCommand(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			if err := rt.api.Logout(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newListCommand(opts *clientOptions, use, short string) *cobra.Command {
	var sortBy string
	var descending bool

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := client.ParseSortField(sortBy)
			if err != nil {
				return err
			}

			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			var tasks []entities.Task
			if use == "mine" {
				tasks, err = rt.api.MyTasks(cmd.Context())
				if err != nil {
					rt.awaitLoginPrompt(cmd.ErrOrStderr(), opts.grace)
					return &reportedError{err}
				}
			} else {
				tasks, err = rt.api.AllTasks(cmd.Context())
				if err != nil {
					return &reportedError{err}
				}
			}

			if use == "mine" {
				if name := rt.session.Username(); name != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "Tasks for %s\n\n", name)
				}
			}

			list := &client.TaskList{Tasks: tasks, Field: field, Descending: descending}
			list.Sort()
			return list.Render(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", string(client.SortByCreatedAt), "Sort by created_at, title or status")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort in descending order")
	return cmd
}

func newCreateTaskCommand(opts *clientOptions) *cobra.Command {
	var title, description, status string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a task you own",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			req := ports.TaskRequest{Title: title}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				s := entities.TaskStatus(status)
				req.Status = &s
			}

			task, err := rt.api.CreateTask(cmd.Context(), req)
			if err != nil {
				return &reportedError{err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %d: %s\n", task.ID, task.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "Task description")
	cmd.Flags().StringVar(&status, "status", "", "Task status (open, in_progress, done)")
	return cmd
}

func newUpdateTaskCommand(opts *clientOptions) *cobra.Command {
	var title, description, status string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			req := ports.TaskRequest{Title: title}
			if cmd.Flags().Changed("description") {
				req.Description = &description
			}
			if cmd.Flags().Changed("status") {
				s := entities.TaskStatus(status)
				req.Status = &s
			}

			task, err := rt.api.UpdateTask(cmd.Context(), id, req)
			if err != nil {
				return &reportedError{err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d: %s (%s)\n", task.ID, task.Title, task.Status.Display())
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&status, "status", "", "New status")
	return cmd
}

func newDeleteTaskCommand(opts *clientOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			rt, err := newClientRuntime(opts)
			if err != nil {
				return err
			}
			defer rt.close()

			confirm := func() bool {
				return yes || confirmPrompt(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Delete task %d?", id))
			}

			err = rt.api.DeleteTask(cmd.Context(), id, confirm)
			if errors.Is(err, client.ErrDeleteCancelled) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			if err != nil {
				return &reportedError{err}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

func confirmPrompt(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
