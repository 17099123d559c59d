package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/amit-mskl/sql-playground/internal/arena"
	"github.com/amit-mskl/sql-playground/internal/cli/output"
	"github.com/spf13/cobra"
)

// AuthOptions holds the credential flags shared by login and signup.
type AuthOptions struct {
	Password      string
	PasswordStdin bool
}

func (o *AuthOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Password, "password", "p", "", "Password (prefer --password-stdin or the prompt)")
	cmd.Flags().BoolVar(&o.PasswordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func (o *AuthOptions) password(p *prompter) (string, error) {
	switch {
	case o.Password != "":
		return o.Password, nil
	case o.PasswordStdin:
		return p.readLine()
	default:
		return p.Secret("Password: ")
	}
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	opts := &AuthOptions{}

	cmd := &cobra.Command{
		Use:   "login [login-id]",
		Short: "Sign in to SQL Arena",
		Long: `Sign in with your login id or email address.

The signed-in user is stored locally and reused by every other command
until you run 'sqlarena logout'.`,
		Example: `  # Prompt for everything
  sqlarena login

  # Scripted login
  echo "$SQLARENA_PASSWORD" | sqlarena login ada@example.com --password-stdin`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, args, opts)
		},
	}
	opts.bind(cmd)
	return cmd
}

func runLogin(cmd *cobra.Command, args []string, opts *AuthOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p := newPrompter(cmd)
	creds := arena.Credentials{}
	if len(args) > 0 {
		creds.LoginID = args[0]
	} else if creds.LoginID, err = p.Line("Login ID: "); err != nil {
		return err
	}
	if creds.Password, err = opts.password(p); err != nil {
		return err
	}
	if creds.LoginID == "" || creds.Password == "" {
		return errors.New("login id and password are required")
	}

	u, err := cmdCtx.Gate.Login(cmd.Context(), creds)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	cmdCtx.Workspace.Bind(u)

	cmdCtx.Renderer.Success(fmt.Sprintf("Welcome, %s!", u.DisplayName()))
	return nil
}

// SignupOptions holds options for the signup command.
type SignupOptions struct {
	AuthOptions
	FullName string
	Email    string
}

// NewSignupCommand creates the signup command.
func NewSignupCommand() *cobra.Command {
	opts := &SignupOptions{}

	cmd := &cobra.Command{
		Use:     "signup",
		Short:   "Create a SQL Arena account",
		Long:    `Create an account and sign in with it.`,
		Example: `  sqlarena signup --name "Ada Lovelace" --email ada@example.com`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSignup(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.FullName, "name", "", "Full name")
	cmd.Flags().StringVar(&opts.Email, "email", "", "Email address")
	opts.bind(cmd)
	return cmd
}

func runSignup(cmd *cobra.Command, opts *SignupOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	p := newPrompter(cmd)
	reg := arena.Registration{FullName: opts.FullName, Email: opts.Email}
	if reg.FullName == "" {
		if reg.FullName, err = p.Line("Full name: "); err != nil {
			return err
		}
	}
	if reg.Email == "" {
		if reg.Email, err = p.Line("Email: "); err != nil {
			return err
		}
	}
	if reg.Password, err = opts.password(p); err != nil {
		return err
	}
	if reg.FullName == "" || reg.Email == "" || reg.Password == "" {
		return errors.New("name, email and password are required")
	}

	u, err := cmdCtx.Gate.Signup(cmd.Context(), reg)
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}
	cmdCtx.Workspace.Bind(u)

	cmdCtx.Renderer.Success(fmt.Sprintf("Account created. Welcome, %s!", u.DisplayName()))
	return nil
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if cmdCtx.Gate.Current() == nil {
				cmdCtx.Renderer.Muted("Not logged in")
				return nil
			}
			if err := cmdCtx.Logout(cmd.Context()); err != nil {
				return err
			}
			cmdCtx.Renderer.Success("Logged out")
			return nil
		},
	}
}

type whoamiOutput struct {
	LoginID    string    `json:"login_id,omitempty" yaml:"login_id,omitempty"`
	Email      string    `json:"email,omitempty" yaml:"email,omitempty"`
	FullName   string    `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	LoggedInAt time.Time `json:"logged_in_at,omitzero" yaml:"logged_in_at,omitempty"`
	Backend    string    `json:"backend" yaml:"backend"`
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			u, err := cmdCtx.RequireUser()
			if err != nil {
				return err
			}
			out := whoamiOutput{
				LoginID:    u.LoginID,
				Email:      u.Email,
				FullName:   u.FullName,
				LoggedInAt: u.LoggedInAt(),
				Backend:    cmdCtx.Client.BaseURL(),
			}

			r := cmdCtx.Renderer
			switch r.EffectiveMode() {
			case output.ModeJSON:
				return r.JSON(out)
			case output.ModeYAML:
				return r.YAML(out)
			}
			r.Header(2, u.DisplayName())
			if u.Email != "" {
				r.Println(output.FormatKeyValue("Email", u.Email))
			}
			if u.LoginID != "" {
				r.Println(output.FormatKeyValue("Login ID", u.LoginID))
			}
			if !out.LoggedInAt.IsZero() {
				r.Println(output.FormatKeyValue("Logged in", out.LoggedInAt.Local().Format(time.RFC1123)))
			}
			r.Println(output.FormatKeyValue("Backend", out.Backend))
			return nil
		},
	}
}
