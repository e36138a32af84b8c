package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	sqliteadapter "github.com/igormartsekha/saas-starter-kit/internal/adapters/db/sqlite"
	httpadapter "github.com/igormartsekha/saas-starter-kit/internal/adapters/http"
	rpcadapter "github.com/igormartsekha/saas-starter-kit/internal/adapters/rpcjson"
	"github.com/igormartsekha/saas-starter-kit/internal/application"
	"github.com/igormartsekha/saas-starter-kit/internal/config"
	"github.com/igormartsekha/saas-starter-kit/internal/domain"
	"github.com/igormartsekha/saas-starter-kit/internal/logging"
	"github.com/igormartsekha/saas-starter-kit/internal/mutation"
	"github.com/igormartsekha/saas-starter-kit/internal/screens"
	"github.com/igormartsekha/saas-starter-kit/internal/ui"
	"github.com/igormartsekha/saas-starter-kit/internal/validation"
)

func main() {
	args := os.Args
	if len(args) == 1 {
		args = append(args, "--help")
	}

	root := &cli.Command{
		Name:  "saaskit",
		Usage: "Multi-tenant team management server and CLI",
		Commands: []*cli.Command{
			serverCommand(),
			authCommand(),
			accountCommand(),
			teamsCommand(),
			membersCommand(),
			invitationsCommand(),
			apiKeysCommand(),
			auditCommand(),
		},
	}

	if err := root.Run(context.Background(), args); err != nil {
		if errors.Is(err, errReported) {
			os.Exit(1)
		}
		log.Fatal(err)
	}
}

func serverCommand() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Run HTTP server and JSON-RPC socket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "TOML or YAML config file"},
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address"},
			&cli.StringFlag{Name: "rpc-socket", Usage: "JSON-RPC unix socket path"},
			&cli.StringFlag{Name: "db-path", Usage: "SQLite database path"},
			&cli.StringFlag{Name: "ui-version", Usage: "UI skin: plain or mui"},
			&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
			&cli.StringFlag{Name: "log-format", Usage: "text or json"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}
			if c.IsSet("addr") {
				cfg.Addr = c.String("addr")
			}
			if c.IsSet("rpc-socket") {
				cfg.RPCSocket = c.String("rpc-socket")
			}
			if c.IsSet("db-path") {
				cfg.DBPath = c.String("db-path")
			}
			if c.IsSet("ui-version") {
				cfg.UI.Version = c.String("ui-version")
			}
			if c.IsSet("log-level") {
				cfg.LogLevel = c.String("log-level")
			}
			if c.IsSet("log-format") {
				cfg.LogFormat = c.String("log-format")
			}
			logger := logging.New(logging.Config{Level: logging.ParseLevel(cfg.LogLevel), Format: logging.ParseFormat(cfg.LogFormat)})
			return runServer(ctx, cfg, logger)
		},
	}
}

func serviceSettings(cfg config.Config) application.Settings {
	return application.Settings{
		SessionTTL:              cfg.SessionTTL(),
		InvitationTTL:           cfg.InvitationTTL(),
		AllowEmailChange:        cfg.AllowEmailChange(),
		DisableNonBusinessEmail: cfg.Features.DisableNonBusinessEmail,
		BlockedEmailDomains:     cfg.Features.BlockedEmailDomains,
		AllowDeleteTeam:         cfg.AllowDeleteTeam(),
		AllowAPIKeys:            cfg.AllowAPIKeys(),
	}
}

func runServer(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	skin, err := ui.New(cfg.UI.Version)
	if err != nil {
		return err
	}

	db, err := sqliteadapter.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	if err := sqliteadapter.RunMigrations(ctx, db); err != nil {
		return err
	}

	repo := sqliteadapter.NewRepository(db)
	service := application.NewService(repo, serviceSettings(cfg), logger)
	if err := service.BootstrapAdmin(ctx, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPassword); err != nil {
		return err
	}

	router := httpadapter.NewRouter(service, skin, httpadapter.Options{Logger: logger, LoginPerMinute: cfg.RateLimit.LoginPerMinute})
	srv := &http.Server{Addr: cfg.Addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	rpcSrv, err := rpcadapter.Start(cfg.RPCSocket, service, logger)
	if err != nil {
		return err
	}
	defer func() {
		_ = rpcSrv.Close()
	}()
	logger.Info("json-rpc listening", "socket", cfg.RPCSocket)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr, "ui", skin.Name())
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// screenResult turns screen errors into CLI results. Request failures were
// already printed as toasts.
func screenResult(err error) error {
	var failure *mutation.Failure
	switch {
	case err == nil:
		return nil
	case errors.Is(err, screens.ErrCanceled):
		fmt.Println("canceled")
		return nil
	case errors.As(err, &failure),
		errors.Is(err, validation.ErrAvatarTooLarge),
		errors.Is(err, validation.ErrAvatarUnsupported):
		return errReported
	}
	return err
}

func jsonFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

func yesFlag() *cli.BoolFlag {
	return &cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "skip the confirmation prompt"}
}

func teamFlag() *cli.StringFlag {
	return &cli.StringFlag{Name: "team", Required: true, Usage: "team slug"}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "socket", Value: defaultSocket},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "prompted when omitted"},
					&cli.StringFlag{Name: "token-name", Value: "cli"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					password, err := promptSecret(ctx, "Password", c.String("password"))
					if err != nil {
						return err
					}
					var out struct {
						User  domain.ClientUser `json:"user"`
						Token string            `json:"token"`
					}
					if err := doLogin(ctx, cfg, c.String("email"), password, c.String("token-name"), &out); err != nil {
						return err
					}
					cfg.Token = out.Token
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s\n", out.User.Email)
					return nil
				},
			},
			{
				Name:  "join",
				Usage: "Create an account and optionally a first team",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "server", Value: defaultServer},
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Usage: "prompted when omitted"},
					&cli.StringFlag{Name: "team", Usage: "name of a team to create"},
					&cli.StringFlag{Name: "invite-token", Usage: "join the team of this invitation"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					password, err := promptSecret(ctx, "Password", c.String("password"))
					if err != nil {
						return err
					}
					in := map[string]string{
						"name":        c.String("name"),
						"email":       c.String("email"),
						"password":    password,
						"team":        c.String("team"),
						"inviteToken": c.String("invite-token"),
					}
					var out domain.ClientUser
					if err := doJoin(ctx, cliConfig{Server: c.String("server")}, in, &out); err != nil {
						return err
					}
					fmt.Printf("account created for %s, run `saaskit auth login` next\n", out.Email)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ClientUser
					if err := doWhoAmI(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUser(out)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear local CLI auth token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					_ = doLogout(ctx, cfg)
					cfg.Token = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func accountCommand() *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Account settings of the signed in user",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show name, email and avatar state",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.ClientUser
					if err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, screens.UserKey, nil, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUser(out)
					return nil
				},
			},
			{
				Name:  "set-name",
				Usage: "Change the display name",
				Flags: []cli.Flag{&cli.StringFlag{Name: "name", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s, err := screens.NewUpdateName(ctx, newSession(cfg, false))
					if err != nil {
						return err
					}
					return screenResult(submit(ctx, s.Form, map[string]any{"name": c.String("name")}))
				},
			},
			{
				Name:  "set-email",
				Usage: "Change the email address",
				Flags: []cli.Flag{&cli.StringFlag{Name: "email", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s, err := screens.NewUpdateEmail(ctx, newSession(cfg, false))
					if err != nil {
						return err
					}
					return screenResult(submit(ctx, s.Form, map[string]any{"email": c.String("email")}))
				},
			},
			{
				Name:  "set-password",
				Usage: "Change the password; other sessions are signed out",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Usage: "prompted when omitted"},
					&cli.StringFlag{Name: "new", Usage: "prompted when omitted"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					current, err := promptSecret(ctx, "Current password", c.String("current"))
					if err != nil {
						return err
					}
					next, err := promptSecret(ctx, "New password", c.String("new"))
					if err != nil {
						return err
					}
					s := screens.NewUpdatePassword(newSession(cfg, false))
					return screenResult(submit(ctx, s.Form, map[string]any{"currentPassword": current, "newPassword": next}))
				},
			},
			{
				Name:  "avatar",
				Usage: "Upload a PNG or JPEG avatar of at most 2MB",
				Flags: []cli.Flag{&cli.StringFlag{Name: "file", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					content, err := os.ReadFile(c.String("file"))
					if err != nil {
						return err
					}
					return screenResult(screens.NewUploadAvatar(newSession(cfg, false)).Upload(ctx, content))
				},
			},
		},
	}
}

func teamsCommand() *cli.Command {
	return &cli.Command{
		Name:  "teams",
		Usage: "Team commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List your teams",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.Team
					if err := doTeamsList(ctx, cfg, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTeams(out)
					return nil
				},
			},
			{
				Name:  "show",
				Usage: "Show one team",
				Flags: []cli.Flag{teamFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out domain.Team
					if err := doTeamGet(ctx, cfg, c.String("team"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printTeam(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a team; you become its owner",
				Flags: []cli.Flag{&cli.StringFlag{Name: "name", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewTeams(newSession(cfg, false))
					if err := screenResult(submit(ctx, s.Form, map[string]any{"name": c.String("name")})); err != nil {
						return err
					}
					printTeam(s.Created())
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Change name, slug or domain",
				Flags: []cli.Flag{
					teamFlag(),
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "slug"},
					&cli.StringFlag{Name: "domain"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s, err := screens.NewTeamSettings(ctx, newSession(cfg, false), c.String("team"))
					if err != nil {
						return err
					}
					fields := map[string]any{}
					for _, name := range []string{"name", "slug", "domain"} {
						if c.IsSet(name) {
							fields[name] = c.String(name)
						}
					}
					return screenResult(submit(ctx, s.Form, fields))
				},
			},
			{
				Name:  "remove",
				Usage: "Delete a team and everything in it",
				Flags: []cli.Flag{teamFlag(), yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewRemoveTeam(newSession(cfg, c.Bool("yes")), c.String("team"))
					return screenResult(s.Remove(ctx))
				},
			},
			{
				Name:  "leave",
				Usage: "Leave a team",
				Flags: []cli.Flag{teamFlag(), yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewTeams(newSession(cfg, c.Bool("yes")))
					return screenResult(s.Leave(ctx, c.String("team")))
				},
			},
		},
	}
}

func membersCommand() *cli.Command {
	return &cli.Command{
		Name:  "members",
		Usage: "Team member commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List members of a team",
				Flags: []cli.Flag{teamFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.TeamMember
					if err := doMembersList(ctx, cfg, c.String("team"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printMembers(out)
					return nil
				},
			},
			{
				Name:  "remove",
				Usage: "Remove a member from a team",
				Flags: []cli.Flag{teamFlag(), &cli.UintFlag{Name: "user-id", Required: true}, yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewMembers(newSession(cfg, c.Bool("yes")), c.String("team"))
					member, err := findMember(ctx, s, c.Uint("user-id"))
					if err != nil {
						return err
					}
					return screenResult(s.Remove(ctx, member))
				},
			},
			{
				Name:  "role",
				Usage: "Change the role of a member",
				Flags: []cli.Flag{
					teamFlag(),
					&cli.UintFlag{Name: "user-id", Required: true},
					&cli.StringFlag{Name: "role", Required: true, Usage: "OWNER, ADMIN or MEMBER"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewMembers(newSession(cfg, false), c.String("team"))
					return screenResult(s.UpdateRole(ctx, c.Uint("user-id"), domain.Role(c.String("role"))))
				},
			},
		},
	}
}

func findMember(ctx context.Context, s *screens.Members, userID uint) (domain.TeamMember, error) {
	members, err := s.List(ctx)
	if err != nil {
		return domain.TeamMember{}, err
	}
	for _, m := range members {
		if m.UserID == userID {
			return m, nil
		}
	}
	return domain.TeamMember{}, fmt.Errorf("user %d is not a member of the team", userID)
}

func invitationsCommand() *cli.Command {
	return &cli.Command{
		Name:  "invitations",
		Usage: "Team invitation commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List pending invitations",
				Flags: []cli.Flag{teamFlag(), &cli.BoolFlag{Name: "all", Usage: "include link invitations"}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var sentViaEmail *bool
					if !c.Bool("all") {
						v := true
						sentViaEmail = &v
					}
					var out []domain.Invitation
					if err := doInvitationsList(ctx, cfg, c.String("team"), sentViaEmail, &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printInvitations(out)
					return nil
				},
			},
			{
				Name:  "send",
				Usage: "Invite someone by email",
				Flags: []cli.Flag{
					teamFlag(),
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: string(domain.RoleMember), Usage: "OWNER, ADMIN or MEMBER"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewInviteViaEmail(newSession(cfg, false), c.String("team"))
					return screenResult(submit(ctx, s.Form, map[string]any{"email": c.String("email"), "role": c.String("role")}))
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a pending invitation",
				Flags: []cli.Flag{teamFlag(), &cli.StringFlag{Name: "id", Required: true}, yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewPendingInvitations(newSession(cfg, c.Bool("yes")), c.String("team"))
					pending, err := s.List(ctx)
					if err != nil {
						return err
					}
					for _, inv := range pending {
						if inv.ID == c.String("id") {
							return screenResult(s.Delete(ctx, inv))
						}
					}
					return fmt.Errorf("invitation %s not found", c.String("id"))
				},
			},
			invitationLinkCommand(),
		},
	}
}

func invitationLinkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "Shareable invitation link of a team",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the invitation link",
				Flags: []cli.Flag{teamFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					return printInvitationLink(ctx, screens.NewInviteViaLink(newSession(cfg, false), c.String("team")))
				},
			},
			{
				Name:  "create",
				Usage: "Create the invitation link",
				Flags: []cli.Flag{
					teamFlag(),
					&cli.StringFlag{Name: "role", Value: string(domain.RoleMember), Usage: "OWNER, ADMIN or MEMBER"},
					&cli.StringSliceFlag{Name: "domain", Usage: "only emails of this domain may join; repeatable"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewInviteViaLink(newSession(cfg, false), c.String("team"))
					fields := map[string]any{"role": c.String("role")}
					if domains := c.StringSlice("domain"); len(domains) > 0 {
						fields["allowedDomains"] = domains
					}
					if err := screenResult(submit(ctx, s.Form, fields)); err != nil {
						return err
					}
					return printInvitationLink(ctx, s)
				},
			},
			{
				Name:  "delete",
				Usage: "Delete the invitation link",
				Flags: []cli.Flag{teamFlag(), yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewInviteViaLink(newSession(cfg, c.Bool("yes")), c.String("team"))
					inv, err := s.Current(ctx)
					if err != nil {
						return err
					}
					if inv == nil {
						return errors.New("the team has no invitation link")
					}
					return screenResult(s.Delete(ctx, *inv))
				},
			},
		},
	}
}

func printInvitationLink(ctx context.Context, s *screens.InviteViaLink) error {
	inv, err := s.Current(ctx)
	if err != nil {
		return err
	}
	if inv == nil {
		fmt.Println("no invitation link")
		return nil
	}
	link, err := s.URL(ctx)
	if err != nil {
		return err
	}
	printKV([][2]string{
		{"URL", link},
		{"ROLE", string(inv.Role)},
		{"DOMAINS", strings.Join(inv.AllowedDomains, ", ")},
		{"EXPIRES_AT", formatTime(inv.ExpiresAt)},
	})
	return nil
}

func apiKeysCommand() *cli.Command {
	return &cli.Command{
		Name:  "api-keys",
		Usage: "Team API key commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List API keys of a team",
				Flags: []cli.Flag{teamFlag(), jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.APIKey
					if err := doAPIKeysList(ctx, cfg, c.String("team"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAPIKeys(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create an API key; the secret is shown once",
				Flags: []cli.Flag{teamFlag(), &cli.StringFlag{Name: "name", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewNewAPIKey(newSession(cfg, false), c.String("team"))
					if err := screenResult(submit(ctx, s.Form, map[string]any{"name": c.String("name")})); err != nil {
						return err
					}
					printSecret("Save this key now, it will not be shown again:", s.Key())
					return nil
				},
			},
			{
				Name:  "revoke",
				Usage: "Revoke an API key",
				Flags: []cli.Flag{teamFlag(), &cli.StringFlag{Name: "id", Required: true}, yesFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					s := screens.NewAPIKeys(newSession(cfg, c.Bool("yes")), c.String("team"))
					keys, err := s.List(ctx)
					if err != nil {
						return err
					}
					for _, key := range keys {
						if key.ID == c.String("id") {
							return screenResult(s.Revoke(ctx, key))
						}
					}
					return fmt.Errorf("api key %s not found", c.String("id"))
				},
			},
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List audit records of a team, or your own actions",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "team", Usage: "team slug"},
					&cli.IntFlag{Name: "limit", Value: 200},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					var out []domain.AuditRecord
					if err := doAuditList(ctx, cfg, c.String("team"), c.Int("limit"), &out); err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAuditRecords(out)
					return nil
				},
			},
		},
	}
}
