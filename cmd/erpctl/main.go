package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"fleet-erp-backend/internal/app"
	"fleet-erp-backend/internal/config"
	"fleet-erp-backend/internal/dispatch"
	"fleet-erp-backend/internal/domain"
	"fleet-erp-backend/internal/logger"
	"fleet-erp-backend/internal/repository/postgres"
	"fleet-erp-backend/internal/service"
)

var flagConfig *cli.StringFlag = &cli.StringFlag{
	Name:    "config",
	Value:   "config/config.dev.yaml",
	Usage:   "Path to configuration file",
	EnvVars: []string{"ERP_CONFIG"},
}

var flagQuote *cli.IntFlag = &cli.IntFlag{
	Name:     "quote",
	Usage:    "Quote id",
	Required: true,
}

var flagCompany *cli.IntFlag = &cli.IntFlag{
	Name:     "company",
	Usage:    "Company the operator acts for",
	Required: true,
}

var flagUser *cli.IntFlag = &cli.IntFlag{
	Name:  "user",
	Usage: "Staff user id recorded as the actor",
}

var flagExpiryDays *cli.IntFlag = &cli.IntFlag{
	Name:  "expiry-days",
	Usage: "Link lifetime in days, 0 for the configured default",
}

var flagEmail *cli.StringFlag = &cli.StringFlag{
	Name:  "email",
	Usage: "Also email the link to this address",
}

var flagSteps *cli.IntFlag = &cli.IntFlag{
	Name:  "steps",
	Value: 1,
	Usage: "Number of migrations to roll back",
}

func main() {
	erpctl := &cli.App{
		Name:     "erpctl",
		Usage:    "operator tooling for quote sharing and contracts",
		Metadata: map[string]interface{}{},
		Flags: []cli.Flag{
			flagConfig,
		},
		Before: func(cCtx *cli.Context) error {
			cfg, err := config.Load(cCtx.String(flagConfig.Name))
			if err != nil {
				return err
			}
			logger.Initialize(cfg.Log.Level, cfg.Log.Format)
			cCtx.App.Metadata["config"] = cfg
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "apply or roll back the embedded schema migrations",
				Subcommands: []*cli.Command{
					{
						Name:  "up",
						Usage: "apply all pending migrations",
						Action: func(cCtx *cli.Context) error {
							return postgres.MigrateUp(configFrom(cCtx).GetDatabaseConnectionString())
						},
					},
					{
						Name:  "down",
						Usage: "roll back migrations",
						Flags: []cli.Flag{flagSteps},
						Action: func(cCtx *cli.Context) error {
							return postgres.MigrateDown(configFrom(cCtx).GetDatabaseConnectionString(), cCtx.Int(flagSteps.Name))
						},
					},
				},
			},
			{
				Name:  "share",
				Usage: "manage quote share links",
				Subcommands: []*cli.Command{
					{
						Name:  "issue",
						Usage: "issue a share link, reusing the active one when present",
						Flags: []cli.Flag{flagQuote, flagCompany, flagUser, flagExpiryDays, flagEmail},
						Action: withServices(func(cCtx *cli.Context, svc *app.Services) error {
							res, err := svc.Shares.Issue(cCtx.Context, actorFrom(cCtx), int32(cCtx.Int(flagQuote.Name)), service.IssueShareRequest{
								ExpiryDays: cCtx.Int(flagExpiryDays.Name),
								Email:      cCtx.String(flagEmail.Name),
							})
							if err != nil {
								return err
							}
							return printJSON(res)
						}),
					},
					{
						Name:  "list",
						Usage: "list the share links and signatures of a quote",
						Flags: []cli.Flag{flagQuote, flagCompany, flagUser},
						Action: withServices(func(cCtx *cli.Context, svc *app.Services) error {
							listing, err := svc.Shares.List(cCtx.Context, actorFrom(cCtx), int32(cCtx.Int(flagQuote.Name)))
							if err != nil {
								return err
							}
							return printJSON(listing)
						}),
					},
					{
						Name:  "revoke",
						Usage: "revoke every active share link of a quote",
						Flags: []cli.Flag{flagQuote, flagCompany, flagUser},
						Action: withServices(func(cCtx *cli.Context, svc *app.Services) error {
							n, err := svc.Shares.RevokeAll(cCtx.Context, actorFrom(cCtx), int32(cCtx.Int(flagQuote.Name)))
							if err != nil {
								return err
							}
							fmt.Printf("revoked %d token(s)\n", n)
							return nil
						}),
					},
				},
			},
			{
				Name:  "timeline",
				Usage: "print the lifecycle events of a quote, newest first",
				Flags: []cli.Flag{flagQuote, flagCompany, flagUser},
				Action: withServices(func(cCtx *cli.Context, svc *app.Services) error {
					events, err := svc.Lifecycle.Timeline(cCtx.Context, actorFrom(cCtx), int32(cCtx.Int(flagQuote.Name)))
					if err != nil {
						return err
					}
					return printJSON(events)
				}),
			},
			{
				Name:  "notifications",
				Usage: "notification outbox maintenance",
				Subcommands: []*cli.Command{
					{
						Name:  "retry",
						Usage: "resend failed notifications whose backoff elapsed",
						Action: withServices(func(cCtx *cli.Context, svc *app.Services) error {
							stats, err := svc.Notifications.RetryDue(cCtx.Context)
							if err != nil {
								return err
							}
							fmt.Printf("attempted %d, sent %d, failed %d\n", stats.Attempted, stats.Sent, stats.Failed)
							return nil
						}),
					},
				},
			},
		},
	}

	if err := erpctl.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func configFrom(cCtx *cli.Context) *config.Config {
	return cCtx.App.Metadata["config"].(*config.Config)
}

func actorFrom(cCtx *cli.Context) domain.Actor {
	return domain.Actor{
		UserID:    int32(cCtx.Int(flagUser.Name)),
		CompanyID: int32(cCtx.Int(flagCompany.Name)),
		Role:      "operator",
	}
}

// withServices opens the database and wires the services for one command.
// Side effects run inline so they finish before the process exits.
func withServices(fn func(cCtx *cli.Context, svc *app.Services) error) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		cfg := configFrom(cCtx)
		db, err := postgres.Open(cCtx.Context, cfg.GetDatabaseConnectionString())
		if err != nil {
			return err
		}
		defer closeDB(db)

		svc, err := app.NewServices(cfg, db, dispatch.Inline{}, nil)
		if err != nil {
			return err
		}
		return fn(cCtx, svc)
	}
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logger.Warn("Failed to close database", "error", err)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
