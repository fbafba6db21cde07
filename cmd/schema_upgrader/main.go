package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fairtrace/fairtrace/pkg/buildtime"
	"github.com/fairtrace/fairtrace/pkg/db/postgres"
	fio "github.com/fairtrace/fairtrace/pkg/io"
	"github.com/fairtrace/fairtrace/pkg/logging"
	"github.com/fairtrace/fairtrace/pkg/utils/try"
	"github.com/youta-t/flarc"
	"go.uber.org/zap"
)

type Flag struct {
	Host     string `flag:"host" help:"The host of the database."`
	Port     int    `flag:"port" help:"The port of the database."`
	User     string `flag:"user" help:"The user of the database."`
	Password string `flag:"pass" help:"The password of the database."`
	Database string `flag:"database" help:"The name of the database."`

	Schema   string `flag:"schema" help:"The path to the schema repository directory."`
	LogLevel string `flag:"loglevel" help:"log level. debug|info|warn|error|off"`
}

const ARG_SCHEMA_DEST = "ARG_SCHEMA_DEST"

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	port := 5432
	if sp := os.Getenv("DB_PORT"); sp != "" {
		if p, err := strconv.Atoi(sp); err == nil {
			port = p
		}
	}

	cmd := try.To(flarc.NewCommand(
		"database schema upgrader of fairtrace "+buildtime.VersionString(),
		Flag{
			Host:     os.Getenv("DB_HOST"),
			Port:     port,
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			Database: os.Getenv("DB_NAME"),

			Schema:   os.Getenv("FAIRTRACE_SCHEMA"),
			LogLevel: "info",
		},
		flarc.Args{
			{
				Name: ARG_SCHEMA_DEST, Help: "The schema files are copied to this directory, for daemons to watch.",
				Required: false, Repeatable: false,
			},
		},
		func(ctx context.Context, c flarc.Commandline[Flag], a []any) error {
			flags := c.Flags()
			logger, err := logging.New(flags.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if flags.Schema == "" {
				return fmt.Errorf("-schema is required")
			}

			if dest := c.Args()[ARG_SCHEMA_DEST]; len(dest) != 0 {
				logger.Info("copying schema files", zap.String("from", flags.Schema), zap.String("to", dest[0]))
				if err := fio.DirCopy(flags.Schema, dest[0]); err != nil {
					return err
				}
			}

			dsn := url.URL{
				Scheme: "postgres",
				User:   url.UserPassword(flags.User, flags.Password),
				Host:   flags.Host + ":" + strconv.Itoa(flags.Port),
				Path:   "/" + flags.Database,
			}
			dbase, err := postgres.New(ctx, dsn.String(), postgres.WithSchemaRepository(flags.Schema))
			if err != nil {
				return err
			}
			defer dbase.Close()

			before, err := dbase.Schema().Version(ctx)
			if err != nil {
				return err
			}
			if err := dbase.Schema().Upgrade(ctx); err != nil {
				return err
			}
			after, err := dbase.Schema().Version(ctx)
			if err != nil {
				return err
			}
			logger.Info("schema is up to date", zap.Int("from", before), zap.Int("to", after))
			return nil
		},
	)).OrFatal(log.Default())

	os.Exit(flarc.Run(ctx, cmd))
}
