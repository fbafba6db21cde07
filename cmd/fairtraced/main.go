package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairtrace/fairtrace/pkg/buildtime"
	"github.com/fairtrace/fairtrace/pkg/configs/server"
	"github.com/fairtrace/fairtrace/pkg/db/postgres"
	"github.com/fairtrace/fairtrace/pkg/logging"
	"github.com/fairtrace/fairtrace/pkg/utils/echoutil"
	"github.com/fairtrace/fairtrace/pkg/utils/filewatch"
	"github.com/fairtrace/fairtrace/pkg/utils/try"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// uploaded spreadsheets larger than this are refused.
const bodyLimit = "20M"

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("FAIRTRACE_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("FAIRTRACE_SCHEMA"), "schema repository path",
	)
	loglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	pcert := flag.String("cert", "", "certification file for TLS")
	pkey := flag.String("certkey", "", "key of certification file for TLS")
	pversion := flag.Bool("version", false, "show version and exit")
	flag.Parse()

	if *pversion {
		fmt.Println(buildtime.VersionString())
		return
	}

	logger, err := logging.New(*loglevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	conf := try.To(server.Load(*pconfig)).OrFatal(sugar)

	{
		wctx, cancel, err := filewatch.UntilChanged(ctx, logger.Named("config"), *pconfig)
		if err != nil {
			sugar.Fatalf("can not watch configuration: %s", err)
		}
		defer cancel()
		ctx = wctx
	}

	dbase := try.To(postgres.New(
		ctx, conf.Database(), postgres.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(sugar)
	defer dbase.Close()

	{
		sctx, scancel := dbase.Schema().Context(ctx)
		defer scancel()
		ctx = sctx
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.AddTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))

	echoutil.SetLevel(e, *loglevel)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		e.DefaultHTTPErrorHandler(err, c)
		herr := new(echo.HTTPError)
		if errors.As(err, &herr) && herr.Code < http.StatusInternalServerError {
			logger.Debug("request failed", zap.Error(err))
			return
		}
		logger.Error("request failed", zap.Error(err))
	}
	e.Use(echoutil.LogHandler(logger.Named("http")))

	routes(e, dbase, conf, time.Now)

	for _, r := range e.Routes() {
		logger.Debug("route", zap.String("method", r.Method), zap.String("path", r.Path))
	}

	context.AfterFunc(ctx, func() {
		logger.Warn(
			"shutting down",
			zap.NamedError("cause", context.Cause(ctx)),
		)
		graceful, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := e.Shutdown(graceful); err != nil {
			logger.Error("error on shutdown", zap.Error(err))
		}
	})

	logger.Info(
		"start server",
		zap.Int32("port", conf.Port()),
		zap.String("version", buildtime.VersionString()),
	)
	addr := fmt.Sprintf(":%d", conf.Port())
	if cert, key := *pcert, *pkey; cert != "" && key != "" {
		err = e.StartTLS(addr, cert, key)
	} else {
		err = e.Start(addr)
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		sugar.Fatal(err)
	}
}
