package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fairtrace/fairtrace/cmd/loops/recurring"
	"github.com/fairtrace/fairtrace/pkg/buildtime"
	"github.com/fairtrace/fairtrace/pkg/configs/loops"
	"github.com/fairtrace/fairtrace/pkg/db/postgres"
	"github.com/fairtrace/fairtrace/pkg/logging"
	"github.com/fairtrace/fairtrace/pkg/utils/args"
	"github.com/fairtrace/fairtrace/pkg/utils/filewatch"
	"github.com/fairtrace/fairtrace/pkg/utils/try"
	"go.uber.org/zap"
)

func main() {
	ctx, cancel := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM,
	)
	defer cancel()

	pconfig := flag.String(
		"config", os.Getenv("FAIRTRACE_LOOPS_CONFIG"), "path to config file",
	)
	pSchemaRepo := flag.String(
		"schema-repo", os.Getenv("FAIRTRACE_SCHEMA"), "schema repository path",
	)
	loopType := args.Parser(AsLoopType)
	flag.Var(loopType, "type", "one of loop type: report|guardian|notary|outbox|notify")
	policy := args.Parser(recurring.ParsePolicy)
	flag.Var(
		policy, "policy",
		`loop policy (syntax: forever[:COOLDOWN]|backlog).`+
			` "forever[:COOLDOWN]" = run forever until error. When backlog is over, `+
			`wait COOLDOWN (optional duration. default: 0) as inteval.`+
			` "backlog" = run until error or backlog is over.`+
			` notify loop ignores this.`,
	)
	ploglevel := flag.String("loglevel", "info", "log level. debug|info|warn|error|off")
	flag.Parse()

	logger, err := logging.New(*ploglevel)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if !loopType.IsSet() {
		sugar.Fatal("-type is required")
	}
	if !policy.IsSet() && loopType.Get() != Notify {
		sugar.Fatal("-policy is required")
	}

	{
		wctx, cancel, err := filewatch.UntilChanged(ctx, logger.Named("config"), *pconfig)
		if err != nil {
			sugar.Fatal(err)
		}
		defer cancel()
		ctx = wctx
	}

	conf := try.To(loops.Load(*pconfig)).OrFatal(sugar)
	dbase := try.To(postgres.New(
		ctx, conf.Database(), postgres.WithSchemaRepository(*pSchemaRepo),
	)).OrFatal(sugar)
	defer dbase.Close()

	{
		ctx_, ccan := dbase.Schema().Context(ctx)
		defer ccan()
		ctx = ctx_
	}

	manifest := LoopManifest{Type: loopType.Get()}
	if policy.IsSet() {
		manifest.Policy = recurring.UntilError(policy.Get())
	}
	logger.Info(
		"start loop",
		zap.Stringer("type", manifest.Type),
		zap.String("policy", policy.String()),
		zap.String("version", buildtime.VersionString()),
	)

	err = StartLoop(ctx, logger, dbase, conf, manifest)
	if err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		sugar.Fatal(err, " (loop context is cancelled by: ", context.Cause(ctx), ")")
	}
	sugar.Fatal(err)
}
