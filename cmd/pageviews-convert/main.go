package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pageviews/internal/adapters/columnar/parquet"
	"pageviews/internal/adapters/ingest/dumps"
	"pageviews/internal/core/version"
	"pageviews/internal/modkit"
	"pageviews/internal/platform/config"
	"pageviews/internal/platform/logger"

	pvdom "pageviews/internal/services/pageviews/domain"
	pvmod "pageviews/internal/services/pageviews/module"
)

func main() {
	root := config.New()
	l := logger.Named("convert")

	m, err := pvmod.New(modkit.Deps{Cfg: root, Log: *l})
	if err != nil {
		l.Fatal().Err(err).Msg("pageviews module")
	}
	opts := m.Options()

	var (
		fFile       = flag.String("file", "", "local dump path")
		fURL        = flag.String("url", "", "dump URL")
		fHour       = flag.String("hour", "", "UTC hour YYYY-MM-DDTHH, fetched from PV_DUMPS_BASE_URL")
		fOut        = flag.String("out", "", "output parquet path (default: <dump name>.parquet)")
		fBatch      = flag.Int("batch-size", opts.BatchSize, "rows per row group / insert block")
		fClickHouse = flag.Bool("clickhouse", false, "insert into PV_CLICKHOUSE_TABLE instead of writing parquet")
		fDownload   = flag.String("download", "", "only download the dump to this path")
		fInspect    = flag.Bool("inspect", false, "print row and row group counts of -out after writing")
		fVersion    = flag.Bool("version", false, "print version and exit")
	)
	ff := pvmod.BindFilterFlags(flag.CommandLine, opts.Filter)
	flag.Parse()

	if *fVersion {
		fmt.Println(version.Info("pageviews-convert"))
		return
	}

	in, err := m.ResolveInput(*fFile, *fURL, *fHour)
	if err != nil {
		l.Fatal().Err(err).Msg("bad input")
	}
	fc, err := ff.Config()
	if err != nil {
		l.Fatal().Err(err).Msg("bad filter")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, runID := logger.NewRun(ctx)
	log := logger.C(ctx)

	if *fDownload != "" {
		if in.URL == "" {
			log.Fatal().Msg("-download needs -url or -hour")
		}
		n, err := dumps.Download(ctx, dumps.NewHTTPFetcher(opts.HTTPTimeout, opts.UserAgent), in.URL, *fDownload)
		if err != nil {
			log.Fatal().Err(err).Msg("download failed")
		}
		log.Info().Str("path", *fDownload).Int64("bytes", n).Msg("downloaded")
		return
	}

	runner := modkit.MustPortsOf[pvdom.RunnerPort](m)

	if *fClickHouse {
		sink, err := m.OpenClickHouse(ctx, "convert")
		if err != nil {
			log.Fatal().Err(err).Msg("clickhouse")
		}
		var sum pvdom.Summary
		if in.Path != "" {
			sum, err = runner.ExportFromFile(ctx, in.Path, sink, *fBatch, fc)
		} else {
			sum, err = runner.ExportFromURL(ctx, in.URL, sink, *fBatch, fc)
		}
		if err != nil {
			stop()
			logger.Problem(log.Fatal(), err).Msg("export failed")
		}
		log.Info().Str("table", sink.Table()).Int64("rows", sum.Rows).Int("batches", sum.Batches).Msg("inserted")
		return
	}

	out := *fOut
	if out == "" {
		out = defaultOut(in)
	}
	if in.Path != "" {
		err = runner.WriteColumnarFromFile(ctx, in.Path, out, *fBatch, fc)
	} else {
		err = runner.WriteColumnarFromURL(ctx, in.URL, out, *fBatch, fc)
	}
	if err != nil {
		stop()
		logger.Problem(log.Fatal(), err).Str("run_id", runID).Msg("convert failed")
	}

	if *fInspect {
		info, err := parquet.Inspect(out)
		if err != nil {
			log.Fatal().Err(err).Msg("inspect")
		}
		fmt.Printf("%s\trows=%d\trow_groups=%d\tcreated_by=%s\n", out, info.Rows, info.RowGroups, info.CreatedBy)
	}
}

// defaultOut derives <name>.parquet from the dump file name
func defaultOut(in pvmod.Input) string {
	name := in.String()
	if i := strings.LastIndexAny(name, "/\\"); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSuffix(name, ".gz")
	if name == "" {
		name = "pageviews"
	}
	return name + ".parquet"
}
