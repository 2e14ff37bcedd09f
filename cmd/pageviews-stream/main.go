package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pageviews/internal/core/pageview"
	"pageviews/internal/core/version"
	"pageviews/internal/modkit"
	"pageviews/internal/platform/config"
	perr "pageviews/internal/platform/errors"
	"pageviews/internal/platform/logger"

	pvdom "pageviews/internal/services/pageviews/domain"
	pvmod "pageviews/internal/services/pageviews/module"
)

func main() {
	root := config.New()
	l := logger.Named("stream")

	m, err := pvmod.New(modkit.Deps{Cfg: root, Log: *l})
	if err != nil {
		l.Fatal().Err(err).Msg("pageviews module")
	}

	var (
		fFile    = flag.String("file", "", "local dump path")
		fURL     = flag.String("url", "", "dump URL")
		fHour    = flag.String("hour", "", "UTC hour YYYY-MM-DDTHH, fetched from PV_DUMPS_BASE_URL")
		fJSON    = flag.Bool("json", false, "print JSON lines instead of TSV")
		fLimit   = flag.Int("limit", 0, "stop after this many rows (0 = all)")
		fStrict  = flag.Bool("strict", false, "exit on the first malformed line")
		fVersion = flag.Bool("version", false, "print version and exit")
	)
	ff := pvmod.BindFilterFlags(flag.CommandLine, m.Options().Filter)
	flag.Parse()

	if *fVersion {
		fmt.Println(version.Info("pageviews-stream"))
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

	runner := modkit.MustPortsOf[pvdom.RunnerPort](m)
	var it pvdom.RowIter
	if in.Path != "" {
		it, err = runner.StreamFromFile(ctx, in.Path, fc)
	} else {
		it, err = runner.StreamFromURL(ctx, in.URL, fc)
	}
	if err != nil {
		l.Fatal().Err(err).Str("input", in.String()).Msg("open failed")
	}

	out := bufio.NewWriterSize(os.Stdout, 1<<16)
	write := tsv(out)
	if *fJSON {
		write = jsonl(out)
	}

	var rows, bad int
	code := 0
	for row, err := range it.All() {
		if err != nil {
			if perr.IsFatal(err) || *fStrict {
				logger.Problem(l.Error(), err).Str("run_id", runID).Msg("stream failed")
				code = 1
				break
			}
			bad++
			logger.Problem(l.Debug(), err).Msg("skipping line")
			continue
		}
		if err := write(row); err != nil {
			l.Error().Err(err).Msg("write stdout")
			code = 1
			break
		}
		rows++
		if *fLimit > 0 && rows >= *fLimit {
			break
		}
	}
	if err := out.Flush(); err != nil && code == 0 {
		l.Error().Err(err).Msg("flush stdout")
		code = 1
	}
	l.Info().Str("run_id", runID).Str("input", in.String()).Int("rows", rows).Int("bad_lines", bad).Msg("done")
	if code != 0 {
		stop()
		os.Exit(code)
	}
}

func tsv(w *bufio.Writer) func(pageview.Row) error {
	return func(r pageview.Row) error {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%t\n",
			r.DomainCode, r.PageTitle, strconv.FormatUint(uint64(r.Views), 10), r.Language, r.Domain, r.Mobile)
		return err
	}
}

func jsonl(w *bufio.Writer) func(pageview.Row) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return func(r pageview.Row) error { return enc.Encode(r) }
}
