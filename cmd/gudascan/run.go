package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	guda "github.com/LynnColeArt/gudascan"
	"github.com/LynnColeArt/gudascan/internal/logger"
	"github.com/LynnColeArt/gudascan/literal"
	"github.com/LynnColeArt/gudascan/scan"
)

var (
	runtimeFile string
	runs        int64
	synchronous bool
	verify      bool
	progress    bool
	statsJSON   string
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "write-runtime-to",
			Aliases:     []string{"t"},
			Usage:       "write the runtime of every timed run, in microseconds, to this file",
			Destination: &runtimeFile,
		},
		&cli.Int64Flag{
			Name:        "runs",
			Aliases:     []string{"r"},
			Usage:       "perform this many timed runs after one warm-up run",
			Value:       1,
			Destination: &runs,
		},
		&cli.BoolFlag{
			Name:        "synchronous",
			Aliases:     []string{"s"},
			Usage:       "wait for every command and report per-kernel runtimes",
			Destination: &synchronous,
		},
		&cli.BoolFlag{
			Name:        "verify",
			Usage:       "check the result against a sequential reference",
			Destination: &verify,
		},
		&cli.BoolFlag{
			Name:        "progress",
			Usage:       "show a progress bar over the timed runs",
			Destination: &progress,
		},
		&cli.StringFlag{
			Name:        "stats-json",
			Usage:       "write a JSON summary of the session to this file",
			Destination: &statsJSON,
		},
	}
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	ctx, cfg, err := setup(ctx, cmd)
	if err != nil {
		return err
	}
	log := logger.FromContext(ctx)

	input, err := literal.Read(os.Stdin)
	if err != nil {
		log.Debug("reading input", "error", err)
		return cli.Exit("Syntax error when reading [i32].", 1)
	}
	if runs < 1 {
		return cli.Exit("--runs must be at least 1", 1)
	}

	device, err := guda.SelectDevice(platformName, deviceName)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	gctx := guda.NewContext(device,
		guda.WithLogger(log),
		guda.WithSynchronous(synchronous),
		guda.WithFatalHandler(guda.ExitOnFailure(os.Stderr, debug)))
	defer gctx.Destroy()

	engine, err := scan.NewEngine(gctx, scanConfig(cfg))
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	log.Info("scanning",
		"n", len(input),
		"device", device.String(),
		"lockstep", engine.Geometry(len(input)).Lockstep)

	var runtimes io.Writer
	if runtimeFile != "" {
		f, err := os.Create(runtimeFile)
		if err != nil {
			return cli.Exit(fmt.Sprintf("Cannot open %s: %v", runtimeFile, err), 1)
		}
		defer f.Close()
		runtimes = f
	}
	runLog := guda.NewRunLog(runtimes)

	result, err := timedRuns(gctx, engine, input, runLog, cmd.IsSet("runs"))
	if err != nil {
		return err
	}

	if err := literal.Write(os.Stdout, result); err != nil {
		return err
	}

	if synchronous {
		if err := gctx.Stats().Report(os.Stderr); err != nil {
			return err
		}
	}

	var verdict string
	verified := true
	if verify {
		res := guda.VerifyInt32(scan.Reference(input, engine.Config().Addend), result)
		verdict = res.String()
		verified = res.OK()
		_, _ = fmt.Fprintln(os.Stderr, verdict)
	}

	if statsJSON != "" {
		summary := runLog.Summary(device.Name, len(input), engine.Geometry(len(input)), gctx.Stats())
		summary.VerifyResult = verdict
		if err := guda.WriteSummary(statsJSON, summary); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		log.Info("wrote run summary", "path", statsJSON, "session", runLog.Session())
	}

	if !verified {
		return cli.Exit("verification failed", 1)
	}
	return nil
}

// timedRuns uploads input once, runs the scan once untimed when warmUp is
// set, then runs it the requested number of times. Every timed run includes
// waiting for the queue to finish. It returns the result of the last run.
func timedRuns(gctx *guda.Context, engine *scan.Engine, input []int32, runLog *guda.RunLog, warmUp bool) ([]int32, error) {
	q := gctx.Queue()
	in, err := gctx.AllocateInt32(guda.DeviceSpace, len(input))
	if err := gctx.Succeed(err, "AllocateInt32(input)"); err != nil {
		return nil, err
	}
	defer in.Release()
	if err := gctx.Succeed(q.Write(in, input), "Write(input)"); err != nil {
		return nil, err
	}

	once := func() (*guda.Buffer, int, error) {
		out, n, err := engine.Run(in, len(input))
		if err != nil {
			return nil, 0, err
		}
		if err := gctx.Succeed(q.Finish(), "Finish"); err != nil {
			_ = out.Release()
			return nil, 0, err
		}
		return out, n, nil
	}

	if warmUp {
		out, _, err := once()
		if err != nil {
			return nil, err
		}
		_ = out.Release()
	}

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.NewOptions64(runs,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("runs"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish())
	}

	result := &guda.Buffer{}
	defer result.Release()
	var n int
	for i := int64(0); i < runs; i++ {
		start := time.Now()
		out, count, err := once()
		if err != nil {
			return nil, err
		}
		elapsed := time.Since(start)
		if err := runLog.Record(elapsed); err != nil {
			_ = out.Release()
			return nil, err
		}
		_ = result.Share(out)
		_ = out.Release()
		n = count
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	host := make([]int32, n)
	if err := gctx.Succeed(q.Read(host, result), "Read(result)"); err != nil {
		return nil, err
	}
	return host, nil
}
