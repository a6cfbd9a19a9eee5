// Command h5reftest writes a dataset whose reference elements point back
// at the dataset itself, printing the status of every library call.
//
// Usage:
//
//	h5reftest [--region] [--verify] [--config plan.yaml] <outFile>
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/scigolib/h5ref/internal/logging"
	"github.com/scigolib/h5ref/internal/selfref"
)

const VERSION = "v0.1.0"

var errUsage = errors.New("must spec outFile")

func makeApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "h5reftest"
	app.Version = VERSION
	app.Usage = "Write a dataset of references to itself and report every call"
	app.UsageText = "h5reftest [options] <outFile>"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.HideVersion = true
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:    "region",
			Usage:   "Write dataset region references instead of object references",
			EnvVars: []string{"H5REF_REGION"},
		},
		&cli.BoolFlag{
			Name:  "verify",
			Usage: "Reopen the file and dereference every stored reference",
		},
		&cli.StringFlag{
			Name:      "config",
			Usage:     "YAML plan overriding dataset, length, kind, start and count",
			TakesFile: true,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
		},
	}
	app.Action = run
	app.ExitErrHandler = exitErrHandler
	return app
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return errUsage
	}
	log := logging.NewLogger(c.App.Writer, c.App.ErrWriter, c.Bool("verbose"))

	cfg := selfref.DefaultConfig(c.Args().First())
	cfg.Verify = c.Bool("verify")
	if c.Bool("region") {
		cfg.Kind = selfref.RegionRefs
	}
	if plan := c.String("config"); plan != "" {
		if err := loadPlan(plan, &cfg); err != nil {
			return err
		}
	}
	log.Debug("h5reftest", "writing %d %s references to %s in %s", cfg.Length, cfg.Kind, cfg.Dataset, cfg.Path)

	if err := selfref.Run(cfg, &log); err != nil {
		return err
	}
	if cfg.Verify {
		log.Debug("h5reftest", "verifying %s", cfg.Path)
		if err := selfref.Verify(cfg, &log); err != nil {
			return err
		}
		log.Info("h5reftest", "verified %d %s references in %s", cfg.Length, cfg.Kind, cfg.Path)
	}
	return nil
}

func loadPlan(path string, cfg *selfref.Config) error {
	f, err := os.Open(path) //nolint:gosec // G304: plan path comes from the command line
	if err != nil {
		return fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	if err := selfref.LoadPlan(f, cfg); err != nil {
		return fmt.Errorf("plan %s: %w", path, err)
	}
	return nil
}

// Called after the action returns a non-nil error. Failed library calls
// have already been reported step by step; everything else is printed
// here.
func exitErrHandler(c *cli.Context, err error) {
	if err == nil {
		return
	}
	var stepErr *selfref.StepError
	if errors.As(err, &stepErr) {
		return
	}
	fmt.Fprintf(c.App.Writer, "Error: %s\n", err)
}

func main() {
	err := makeApp(os.Stdout, os.Stderr).Run(os.Args)
	if err != nil {
		os.Exit(1)
	}
}
