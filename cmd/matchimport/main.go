// Command matchimport runs the import pipeline on one file and prints the
// canonical events as JSON. With -persist the events are stored instead
// and the import summary is printed.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/matchlog/internal/adapters/repository"
	service "github.com/okian/matchlog/internal/app"
	"github.com/okian/matchlog/internal/domain/profile"
	"github.com/okian/matchlog/internal/domain/source"
	"github.com/okian/matchlog/internal/domain/timeline"
	"github.com/okian/matchlog/pkg/logger"
)

var errUsage = errors.New("usage")

type options struct {
	file        string
	profilePath string
	ourTeam     string
	opponent    string
	persist     bool
	dbPath      string
	debugDir    string
	verbose     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("matchimport", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.file, "file", "", "Source file (.xml, .xlsx)")
	fs.StringVar(&o.profilePath, "profile", "", "Import profile YAML (default: built-in profile)")
	fs.StringVar(&o.ourTeam, "our-team", "", "Our team name")
	fs.StringVar(&o.opponent, "opponent", "", "Opponent team name")
	fs.BoolVar(&o.persist, "persist", false, "Store the events instead of printing them")
	fs.StringVar(&o.dbPath, "db", repository.DefaultDBFile, "Database file used with -persist")
	fs.StringVar(&o.debugDir, "debug-dir", "", "Write parse snapshots to this directory")
	fs.BoolVar(&o.verbose, "verbose", false, "Log pipeline progress to stderr")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.file == "" && fs.NArg() > 0 {
		o.file = fs.Arg(0)
	}
	if o.file == "" {
		fs.Usage()
		return o, fmt.Errorf("%w: -file is required", errUsage)
	}
	return o, nil
}

type output struct {
	Batch    string                   `json:"batch"`
	OurTeam  string                   `json:"our_team"`
	Opponent string                   `json:"opponent,omitempty"`
	Anchors  timeline.Anchors         `json:"anchors"`
	Defects  any                      `json:"defects,omitempty"`
	Events   []service.CanonicalEvent `json:"events"`
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	log := logger.Nop()
	if o.verbose {
		if err := logger.Init(logger.WithOutput(stderr)); err != nil {
			return err
		}
		_ = logger.SetLevelString("debug")
		log = logger.Get()
	}

	prof := profile.Default()
	if o.profilePath != "" {
		if prof, err = profile.LoadFile(o.profilePath); err != nil {
			return err
		}
	}

	pipeline := service.NewPipeline(
		service.WithParser(source.NewParser(source.WithDebugDir(o.debugDir), source.WithLogger(log))),
		service.WithPipelineLogger(log),
	)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")

	if o.persist {
		svc := service.New(
			service.WithLogger(log),
			service.WithWorkerCount(1),
			service.WithDatabasePath(o.dbPath),
			service.WithPipeline(pipeline),
			service.WithProfiles(prof),
		)
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop()
		sum, err := svc.Import(ctx, service.ImportRequest{
			Path:     o.file,
			Profile:  prof.Name,
			OurTeam:  o.ourTeam,
			Opponent: o.opponent,
		})
		if err != nil {
			return err
		}
		return enc.Encode(sum)
	}

	res, err := pipeline.Run(ctx, service.RunInput{
		Path:     o.file,
		Profile:  prof,
		OurTeam:  o.ourTeam,
		Opponent: o.opponent,
	})
	if err != nil {
		return err
	}
	out := output{
		Batch:    res.Batch,
		OurTeam:  res.OurTeam,
		Opponent: res.Opponent,
		Anchors:  res.Anchors,
		Events:   service.Canonical(res.Events),
	}
	if len(res.Defects) > 0 {
		out.Defects = res.Defects
	}
	return enc.Encode(out)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			os.Stderr.WriteString("matchimport: " + err.Error() + "\n")
		}
		stop()
		os.Exit(2)
	}
}
