package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"class-election/internal/config"
	"class-election/internal/container"
	"class-election/internal/domain"
	"class-election/internal/service"
	"class-election/pkg/logger"
)

const usage = `Usage: electionctl <command> [flags]

Commands:
  export-voters         [-o file] [-include-voted] [-tokens-only]
  import-voters         [-update] [-force] file.csv
  import-candidates     [-dry-run] [-update] file.csv
  upload-photo          -candidate ID file
  reset-voter           -reg-no REG_NO
  create-position       -title TITLE [-description TEXT]
  set-position-active   -id ID -active=true|false
  set-candidate-active  -id ID -active=true|false`

var errUsage = errors.New("invalid usage")

type cli struct {
	services *service.Services
	stdout   io.Writer
	now      func() time.Time
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewForEnvironment(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	c, err := container.New(ctx, cfg, log.Named("electionctl"))
	if err != nil {
		log.WithError(err).Fatal("Failed to create container")
	}
	defer c.Close()

	app := &cli{services: c.Services, stdout: os.Stdout, now: time.Now}
	if err := app.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	switch command {
	case "export-voters":
		return c.exportVoters(ctx, rest)
	case "import-voters":
		return c.importVoters(ctx, rest)
	case "import-candidates":
		return c.importCandidates(ctx, rest)
	case "upload-photo":
		return c.uploadPhoto(ctx, rest)
	case "reset-voter":
		return c.resetVoter(ctx, rest)
	case "create-position":
		return c.createPosition(ctx, rest)
	case "set-position-active":
		return c.setPositionActive(ctx, rest)
	case "set-candidate-active":
		return c.setCandidateActive(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}
}

func (c *cli) exportVoters(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-voters", flag.ContinueOnError)
	output := fs.String("o", "", "Output file (default voters_export_<timestamp>.csv)")
	includeVoted := fs.Bool("include-voted", false, "Include voters who have already voted")
	tokensOnly := fs.Bool("tokens-only", false, "Only export registration numbers and tokens")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	path := *output
	if path == "" {
		path = fmt.Sprintf("voters_export_%s.csv", c.now().Format("20060102_150405"))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	count, err := c.services.Voters.ExportCSV(ctx, f, domain.ExportOptions{
		IncludeVoted: *includeVoted,
		TokensOnly:   *tokensOnly,
	})
	if err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(c.stdout, "Exported %d voters to %s\n", count, path)
	return nil
}

func (c *cli) importVoters(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-voters", flag.ContinueOnError)
	update := fs.Bool("update", false, "Rename existing voters")
	force := fs.Bool("force", false, "Import even while voting is active")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fs.Arg(0), err)
	}
	defer f.Close()

	summary, err := c.services.Voters.ImportCSV(ctx, f, service.VoterImportOptions{Update: *update, Force: *force}, c.now())
	if err != nil {
		return err
	}
	c.printSummary(summary)
	return nil
}

func (c *cli) importCandidates(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import-candidates", flag.ContinueOnError)
	dryRun := fs.Bool("dry-run", false, "Report changes without writing")
	update := fs.Bool("update", false, "Update existing candidates")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", fs.Arg(0), err)
	}
	defer f.Close()

	summary, err := c.services.Candidates.ImportCSV(ctx, f, service.CandidateImportOptions{DryRun: *dryRun, Update: *update})
	if err != nil {
		return err
	}
	c.printSummary(summary)
	return nil
}

func (c *cli) uploadPhoto(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload-photo", flag.ContinueOnError)
	candidateID := fs.Int64("candidate", 0, "Candidate ID")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 || *candidateID <= 0 {
		return errUsage
	}

	path := fs.Arg(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	candidate, err := c.services.Candidates.UploadPhoto(ctx, *candidateID, filepath.Base(path), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Uploaded photo for %s: %s\n", candidate.Name, candidate.PhotoURL)
	return nil
}

func (c *cli) resetVoter(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-voter", flag.ContinueOnError)
	regNo := fs.String("reg-no", "", "Voter registration number")
	if err := fs.Parse(args); err != nil || strings.TrimSpace(*regNo) == "" {
		return errUsage
	}

	removed, err := c.services.Voters.ResetByRegNo(ctx, strings.TrimSpace(*regNo))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Reset voter %s (%d votes removed)\n", *regNo, removed)
	return nil
}

func (c *cli) createPosition(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create-position", flag.ContinueOnError)
	title := fs.String("title", "", "Position title")
	description := fs.String("description", "", "Position description")
	if err := fs.Parse(args); err != nil || strings.TrimSpace(*title) == "" {
		return errUsage
	}

	position, err := c.services.Positions.Create(ctx, service.PositionInput{Title: *title, Description: *description})
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Created position %d: %s\n", position.ID, position.Title)
	return nil
}

// activeFlags parses the -id/-active pair shared by the set-*-active commands.
func activeFlags(name string, args []string) (int64, bool, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	id := fs.Int64("id", 0, "Record ID")
	active := fs.Bool("active", true, "Show on the ballot")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return 0, false, errUsage
	}
	return *id, *active, nil
}

func activeLabel(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}

func (c *cli) setPositionActive(ctx context.Context, args []string) error {
	id, active, err := activeFlags("set-position-active", args)
	if err != nil {
		return err
	}
	position, err := c.services.Positions.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Position %s is now %s\n", position.Title, activeLabel(position.IsActive))
	return nil
}

func (c *cli) setCandidateActive(ctx context.Context, args []string) error {
	id, active, err := activeFlags("set-candidate-active", args)
	if err != nil {
		return err
	}
	candidate, err := c.services.Candidates.SetActive(ctx, id, active)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.stdout, "Candidate %s is now %s\n", candidate.Name, activeLabel(candidate.IsActive))
	return nil
}

func (c *cli) printSummary(s *domain.ImportSummary) {
	prefix := ""
	if s.DryRun {
		prefix = "[dry run] "
	}
	fmt.Fprintf(c.stdout, "%sCreated: %d, Updated: %d, Skipped: %d\n", prefix, s.Created, s.Updated, s.Skipped)
	for _, e := range s.Errors {
		fmt.Fprintf(c.stdout, "  %s\n", e)
	}
}
