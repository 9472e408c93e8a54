package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/dannyswat/mdsync"
	"github.com/dannyswat/mdsync/internal/logging/gologger"
)

var errConflicts = errors.New("merge left conflicts")

const usage = `usage: mdsync <command> [flags]

commands:
  render     markup to rich text
  markup     rich text to markup
  normalize  trim lines and drop blank ones
  worddiff   annotate changes between two files
  merge      three-way merge with conflict markers
  resolve    keep one side of every conflict
  delta      rich text delta between two files
  sync       load markup into a pair and print both sides`

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errConflicts) {
			os.Exit(1)
		}
		log.Fatalf("mdsync: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	cmd, args := args[0], args[1:]
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	cfg := mdsync.DefaultConfig()
	var extensions string
	fs.StringVar(&extensions, "extensions", strings.Join(cfg.Markdown.Extensions, ","), "Comma separated goldmark extensions")
	fs.BoolVar(&cfg.Markdown.HardWraps, "hard-wraps", false, "Render soft line breaks as <br>")

	switch cmd {
	case "render", "markup", "normalize":
		file := fs.String("file", "", "Input file (defaults to stdin)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg.Markdown.Extensions = splitList(extensions)
		input, err := readInput(*file, stdin)
		if err != nil {
			return err
		}
		conv := mdsync.NewConverter(cfg.Markdown, mdsync.NewGrammar())
		switch cmd {
		case "render":
			fmt.Fprint(stdout, conv.ToRichText(input))
		case "markup":
			fmt.Fprintln(stdout, conv.ToMarkup(input))
		default:
			fmt.Fprintln(stdout, mdsync.Normalize(input))
		}
		return nil

	case "worddiff", "delta":
		oldPath := fs.String("old", "", "Previous version")
		newPath := fs.String("new", "", "Current version")
		if err := fs.Parse(args); err != nil {
			return err
		}
		oldText, newText, err := readPair(*oldPath, *newPath)
		if err != nil {
			return err
		}
		if cmd == "worddiff" {
			fmt.Fprintln(stdout, mdsync.WordDiff(oldText, newText))
			return nil
		}
		delta, err := mdsync.Diff(oldText, newText, "mdsync-cli")
		if err != nil {
			return err
		}
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(delta)

	case "merge":
		basePath := fs.String("base", "", "Common ancestor")
		oursPath := fs.String("ours", "", "Our version")
		theirsPath := fs.String("theirs", "", "Their version")
		oursLabel := fs.String("ours-label", "ours", "Label for our side")
		theirsLabel := fs.String("theirs-label", "theirs", "Label for their side")
		if err := fs.Parse(args); err != nil {
			return err
		}
		base, err := readFile(*basePath, "base")
		if err != nil {
			return err
		}
		ours, theirs, err := readPair(*oursPath, *theirsPath)
		if err != nil {
			return err
		}
		result := mdsync.Merge(base, ours, theirs, mdsync.MergeOptions{OursLabel: *oursLabel, TheirsLabel: *theirsLabel})
		fmt.Fprint(stdout, result.Text)
		if !result.Clean() {
			return fmt.Errorf("%w: %d", errConflicts, len(result.Conflicts))
		}
		return nil

	case "resolve":
		file := fs.String("file", "", "Input file (defaults to stdin)")
		side := fs.String("side", "ours", "Side to keep: ours, theirs or both")
		if err := fs.Parse(args); err != nil {
			return err
		}
		input, err := readInput(*file, stdin)
		if err != nil {
			return err
		}
		s, err := parseSide(*side)
		if err != nil {
			return err
		}
		fmt.Fprint(stdout, mdsync.Resolve(input, s))
		return nil

	case "sync":
		file := fs.String("file", "", "Markup file (defaults to stdin)")
		fs.StringVar(&cfg.Logging.Provider, "log-provider", cfg.Logging.Provider, "noop or gologger")
		fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "Log level")
		fs.StringVar(&cfg.Logging.Format, "log-format", cfg.Logging.Format, "json, console or pretty")
		fs.BoolVar(&cfg.Deltas, "deltas", cfg.Deltas, "Apply rich writes as deltas")
		if err := fs.Parse(args); err != nil {
			return err
		}
		cfg.Markdown.Extensions = splitList(extensions)
		input, err := readInput(*file, stdin)
		if err != nil {
			return err
		}
		return runSync(cfg, input, stdout)

	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func runSync(cfg mdsync.Config, input string, stdout io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	var provider mdsync.LoggerProvider
	if cfg.Logging.Provider == "gologger" {
		p, err := gologger.NewProvider(gologger.FromLoggingConfig(cfg.Logging))
		if err != nil {
			return err
		}
		provider = p
	}

	rich := mdsync.NewMemoryRichSurface("")
	source := mdsync.NewMemoryMarkupSurface(input)
	registry := mdsync.NewRegistry(mdsync.WithRegistryLogger(mdsync.RegistryLogger(provider)))
	err := registry.Discover(map[string]any{
		"document":                    rich,
		"document" + cfg.SourceSuffix: source,
	}, cfg.SourceSuffix)
	if err != nil {
		return err
	}

	dispatcher, err := mdsync.NewFromConfig(cfg, registry, provider)
	if err != nil {
		return err
	}
	dispatcher.Setup()
	if err := dispatcher.Dispatch(mdsync.RichModified{Key: "document", Content: rich.Content()}); err != nil {
		return err
	}

	stats := dispatcher.Stats()
	fmt.Fprintf(stdout, "Rich:\n%s\nMarkup:\n%s\n\nWrites: rich=%d markup=%d deltas=%d suppressed=%d\n",
		rich.Content(), source.Value(), stats.RichWrites, stats.MarkupWrites, stats.Deltas, stats.Suppressed)
	return nil
}

func parseSide(side string) (mdsync.Side, error) {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "ours":
		return mdsync.SideOurs, nil
	case "theirs":
		return mdsync.SideTheirs, nil
	case "both":
		return mdsync.SideBoth, nil
	}
	return 0, fmt.Errorf("unknown side %q", side)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "" {
		data, err := io.ReadAll(stdin)
		return string(data), err
	}
	return readFile(path, "file")
}

func readFile(path, name string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("--%s is required", name)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPair(a, b string) (string, string, error) {
	first, err := readFile(a, "first input")
	if err != nil {
		return "", "", err
	}
	second, err := readFile(b, "second input")
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}
