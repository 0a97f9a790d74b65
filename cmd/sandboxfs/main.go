// Command sandboxfs runs file operations against an in-process sandboxed
// target context through the polling bridge. It exists to exercise the
// full pipeline end to end and to poke at a target interactively:
//
//	sandboxfs write notes/hello.txt "hello world"
//	sandboxfs demo
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/GriffinCanCode/sandboxfs/internal/bridge"
	"github.com/GriffinCanCode/sandboxfs/internal/config"
	"github.com/GriffinCanCode/sandboxfs/internal/host"
	"github.com/GriffinCanCode/sandboxfs/internal/logging"
	"github.com/GriffinCanCode/sandboxfs/internal/monitoring"
	"github.com/GriffinCanCode/sandboxfs/internal/sniff"
	"github.com/GriffinCanCode/sandboxfs/internal/target"
	"github.com/GriffinCanCode/sandboxfs/internal/vfs"
)

func main() {
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	convention := flag.String("convention", "", "Host convention: callback or promise")
	unstable := flag.Bool("unstable", false, "Use the slower poll interval for flaky hosts")
	timeout := flag.Duration("timeout", 30*time.Second, "Per-operation deadline")
	flag.Usage = usage
	flag.Parse()

	cfg := config.LoadOrDefault()
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *convention != "" {
		cfg.Host.Convention = *convention
	}
	if *unstable {
		cfg.Bridge.Unstable = true
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	fs, rt, err := buildPipeline(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	if err := run(ctx, fs, rt, flag.Args()); err != nil {
		log.Fatalf("%v", err)
	}
}

// buildPipeline wires target, host, adapter, dispatcher, stager, and
// facade from configuration.
func buildPipeline(cfg *config.Config, logger *logging.Logger) (*vfs.FS, *target.Runtime, error) {
	rt, err := target.New(target.Config{
		EvalTimeout:        cfg.Target.EvalTimeout,
		Quota:              cfg.Target.Quota,
		LargeTextThreshold: cfg.Target.LargeTextThreshold,
		Sniff: sniff.Options{
			SampleSize:       cfg.Sniff.SampleSize,
			HighByteRatio:    cfg.Sniff.HighByteRatio,
			ControlByteRatio: cfg.Sniff.ControlByteRatio,
		},
	}, logger.Named("target"))
	if err != nil {
		return nil, nil, fmt.Errorf("creating target runtime: %w", err)
	}

	var h any
	switch cfg.Host.Convention {
	case "promise":
		h = host.NewPromise(rt)
	default:
		h = host.NewCallback(rt)
	}

	adapter, err := bridge.NewAdapter(h)
	if err != nil {
		return nil, nil, err
	}

	dispatcher := bridge.NewDispatcher(adapter, bridge.Config{
		PollInterval:         cfg.Bridge.PollInterval,
		UnstablePollInterval: cfg.Bridge.UnstablePollInterval,
		MaxAttempts:          cfg.Bridge.MaxAttempts,
		TransientRetries:     cfg.Bridge.TransientRetries,
		TransientBackoff:     cfg.Bridge.TransientBackoff,
		Unstable:             cfg.Bridge.Unstable,
	}, logger.Named("bridge"), monitoring.New())

	stager := bridge.NewStager(dispatcher, cfg.Staging.ChunkSize, logger.Named("staging"))
	return vfs.New(dispatcher, stager, logger.Named("vfs")), rt, nil
}

func run(ctx context.Context, fs *vfs.FS, rt *target.Runtime, args []string) error {
	if len(args) == 0 {
		usage()
		return fmt.Errorf("no command given")
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "ls":
		p := "/"
		if len(args) > 0 {
			p = args[0]
		}
		entries, err := fs.List(ctx, p)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%-10s %8d  %s\n", e.Kind, e.Size, e.Name)
		}
		return nil

	case "read":
		content, err := fs.Read(ctx, arg(args, 0))
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil

	case "stat":
		res, err := fs.ReadWithMeta(ctx, arg(args, 0), vfs.ReadOptions{})
		if err != nil {
			return err
		}
		fmt.Printf("mime: %s\ntype: %s\nsize: %d\nbase64: %t\nlarge: %t\nencoding: %s\n",
			res.MimeType, res.DetectedType, res.Size, res.IsBase64, res.IsLargeText, res.Encoding)
		return nil

	case "write":
		return fs.WriteText(ctx, arg(args, 0), arg(args, 1))

	case "import":
		// Copy a real local file into the target, binary-safe.
		data, err := os.ReadFile(arg(args, 1))
		if err != nil {
			return err
		}
		return fs.Write(ctx, arg(args, 0), data, true)

	case "mkdir":
		return fs.Create(ctx, arg(args, 0), vfs.KindDirectory)

	case "touch":
		return fs.Create(ctx, arg(args, 0), vfs.KindFile)

	case "rm":
		return fs.Delete(ctx, arg(args, 0))

	case "rename":
		return fs.Rename(ctx, arg(args, 0), arg(args, 1))

	case "mv":
		return fs.Move(ctx, arg(args, 0), arg(args, 1))

	case "exists":
		present, err := fs.Exists(ctx, arg(args, 0))
		if err != nil {
			return err
		}
		fmt.Println(present)
		return nil

	case "df":
		est, err := fs.GetStorageEstimate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("usage: %d / %d bytes\n", est.Usage, est.Quota)
		return nil

	case "export":
		// Download lands through the target's hook; write it locally.
		dst := arg(args, 1)
		rt.OnDownload = func(name string, data []byte) {
			out := dst
			if out == "" {
				out = filepath.Base(name)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				log.Printf("writing %s: %v", out, err)
			}
		}
		return fs.Download(ctx, arg(args, 0))

	case "demo":
		return demo(ctx, fs)

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// demo runs one of everything and prints the results.
func demo(ctx context.Context, fs *vfs.FS) error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"write text", func() error { return fs.WriteText(ctx, "docs/readme.txt", "sandboxfs demo\n") }},
		{"write binary", func() error {
			return fs.WriteBinary(ctx, "bin/blob.dat", []byte{0x00, 0x01, 0x02, 0xfe, 0xff})
		}},
		{"mkdir", func() error { return fs.Create(ctx, "tmp", vfs.KindDirectory) }},
		{"move", func() error { return fs.Move(ctx, "bin/blob.dat", "tmp/blob.dat") }},
		{"rename", func() error { return fs.Rename(ctx, "docs/readme.txt", "README.txt") }},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}

	content, err := fs.Read(ctx, "docs/README.txt")
	if err != nil {
		return err
	}
	fmt.Print(content)

	for _, p := range []string{"/", "docs", "tmp"} {
		entries, err := fs.List(ctx, p)
		if err != nil {
			return err
		}
		fmt.Printf("%s:\n", p)
		for _, e := range entries {
			fmt.Printf("  %-10s %8d  %s\n", e.Kind, e.Size, e.Name)
		}
	}

	est, err := fs.GetStorageEstimate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("usage: %d / %d bytes\n", est.Usage, est.Quota)
	return nil
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: sandboxfs [flags] <command> [args]

Commands:
  ls [path]             list a directory
  read <path>           print file content (binary shows a sentinel)
  stat <path>           print detected type, size, and encoding
  write <path> <text>   write text content
  import <path> <file>  copy a local file in, binary-safe
  mkdir <path>          create a directory
  touch <path>          create an empty file
  rm <path>             delete a file or directory tree
  rename <path> <name>  rename in place
  mv <src> <dst>        move a file or subtree
  exists <path>         report whether an entry exists
  df                    print storage usage against quota
  export <path> [out]   download a file to the local disk
  demo                  run one of everything

Flags:
`)
	flag.PrintDefaults()
}
