// ABOUTME: Entry point for shell-bridge, the host-facing lifecycle and relay server
// ABOUTME: Dispatches the serve, health, services and token commands

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/2389/shell-bridge/internal/auth"
	"github.com/2389/shell-bridge/internal/config"
	"github.com/2389/shell-bridge/internal/gateway"
)

// Version is set at build time.
var version = "dev"

const banner = `
     _          _ _       _          _     _
 ___| |__   ___| | |     | |__  _ __(_) __| | __ _  ___
/ __| '_ \ / _ \ | |_____| '_ \| '__| |/ _' |/ _' |/ _ \
\__ \ | | |  __/ | |_____| |_) | |  | | (_| | (_| |  __/
|___/_| |_|\___|_|_|     |_.__/|_|  |_|\__,_|\__, |\___|
                                             |___/
`

const defaultTokenTTL = 24 * time.Hour

func usage() {
	fmt.Println("Usage: shell-bridge <command> [--config PATH]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                           Start the bridge and host API servers")
	fmt.Println("  health                          Check server health")
	fmt.Println("  services                        Show the coordinator and its service instances")
	fmt.Println("  token [--subject S] [--ttl D]   Mint a bridge access token")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	flags, err := parseFlags(os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		err = runServe(ctx, flags)
	case "health":
		err = runHealth(ctx, flags)
	case "services":
		err = runServices(ctx, flags)
	case "token":
		err = runToken(flags)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags are the flags shared by all commands.
type cliFlags struct {
	configPath string
	subject    string
	ttl        time.Duration
}

// parseFlags accepts both "--flag value" and "--flag=value".
func parseFlags(args []string) (cliFlags, error) {
	f := cliFlags{ttl: defaultTokenTTL}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		name, value, hasValue := strings.Cut(arg, "=")
		if !strings.HasPrefix(name, "-") {
			return f, fmt.Errorf("unexpected argument: %s", arg)
		}
		name = strings.TrimLeft(name, "-")

		if !hasValue {
			if i+1 >= len(args) {
				return f, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}

		switch name {
		case "config", "c":
			f.configPath = value
		case "subject", "s":
			f.subject = value
		case "ttl":
			d, err := time.ParseDuration(value)
			if err != nil {
				return f, fmt.Errorf("invalid --ttl: %w", err)
			}
			if d <= 0 {
				return f, fmt.Errorf("--ttl must be positive")
			}
			f.ttl = d
		default:
			return f, fmt.Errorf("unknown flag: %s", arg)
		}
	}

	if f.configPath == "" {
		f.configPath = config.DefaultPath()
	}
	return f, nil
}

func runServe(ctx context.Context, flags cliFlags) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog := setupLogger(cfg.Logging)
	defer closeLog()

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", flags.configPath)
	green.Print("    ▶ ")
	fmt.Printf("gRPC:      %s\n", cfg.Server.GRPCAddr)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	if cfg.Database.Path != "" {
		green.Print("    ▶ ")
		fmt.Printf("Ledger:    %s\n", cfg.Database.Path)
	}
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ! ")
		fmt.Println("Auth:      disabled")
	}
	fmt.Println()

	watcher, err := config.NewWatcher(flags.configPath, logger, func(next *config.Config) {
		logLevel.Set(next.Logging.SlogLevel())
		logger.Info("config reloaded", "log_level", next.Logging.Level)
	})
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		logger.Warn("config hot reload unavailable", "error", err)
	}
	defer stopLogged(logger, "config watcher", watcher.Stop)

	logger.Info("starting shell-bridge",
		"version", version,
		"config", flags.configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// stopLogged runs stop and logs a failure instead of discarding it.
func stopLogged(logger *slog.Logger, name string, stop func() error) {
	if err := stop(); err != nil {
		logger.Warn("failed to stop "+name, "error", err)
	}
}

func runToken(flags cliFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is not configured")
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return err
	}

	subject := flags.subject
	if subject == "" {
		subject = "runtime-" + uuid.NewString()
	}

	token, err := verifier.Generate(subject, flags.ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "subject: %s  expires in: %s\n", subject, flags.ttl)
	fmt.Println(token)
	return nil
}
