package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/pinvault/pinvault/cmd"
)

func main() {
	setupLogging()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		runInit(ctx, os.Args[2:])
	case "unlock":
		runUnlock(ctx, os.Args[2:])
	case "lock":
		runLock(ctx, os.Args[2:])
	case "passwd":
		runPasswd(ctx, os.Args[2:])
	case "export":
		runExport(ctx, os.Args[2:])
	case "import":
		runImport(ctx, os.Args[2:])
	case "backup-diff":
		runBackupDiff(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "profiles":
		runProfiles(ctx, os.Args[2:])
	case "keyring":
		runKeyring(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func setupLogging() {
	level := zerolog.WarnLevel
	if v := os.Getenv("PINVAULT_LOG"); v != "" {
		if parsed, err := zerolog.ParseLevel(v); err == nil {
			level = parsed
		}
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level)
}

func profileFlag(fs *flag.FlagSet) *string {
	return fs.String("profile", cmd.DefaultProfile, "Profile to operate on")
}

func parseOrExit(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runInit(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	profile := profileFlag(fs)
	parseOrExit(fs, args)

	cmd.Init(ctx, *profile)
}

func runUnlock(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("unlock", flag.ExitOnError)
	profile := profileFlag(fs)
	remember := fs.Bool("remember", false, "Store the PIN in the OS keyring")
	parseOrExit(fs, args)

	cmd.Unlock(ctx, *profile, *remember)
}

func runLock(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	profile := profileFlag(fs)
	parseOrExit(fs, args)

	cmd.Lock(ctx, *profile)
}

func runPasswd(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	profile := profileFlag(fs)
	parseOrExit(fs, args)

	cmd.Passwd(ctx, *profile)
}

func runExport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	profile := profileFlag(fs)
	out := fs.String("out", "pinvault.backup", "Backup file to write")
	parseOrExit(fs, args)

	cmd.Export(ctx, *profile, *out)
}

func runImport(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	profile := profileFlag(fs)
	parseOrExit(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pinvault import [--profile <name>] <backup-file>")
		os.Exit(1)
	}
	cmd.Import(ctx, *profile, fs.Arg(0))
}

func runBackupDiff(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("backup-diff", flag.ExitOnError)
	parseOrExit(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: pinvault backup-diff <backup-file>")
		os.Exit(1)
	}
	cmd.BackupDiff(ctx, fs.Arg(0))
}

func runStatus(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	parseOrExit(fs, args)

	cmd.Status(ctx)
}

func runProfiles(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("profiles", flag.ExitOnError)
	parseOrExit(fs, args)

	cmd.Profiles(ctx)
}

func runKeyring(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: pinvault keyring <save|delete|status> [--profile <name>]")
		os.Exit(1)
	}
	fs := flag.NewFlagSet("keyring", flag.ExitOnError)
	profile := profileFlag(fs)
	parseOrExit(fs, args[1:])

	switch args[0] {
	case "save":
		cmd.KeyringSave(ctx, *profile)
	case "delete":
		cmd.KeyringDelete(ctx, *profile)
	case "status":
		cmd.KeyringStatus(ctx, *profile)
	default:
		fmt.Fprintf(os.Stderr, "Unknown keyring subcommand: %s\n", args[0])
		os.Exit(1)
	}
}

func runCompact(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("compact", flag.ExitOnError)
	parseOrExit(fs, args)

	cmd.Compact(ctx)
}

func printUsage() {
	fmt.Println("pinvault - PIN-protected local data vault")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pinvault <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  init         Create the vault and set up a profile PIN")
	fmt.Println("  unlock       Verify the PIN, optionally remember it in the keyring")
	fmt.Println("  lock         Forget a remembered PIN")
	fmt.Println("  passwd       Change a profile's PIN")
	fmt.Println("  export       Write an encrypted backup file")
	fmt.Println("  import       Merge an encrypted backup into the vault")
	fmt.Println("  backup-diff  Show what importing a backup would add")
	fmt.Println("  status       Show vault status (no PIN required)")
	fmt.Println("  profiles     List profiles")
	fmt.Println("  keyring      Manage the PIN stored in the OS keyring")
	fmt.Println("  compact      Compact the vault to reclaim disk space")
	fmt.Println("  help         Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pinvault init                      # Create vault and set PIN")
	fmt.Println("  pinvault unlock --remember         # Unlock and cache PIN in keyring")
	fmt.Println("  pinvault export --out my.backup    # Encrypted backup")
	fmt.Println("  pinvault import my.backup          # Merge backup into this vault")
	fmt.Println()
	fmt.Println("Use 'pinvault help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "init":
		fmt.Println("pinvault init [--profile <name>]")
		fmt.Println()
		fmt.Println("Creates the vault database and sets up a profile's PIN.")
		fmt.Println("The PIN is never stored; only a salted verification hash is kept.")
		fmt.Println("The vault lives at $PINVAULT_PATH or ~/.pinvault/vault.db.")
	case "unlock":
		fmt.Println("pinvault unlock [--profile <name>] [--remember]")
		fmt.Println()
		fmt.Println("Verifies the profile's PIN. Repeated wrong PINs trigger")
		fmt.Println("progressively longer lockouts (5 failures: 5 minutes,")
		fmt.Println("10: 15 minutes, 15 or more: 60 minutes).")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --remember   Store the PIN in the OS keyring")
	case "lock":
		fmt.Println("pinvault lock [--profile <name>]")
		fmt.Println()
		fmt.Println("Removes the profile's PIN from the OS keyring, so the next")
		fmt.Println("command prompts for it again.")
	case "passwd":
		fmt.Println("pinvault passwd [--profile <name>]")
		fmt.Println()
		fmt.Println("Changes a profile's PIN. The current PIN is required, and the")
		fmt.Println("new credentials are derived with a fresh random salt.")
	case "export":
		fmt.Println("pinvault export [--profile <name>] [--out <file>]")
		fmt.Println()
		fmt.Println("Writes the whole vault to an encrypted backup file. Prompts for")
		fmt.Println("the profile PIN, then for a backup password that encrypts the")
		fmt.Println("file. The backup can be imported into any pinvault.")
	case "import":
		fmt.Println("pinvault import [--profile <name>] <backup-file>")
		fmt.Println()
		fmt.Println("Merges a backup into the vault. Records are re-attributed to the")
		fmt.Println("target profile and given fresh ids; nothing existing is ever")
		fmt.Println("modified or removed. The import is all-or-nothing.")
	case "backup-diff":
		fmt.Println("pinvault backup-diff <backup-file>")
		fmt.Println()
		fmt.Println("Decrypts a backup and shows a line diff against the current")
		fmt.Println("vault contents, so you can inspect what an import would add.")
	case "status":
		fmt.Println("pinvault status")
		fmt.Println()
		fmt.Println("Shows vault location, profiles with their lockout state, and")
		fmt.Println("record counts per collection. Does not require a PIN.")
	case "profiles":
		fmt.Println("pinvault profiles")
		fmt.Println()
		fmt.Println("Lists profile IDs with stored credentials. Does not require a PIN.")
	case "keyring":
		fmt.Println("pinvault keyring <save|delete|status> [--profile <name>]")
		fmt.Println()
		fmt.Println("Manages the PIN cached in the OS keyring. 'save' verifies the")
		fmt.Println("PIN before storing it.")
	case "compact":
		fmt.Println("pinvault compact")
		fmt.Println()
		fmt.Println("Compacts the vault database to reclaim unused disk space.")
		fmt.Println("Does not require a PIN.")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
