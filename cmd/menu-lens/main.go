package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ironsheep/menu-lens/internal/config"
	"github.com/ironsheep/menu-lens/internal/logging"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func usage() {
	fmt.Println("menu-lens - tap a dish name on a menu photo to read what it is")
	fmt.Println()
	fmt.Println("Usage: menu-lens [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --config PATH    YAML configuration file")
	fmt.Println("  --http ADDR      Serve the HTTP API on ADDR instead of MCP over stdio")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  MENU_LENS_LOG_LEVEL=debug           Enable debug logging")
	fmt.Println("  MENU_LENS_MENU_PATH=menu.csv        Menu table with name,description columns")
	fmt.Println("  MENU_LENS_RECOGNIZER_BACKEND=...    vision (default) or tesseract")
	fmt.Println("  GOOGLE_CLIENT_EMAIL, GOOGLE_PRIVATE_KEY")
	fmt.Println("                                      Vision service account credentials")
	fmt.Println()
	fmt.Println("Without --http the server communicates via MCP protocol over stdin/stdout.")
}

func main() {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		httpAddr    = flag.String("http", "", "Serve the HTTP API on this address")
		showVersion = flag.Bool("version", false, "Print version information")
		showHelp    = flag.Bool("help", false, "Print help")
	)
	flag.BoolVar(showVersion, "v", false, "Print version information")
	flag.BoolVar(showHelp, "h", false, "Print help")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("menu-lens %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}
	if *showHelp {
		usage()
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "menu-lens: %v\n", err)
		os.Exit(2)
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	// stdout is reserved for the MCP protocol.
	log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	log.Info("starting", "version", Version, "commit", GitCommit, "build_time", BuildTime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
