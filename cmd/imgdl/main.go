package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	apihttp "github.com/veranemoloko/image-downloader/internal/api/http"
	"github.com/veranemoloko/image-downloader/internal/batch"
	"github.com/veranemoloko/image-downloader/internal/config"
	"github.com/veranemoloko/image-downloader/internal/storage"
	"github.com/veranemoloko/image-downloader/internal/transport"
	"github.com/veranemoloko/image-downloader/internal/validation"
	"github.com/veranemoloko/image-downloader/internal/worker"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitInvalidArgs  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type overrides struct {
	output       string
	concurrency  int
	timeout      int
	deadline     int
	prefix       string
	formats      string
	minWidth     int
	minHeight    int
	proxyHTTP    string
	proxySocks5  string
	metricsAddr  string
	logLevel     string
	blockPrivate bool
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("imgdl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: imgdl [flags] [url-file]\n\n")
		fmt.Fprintf(stderr, "Downloads the image URLs listed one per line in url-file (or stdin).\n\n")
		fs.PrintDefaults()
	}

	var o overrides
	envFile := fs.String("env-file", ".env", "Optional dotenv file with ID_* settings")
	fs.StringVar(&o.output, "o", "", "Output directory to save downloaded images")
	fs.IntVar(&o.concurrency, "j", 0, "Number of concurrent downloads")
	fs.IntVar(&o.timeout, "t", 0, "Seconds to timeout each download attempt")
	fs.IntVar(&o.deadline, "deadline", 0, "Seconds the whole batch may take")
	fs.StringVar(&o.prefix, "prefix", "", "File name prefix (random token when empty)")
	fs.StringVar(&o.formats, "formats", "", "Comma separated accepted formats, e.g. jpg,png")
	fs.IntVar(&o.minWidth, "min-width", 0, "Minimum image width (0 disables the size filter)")
	fs.IntVar(&o.minHeight, "min-height", 0, "Minimum image height (0 disables the size filter)")
	fs.StringVar(&o.proxyHTTP, "proxy-http", "", "HTTP proxy, e.g. 192.168.0.2:8080")
	fs.StringVar(&o.proxySocks5, "proxy-socks5", "", "SOCKS5 proxy, e.g. 192.168.0.2:1080")
	fs.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve /health and /metrics on this address")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&o.blockPrivate, "block-private", false, "Skip URLs pointing at loopback or private hosts")

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	applyOverrides(fs, cfg, o)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	logger := config.SetupLogger(cfg, stderr)

	urls, err := readURLs(fs.Arg(0), stdin)
	if err != nil {
		logger.Error("failed to read urls", "error", err)
		return ExitInvalidArgs
	}
	valid, invalid := validation.FilterURLs(urls, o.blockPrivate)
	for _, u := range invalid {
		logger.Warn("skipping invalid url", "url", u)
	}

	client, err := transport.NewClient(transport.Options{
		ProxyURL:            cfg.ProxyURL(),
		Header:              transport.DefaultHeader(cfg.UserAgent, config.DefaultAccept),
		MaxIdleConnsPerHost: cfg.Concurrency,
	})
	if err != nil {
		logger.Error("failed to build http client", "error", err)
		return ExitInvalidArgs
	}

	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           apihttp.NewRouter(logger),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			logger.Info("metrics server starting", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer shutdownServer(server, logger)
	}

	fileStorage := storage.NewFileStorage(cfg.DownloadDir)
	downloadWorker := worker.NewDownloadWorker(*cfg, fileStorage, client, logger)
	coordinator := batch.NewCoordinator(*cfg, fileStorage, downloadWorker, nil, logger)

	result, err := coordinator.Run(ctx, valid)
	if err != nil {
		logger.Error("batch failed", "error", err)
		return ExitGeneralError
	}

	fmt.Fprintf(stdout, "Downloaded %d of %d images.\n", result.SuccessCount, len(valid)+len(invalid))
	return ExitSuccess
}

// applyOverrides copies explicitly set flags over the loaded configuration.
func applyOverrides(fs *flag.FlagSet, cfg *config.Config, o overrides) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "o":
			cfg.DownloadDir = o.output
		case "j":
			cfg.Concurrency = o.concurrency
		case "t":
			cfg.Timeout = time.Duration(o.timeout) * time.Second
		case "deadline":
			cfg.BatchDeadline = time.Duration(o.deadline) * time.Second
		case "prefix":
			cfg.FilePrefix = o.prefix
		case "formats":
			cfg.Formats = splitList(o.formats)
		case "min-width":
			cfg.MinWidth = o.minWidth
		case "min-height":
			cfg.MinHeight = o.minHeight
		case "metrics-addr":
			cfg.MetricsAddr = o.metricsAddr
		case "log-level":
			cfg.LogLevel = o.logLevel
		}
	})

	// An HTTP proxy wins over SOCKS5 when both are given.
	switch {
	case o.proxyHTTP != "":
		cfg.ProxyType, cfg.ProxyAddr = "http", o.proxyHTTP
	case o.proxySocks5 != "":
		cfg.ProxyType, cfg.ProxyAddr = "socks5", o.proxySocks5
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, strings.ToLower(part))
		}
	}
	return out
}

// readURLs reads one URL per line from path, or from stdin when path is "" or "-".
func readURLs(path string, stdin io.Reader) ([]string, error) {
	src := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open url file: %w", err)
		}
		defer f.Close()
		src = f
	}

	var urls []string
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		urls = append(urls, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read urls: %w", err)
	}
	return urls, nil
}

func shutdownServer(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("metrics server shutdown failed", "error", err)
	}
}
