package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Aidin1998/pincex_matching/internal/config"
	"github.com/Aidin1998/pincex_matching/internal/exchange"
	"github.com/Aidin1998/pincex_matching/internal/ledger"
	"github.com/Aidin1998/pincex_matching/internal/report"
	apperrors "github.com/Aidin1998/pincex_matching/pkg/errors"
	"github.com/Aidin1998/pincex_matching/pkg/logger"
)

// output is printed to stdout for a committed batch.
type output struct {
	Receipt *exchange.BatchReceipt `json:"receipt"`
	Report  report.Batch           `json:"report"`
}

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	configPath := pflag.StringP("config", "c", "", "matcher configuration file (default: search ./matcher.yaml, ./configs, /etc/pincex)")
	batchPath := pflag.StringP("batch", "b", "", "YAML file with the left and right orders to match")
	pflag.Parse()

	if *batchPath == "" {
		fmt.Fprintln(os.Stderr, "usage: matcher --batch orders.yaml [--config matcher.yaml]")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	// Bootstrap logger until the configured level is known
	bootLogger, err := logger.NewLogger(os.Getenv("MATCHER_LOG_LEVEL"))
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	cfg, err := config.NewManager(*configPath, bootLogger).LoadConfig()
	if err != nil {
		bootLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	zapLogger, err := logger.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := run(ctx, zapLogger, cfg, *batchPath, os.Stdout)
	if code != 0 {
		zapLogger.Sync()
		stop()
		os.Exit(code)
	}
}

// run matches the batch file at path and writes the receipt or a problem
// document to out. It returns the process exit code.
func run(ctx context.Context, zapLogger *zap.Logger, cfg config.Config, path string, out io.Writer) int {
	req, err := readBatchFile(path)
	if err != nil {
		zapLogger.Error("Invalid batch file", zap.String("path", path), zap.Error(err))
		return 2
	}

	l := ledger.New(zapLogger, ledger.WithClockSkew(cfg.Ledger.ClockSkew))
	engine := exchange.NewEngine(zapLogger, l, cfg.Matching)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")

	receipt, err := engine.BatchMatchOrders(ctx, req)
	if err != nil {
		traceID := uuid.NewString()
		zapLogger.Error("Batch rejected", zap.String("trace_id", traceID), zap.Error(err))
		if encErr := enc.Encode(apperrors.FromError(err, path).WithTraceID(traceID)); encErr != nil {
			zapLogger.Error("Failed to write problem details", zap.Error(encErr))
		}
		return 1
	}

	res := output{
		Receipt: receipt,
		Report:  report.SummarizeBatch(req.LeftOrders, req.RightOrders, receipt.Results),
	}
	if err := enc.Encode(res); err != nil {
		zapLogger.Error("Failed to write receipt", zap.Error(err))
		return 1
	}
	return 0
}
