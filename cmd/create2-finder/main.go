package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manylov/create2-address-finder/internal/config"
	logpkg "github.com/manylov/create2-address-finder/internal/logger"
	"github.com/manylov/create2-address-finder/pkg/gpu"
	minerpkg "github.com/manylov/create2-address-finder/pkg/miner"
	sinkpkg "github.com/manylov/create2-address-finder/pkg/sink"
)

var (
	cfg    = config.NewConfig()
	logger = logpkg.New()
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "create2-finder",
		Short: "High-throughput CREATE2 salt search",
		Long: `Searches for salts that make a CREATE2 factory deploy to an address
matching a target hex prefix, optionally with exact EIP-55 casing.
Found salts are appended to a shared results file together with the
checksummed address.`,
		Run: runSearch,
	}

	rootCmd.Flags().StringVarP(&cfg.FactoryAddress, "factory", "f", "", "Address of the contract executing CREATE2 (hex, 20 bytes) (required)")
	rootCmd.Flags().StringVarP(&cfg.CallingAddress, "caller", "c", "", "Address calling the factory, embedded in the salt (hex, 20 bytes) (required)")
	rootCmd.Flags().StringVarP(&cfg.InitCodeHash, "init-code-hash", "i", "", "keccak256 of the contract initialization code (hex, 32 bytes) (required)")
	rootCmd.Flags().StringVarP(&cfg.Target, "target", "t", "", "Target address prefix, 0x-prefixed, case-significant (required)")
	rootCmd.Flags().IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of worker goroutines")
	rootCmd.Flags().StringVarP(&cfg.OutputFile, "output", "o", cfg.OutputFile, "Append-only results file")
	rootCmd.Flags().IntVarP(&cfg.GPUDevice, "gpu-device", "g", config.GPUDeviceNone, "OpenCL device index (255 = no hardware acceleration)")
	rootCmd.Flags().IntVar(&cfg.LeadingZeroes, "leading-zeroes", cfg.LeadingZeroes, "Batch backend threshold: minimum leading zero bytes")
	rootCmd.Flags().IntVar(&cfg.TotalZeroes, "total-zeroes", cfg.TotalZeroes, "Batch backend threshold: minimum total zero bytes")
	rootCmd.Flags().IntVar(&cfg.LogInterval, "log-interval", cfg.LogInterval, "Progress logging interval in seconds")
	rootCmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runSearch(cmd *cobra.Command, args []string) {
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Error: %v", err)
	}
	params, err := cfg.Params()
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}

	out, err := sinkpkg.Open(cfg.OutputFile, os.Stdout)
	if err != nil {
		logger.Fatalf("Error: %v", err)
	}
	defer out.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Printf("Searching for addresses starting with %s...", params.TargetPrefix)

	interval := time.Duration(cfg.LogInterval) * time.Second
	miner := minerpkg.New(params, cfg.Workers, out, logger, interval)

	if cfg.UseGPU() {
		backend, err := gpu.NewBackend(cfg.GPUDevice)
		if err != nil {
			logger.Fatalf("Error: %v", err)
		}
		logger.Printf("Setting up OpenCL batch search on device %d...", cfg.GPUDevice)
		if err := miner.RunBatches(ctx, backend, gpu.DefaultWorkSize, cfg.LeadingZeroes, cfg.TotalZeroes); err != nil {
			logger.Fatalf("Error: %v", err)
		}
		return
	}

	logger.Printf("Starting search with %d workers...", cfg.Workers)
	if err := miner.Run(ctx); err != nil {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Search stopped.")
}
