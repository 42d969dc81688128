package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weaveget/weaveget/internal/config"
	"github.com/weaveget/weaveget/internal/output"
	"github.com/weaveget/weaveget/internal/scheduler"
	"github.com/weaveget/weaveget/internal/utils"
)

var (
	outputPath    string
	concurrency   int
	gatewayURL    string
	timeout       time.Duration
	kaTimeout     time.Duration
	proxyURL      string
	proxyUsername string
	proxyPassword string
	userAgent     string
	headers       []string
	debug         bool
	txListFile    string
	numWorkers    int
)

var WeavegetVersion = "dev"

var rootCmd = &cobra.Command{
	Use:     "weaveget [TX_ID]",
	Short:   "Weaveget is a fast CLI downloader for permaweb transaction data",
	Version: WeavegetVersion,
	Args:    cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		utils.InitLogger(debug)
		if len(args) == 0 && txListFile == "" {
			output.PrintError("No transaction ID or list file provided")
			os.Exit(1)
		}
		if txListFile != "" && len(args) > 0 {
			output.PrintError("Cannot specify a transaction argument and --list together, choose one")
			os.Exit(1)
		}
		envCfg, err := config.FromEnv()
		if err != nil {
			output.PrintError(fmt.Sprintf("Invalid environment configuration: %v", err))
			os.Exit(1)
		}
		applyEnvDefaults(cmd, envCfg)
		httpClientConfig := utils.HTTPClientConfig{
			Timeout:       timeout,
			KATimeout:     kaTimeout,
			ProxyURL:      proxyURL,
			ProxyUsername: proxyUsername,
			ProxyPassword: proxyPassword,
			UserAgent:     userAgent,
			Headers:       parseHeaderArgs(headers),
		}
		var jobs []utils.WeaveJob
		if len(args) > 0 {
			txID := args[0]
			op := outputPath
			if op == "" {
				op = txID
			}
			if _, err := os.Stat(op); err == nil {
				op = utils.RenewOutputPath(op)
			}
			jobs = append(jobs, utils.WeaveJob{
				TxID:             txID,
				OutputPath:       op,
				Concurrency:      concurrency,
				GatewayURL:       gatewayURL,
				HTTPClientConfig: httpClientConfig,
				Metadata:         make(map[string]any),
			})
		} else {
			entries, err := utils.ReadDownloadList(txListFile)
			if err != nil {
				output.PrintError("Failed to read transaction list file")
				os.Exit(1)
			}
			for _, entry := range entries {
				jobs = append(jobs, utils.WeaveJob{
					TxID:             entry.TxID,
					OutputPath:       entry.OutputPath,
					Concurrency:      concurrency,
					GatewayURL:       gatewayURL,
					HTTPClientConfig: httpClientConfig,
					Metadata:         make(map[string]any),
				})
			}
		}
		if err := scheduler.Run(jobs, numWorkers); err != nil {
			fmt.Println()
			output.PrintError("Encountered failed operation(s)")
			os.Exit(1)
		}
	},
}

// applyEnvDefaults fills flag values from the environment config for flags the
// user did not set explicitly.
func applyEnvDefaults(cmd *cobra.Command, cfg *config.Config) {
	if !cmd.Flags().Changed("gateway") {
		gatewayURL = cfg.Gateway
	}
	if !cmd.Flags().Changed("concurrency") {
		concurrency = cfg.Concurrency
	}
	if !cmd.Flags().Changed("timeout") {
		timeout = cfg.Timeout
	}
	if !cmd.Flags().Changed("keep-alive-timeout") {
		kaTimeout = cfg.KATimeout
	}
	if !cmd.Flags().Changed("proxy") && cfg.Proxy != "" {
		proxyURL = cfg.Proxy
	}
}

func parseHeaderArgs(args []string) map[string]string {
	parsed := make(map[string]string)
	for _, header := range args {
		for i := 0; i < len(header); i++ {
			if header[i] == ':' {
				key := header[:i]
				value := header[i+1:]
				for len(value) > 0 && value[0] == ' ' {
					value = value[1:]
				}
				parsed[key] = value
				break
			}
		}
	}
	return parsed
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path or s3://bucket/key (defaults to the transaction ID)")
	rootCmd.Flags().StringVarP(&txListFile, "list", "l", "", "Path to YAML file containing transaction IDs and output paths")
	rootCmd.Flags().IntVarP(&numWorkers, "workers", "w", 1, "Number of transactions to download in parallel")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", utils.DefaultConcurrency, "Number of chunk fetches in flight per download")
	rootCmd.Flags().StringVarP(&gatewayURL, "gateway", "g", "https://arweave.net", "Gateway base URL")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Minute, "Connection timeout (eg. 5s, 10m)")
	rootCmd.Flags().DurationVarP(&kaTimeout, "keep-alive-timeout", "k", 90*time.Second, "Keep-alive timeout for client (eg. 10s, 1m, 80s)")
	rootCmd.Flags().StringVarP(&userAgent, "user-agent", "a", "", "User agent")
	rootCmd.Flags().StringVarP(&proxyURL, "proxy", "p", "", "HTTP/HTTPS proxy URL (e.g., proxy.example.com:8080)")
	rootCmd.Flags().StringVar(&proxyUsername, "proxy-username", "", "Proxy username (if not provided in proxy URL)")
	rootCmd.Flags().StringVar(&proxyPassword, "proxy-password", "", "Proxy password (if not provided in proxy URL)")
	rootCmd.Flags().StringArrayVarP(&headers, "header", "H", []string{}, "Custom headers (like 'X-Network: mainnet'); can be specified multiple times")

	// flags without shorthand
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
