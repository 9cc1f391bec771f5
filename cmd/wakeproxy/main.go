package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wakedock/wakeproxy/internal/admin"
	"github.com/wakedock/wakeproxy/internal/caddyfile"
	"github.com/wakedock/wakeproxy/internal/config"
	"github.com/wakedock/wakeproxy/internal/health"
	"github.com/wakedock/wakeproxy/internal/logging"
	"github.com/wakedock/wakeproxy/internal/metrics"
	"github.com/wakedock/wakeproxy/internal/orchestrator"
	"github.com/wakedock/wakeproxy/internal/routes"
	"github.com/wakedock/wakeproxy/internal/service"
	"github.com/wakedock/wakeproxy/internal/tasks"
	"github.com/wakedock/wakeproxy/internal/version"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

var (
	logger       *logging.Logger
	servicesFile string
)

func initLogger(cfg *config.Config) {
	logConfig := &logging.Config{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
	}

	if err := logging.InitLogger(logConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger = logging.GetGlobalLogger()
}

// buildStack wires the full control plane from configuration.
func buildStack(cfg *config.Config) (service.ProxyService, *caddyfile.Manager, *health.Monitor, *metrics.Collector, error) {
	collector := metrics.NewCollector(nil)

	configs, err := caddyfile.NewManager(caddyfile.Options{CandidateDirs: cfg.ConfigDirs})
	if err != nil {
		return nil, nil, nil, nil, err
	}

	client := admin.NewClient(admin.Options{
		BaseURL:        cfg.CaddyAdminAPI,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		RetryAttempts:  cfg.RetryAttempts,
		RetryDelay:     cfg.RetryDelay,
		RateLimit:      cfg.AdminRateLimit,
		Collector:      collector,
	})

	routesMgr := routes.NewManager(client, routes.Options{
		ReservedDomains:  cfg.ReservedDomains,
		EligibleStatuses: cfg.EligibleStatuses,
		Collector:        collector,
	})

	monitor := health.NewMonitor(client, health.Options{
		HistoryCapacity: cfg.HealthHistory,
		Collector:       collector,
	})

	var orch service.Orchestrator = orchestrator.Static(nil)
	if servicesFile != "" {
		orch = orchestrator.NewFileOrchestrator(servicesFile)
	}

	return service.NewProxyService(configs, client, routesMgr, monitor, orch), configs, monitor, collector, nil
}

func loadAndBuild() (service.ProxyService, *caddyfile.Manager, *health.Monitor, *metrics.Collector, *config.Config) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	initLogger(cfg)

	svc, configs, monitor, collector, err := buildStack(cfg)
	if err != nil {
		logger.Error("Failed to initialize: %v", err)
		os.Exit(1)
	}
	return svc, configs, monitor, collector, cfg
}

func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		logger.Error("Failed to encode output: %v", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

var rootCmd = &cobra.Command{
	Use:   "wakeproxy",
	Short: "WakeProxy - Caddy control plane for the WakeDock platform",
	Long: `WakeProxy keeps a Caddy edge server synchronized with the platform's
running services: it manages the Caddyfile lifecycle (generate, validate,
backup, restore), reconciles routes and monitors proxy health.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run continuous monitoring and background maintenance",
	Run: func(cmd *cobra.Command, args []string) {
		svc, configs, _, collector, cfg := loadAndBuild()

		monitorTask := svc.StartMonitoring(cfg.HealthInterval)
		defer monitorTask.Stop()

		watcher, err := tasks.NewConfigWatcher(configs.ConfigPath(), collector)
		if err != nil {
			logger.Warn("Config watcher disabled: %v", err)
		} else {
			watcher.Start()
			defer watcher.Stop()
		}

		if cfg.BackupSchedule != "" {
			scheduler, err := tasks.NewBackupScheduler(configs, cfg.BackupSchedule, cfg.BackupRetention, collector)
			if err != nil {
				logger.Error("Invalid backup schedule: %v", err)
				os.Exit(1)
			}
			scheduler.Start()
			defer scheduler.Stop()
		}

		syncInterval, _ := cmd.Flags().GetDuration("sync-interval")
		stopSync := make(chan struct{})
		if syncInterval > 0 && servicesFile != "" {
			go func() {
				ticker := time.NewTicker(syncInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						if _, err := svc.SyncServices(context.Background()); err != nil {
							logger.Error("Periodic sync failed: %v", err)
						}
					case <-stopSync:
						return
					}
				}
			}()
		}

		logger.Info("wakeproxy %s serving (health interval %s)", version.Version, cfg.HealthInterval)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		close(stopSync)
		logger.Info("Shutting down")
	},
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile proxy routes with the service list",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()

		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = " Reconciling routes..."
		s.Start()

		results, err := svc.SyncServices(context.Background())
		s.Stop()
		if err != nil {
			logger.Error("Sync failed: %v", err)
			os.Exit(1)
		}

		failed := 0
		for id, ok := range results {
			if !ok {
				failed++
				fmt.Printf("  %s: FAILED\n", id)
			} else {
				fmt.Printf("  %s: ok\n", id)
			}
		}
		fmt.Printf("Reconciled %d routes (%d failed)\n", len(results), failed)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the canonical Caddy configuration",
}

var configGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the config from the service list and save it",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		content, err := svc.GenerateConfig(context.Background())
		if err != nil {
			logger.Error("Generation failed: %v", err)
			os.Exit(1)
		}
		fmt.Println(content)
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the canonical config or a candidate file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()

		var content string
		var err error
		if len(args) == 1 {
			var data []byte
			data, err = os.ReadFile(args[0])
			content = string(data)
		} else {
			content, err = svc.GetCurrentConfig()
		}
		if err != nil {
			logger.Error("Failed to read config: %v", err)
			os.Exit(1)
		}

		result := svc.ValidateConfig(content)
		printJSON(result)
		if !result.IsValid {
			os.Exit(1)
		}
	},
}

var configBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot the canonical config",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		res := svc.BackupConfig()
		printJSON(res)
		if !res.Success {
			os.Exit(1)
		}
	},
}

var configRestoreCmd = &cobra.Command{
	Use:   "restore <backup-id>",
	Short: "Restore a named backup after validating it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		res := svc.RestoreConfig(args[0])
		printJSON(res)
		if !res.Success {
			os.Exit(1)
		}
	},
}

var configBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List stored backups, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		backups, err := svc.ListBackups()
		if err != nil {
			logger.Error("Failed to list backups: %v", err)
			os.Exit(1)
		}
		printJSON(backups)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the on-disk config and the proxy's live config",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()

		current, err := svc.GetCurrentConfig()
		if err != nil {
			logger.Error("Failed to read on-disk config: %v", err)
			os.Exit(1)
		}
		fmt.Println("# --- on disk ---")
		fmt.Println(current)

		live, err := svc.GetLiveConfig(context.Background())
		if err != nil {
			logger.Warn("Failed to fetch live config: %v", err)
			return
		}
		fmt.Println("# --- live ---")
		fmt.Println(live)
	},
}

var configReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Push the canonical config to the proxy",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		res := svc.ReloadConfig(context.Background())
		printJSON(res)
		if !res.Success {
			os.Exit(1)
		}
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Run one health check",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		printJSON(svc.CheckHealth(context.Background()))
	},
}

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the full diagnostic battery",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, _, _, _ := loadAndBuild()
		printJSON(svc.Diagnose(context.Background()))
	},
}

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Report the health trend over a window",
	Run: func(cmd *cobra.Command, args []string) {
		svc, _, monitor, _, cfg := loadAndBuild()
		hours, _ := cmd.Flags().GetInt("hours")

		// A trend needs samples; run a few checks when invoked ad hoc.
		warm, _ := cmd.Flags().GetInt("samples")
		for i := 0; i < warm; i++ {
			monitor.Check(context.Background())
			if i < warm-1 {
				time.Sleep(cfg.HealthInterval / 10)
			}
		}

		printJSON(svc.GetHealthTrend(hours))
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.GetBuildInfo().String())
	},
}

func main() {
	rootCmd.PersistentFlags().StringVar(&servicesFile, "services", "", "Path to a YAML services manifest (orchestrator adapter)")
	serveCmd.Flags().Duration("sync-interval", 0, "Periodic reconciliation interval (0 disables)")
	trendCmd.Flags().Int("hours", 24, "Window size in hours")
	trendCmd.Flags().Int("samples", 3, "Health checks to run before computing the trend")

	configCmd.AddCommand(configGenerateCmd, configValidateCmd, configBackupCmd, configRestoreCmd, configBackupsCmd, configShowCmd, configReloadCmd)
	rootCmd.AddCommand(serveCmd, syncCmd, configCmd, healthCmd, diagnoseCmd, trendCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
