package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Celestial-0/Taskly/internal/adapters/repository"
	"github.com/Celestial-0/Taskly/internal/domain/entities"
	"github.com/Celestial-0/Taskly/internal/export"
	"github.com/Celestial-0/Taskly/internal/infrastructure/config"
	"github.com/Celestial-0/Taskly/internal/infrastructure/database"
	"github.com/Celestial-0/Taskly/internal/infrastructure/logger"
	"github.com/Celestial-0/Taskly/internal/infrastructure/server"
	"github.com/Celestial-0/Taskly/internal/sync"
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the Taskly API server",
		Long:  "Start the Taskly API server with all configured routes and middleware",
		Run: func(cmd *cobra.Command, args []string) {
			runServer()
		},
	}
}

// NewMigrateCommand creates the migrate command with subcommands
func NewMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  "Manage database migrations (up, down, version)",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Run all up migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				if err := db.MigrateUp(); err != nil {
					log.Fatalf("Migration failed: %v", err)
				}
				fmt.Println("Migrations applied")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				if err := db.MigrateDown(); err != nil {
					log.Fatalf("Rollback failed: %v", err)
				}
				fmt.Println("Migrations rolled back")
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print current migration version",
		Run: func(cmd *cobra.Command, args []string) {
			withDatabase(func(db *database.DB) {
				version, dirty, err := db.MigrationVersion()
				if err != nil {
					log.Fatalf("Failed to get migration version: %v", err)
				}
				fmt.Printf("Current migration version: %d\n", version)
				fmt.Printf("Dirty: %t\n", dirty)
			})
		},
	})

	return migrateCmd
}

// NewSyncCommand creates the one-shot sync command
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push all pending local changes",
		Long:  "Drain the outbox queue, oldest change first, and report the outcome",
		Run: func(cmd *cobra.Command, args []string) {
			runSync()
		},
	}
}

// NewSeedCommand creates the seed command
func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create default categories and sample tasks",
		Run: func(cmd *cobra.Command, args []string) {
			runSeed()
		},
	}
}

// NewExportCommand creates the export command
func NewExportCommand() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export all tasks to JSON or CSV",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			format, _ := cmd.Flags().GetString("format")
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			runExport(format, path)
		},
	}

	exportCmd.Flags().String("format", "json", "Export format (json or csv)")
	return exportCmd
}

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import tasks from a JSON or CSV export",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			format, _ := cmd.Flags().GetString("format")
			runImport(format, args[0])
		},
	}

	importCmd.Flags().String("format", "", "Import format (json or csv, inferred from extension when empty)")
	return importCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print Taskly version",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				log.Fatalf("Failed to load configuration: %v", err)
			}
			fmt.Printf("%s v%s\n", cfg.App.Name, cfg.App.Version)
		},
	}
}

func runServer() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		appLogger.Fatalw("Failed to open database", "error", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		appLogger.Fatalw("Failed to run migrations", "error", err)
	}

	srv, err := server.New(cfg, db, appLogger)
	if err != nil {
		appLogger.Fatalw("Failed to initialize server", "error", err)
	}

	appLogger.Infow("Starting Taskly API server",
		"port", cfg.Server.Port,
		"environment", cfg.App.Environment,
	)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := srv.Start(address); err != nil {
			appLogger.Infow("Server stopped", "reason", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Errorw("Graceful shutdown failed", "error", err)
	}
}

func runSync() {
	withRepositories(func(ctx context.Context, repos *repoSet) {
		pusher := sync.NewLocalPusher(repos.tasks, repos.categories, repos.subtasks, repos.sessions)
		coordinator := sync.NewCoordinator(repos.records, pusher, repos.logger)
		coordinator.Subscribe(func(p sync.Progress) {
			fmt.Printf("[%3d%%] %s\n", p.Percent, p.Message)
		})

		result, err := coordinator.PerformSync(ctx)
		if err != nil {
			log.Fatalf("Sync failed: %v", err)
		}

		fmt.Printf("Synced: %d, failed: %d\n", result.SyncedCount, result.FailedCount)
		for _, msg := range result.Errors {
			fmt.Printf("  %s\n", msg)
		}
		if !result.Success {
			os.Exit(1)
		}
	})
}

func runSeed() {
	withRepositories(func(ctx context.Context, repos *repoSet) {
		created, err := repos.categories.CreateDefaults(ctx)
		if err != nil {
			log.Fatalf("Failed to create default categories: %v", err)
		}
		fmt.Printf("Created %d categories\n", len(created))

		work, err := repos.categories.GetByName(ctx, "Work")
		if err != nil {
			log.Fatalf("Failed to look up Work category: %v", err)
		}

		tomorrow := time.Now().UTC().Add(24 * time.Hour)
		samples := []*entities.Task{
			{Title: "Review quarterly report", Priority: entities.PriorityHigh, DueDate: &tomorrow, CategoryID: &work.ID, Tags: entities.StringList{"review"}},
			{Title: "Buy groceries", Priority: entities.PriorityLow, Tags: entities.StringList{"errand"}},
			{Title: "Morning run", Priority: entities.PriorityMedium},
		}

		for _, task := range samples {
			if _, err := repos.tasks.Create(ctx, task); err != nil {
				log.Fatalf("Failed to create sample task %q: %v", task.Title, err)
			}
		}
		fmt.Printf("Created %d sample tasks\n", len(samples))
	})
}

func runExport(format, path string) {
	withRepositories(func(ctx context.Context, repos *repoSet) {
		out := os.Stdout
		if path != "" {
			f, err := os.Create(path)
			if err != nil {
				log.Fatalf("Failed to create export file: %v", err)
			}
			defer f.Close()
			out = f
		}

		exporter := export.NewExporter(repos.tasks, repos.categories)

		var err error
		switch format {
		case "json":
			err = exporter.WriteJSON(ctx, out)
		case "csv":
			err = exporter.WriteCSV(ctx, out)
		default:
			log.Fatalf("Unknown export format: %s", format)
		}

		if err != nil {
			log.Fatalf("Export failed: %v", err)
		}
	})
}

func runImport(format, path string) {
	if format == "" {
		switch {
		case strings.HasSuffix(path, ".csv"):
			format = "csv"
		default:
			format = "json"
		}
	}

	withRepositories(func(ctx context.Context, repos *repoSet) {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("Failed to open import file: %v", err)
		}
		defer f.Close()

		importer := export.NewImporter(repos.tasks, repos.categories)

		var count int
		switch format {
		case "json":
			count, err = importer.ReadJSON(ctx, f)
		case "csv":
			count, err = importer.ReadCSV(ctx, f)
		default:
			log.Fatalf("Unknown import format: %s", format)
		}

		if err != nil {
			log.Fatalf("Import failed: %v", err)
		}
		fmt.Printf("Imported %d tasks\n", count)
	})
}

// repoSet bundles the repositories the offline commands share
type repoSet struct {
	tasks      *repository.TaskRepository
	categories *repository.CategoryRepository
	subtasks   *repository.SubtaskRepository
	sessions   *repository.TimeSessionRepository
	records    *repository.SyncRecordRepository
	logger     *logger.Logger
}

func withDatabase(fn func(db *database.DB)) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fn(db)
}

func withRepositories(fn func(ctx context.Context, repos *repoSet)) {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	db, err := database.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.MigrateUp(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	records := repository.NewSyncRecordRepository(db, appLogger)
	repos := &repoSet{
		tasks:      repository.NewTaskRepository(db, records, appLogger),
		categories: repository.NewCategoryRepository(db, records, appLogger),
		subtasks:   repository.NewSubtaskRepository(db, records, appLogger),
		sessions:   repository.NewTimeSessionRepository(db, records, appLogger),
		records:    records,
		logger:     appLogger,
	}

	fn(context.Background(), repos)
}
