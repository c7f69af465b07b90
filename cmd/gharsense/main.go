package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gharsense/config"
	"gharsense/internal/api"
	"gharsense/internal/database"
	"gharsense/internal/encoding"
	"gharsense/internal/features"
	"gharsense/internal/inference"
	"gharsense/internal/ingest"
	"gharsense/internal/models"
	"gharsense/internal/processor"
	"gharsense/internal/queue"
	"gharsense/internal/scheduler"
	"gharsense/internal/telegram"
	"gharsense/internal/training"
)

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)
	return logger
}

func openStore(cfg *config.Config, logger *logrus.Logger) (*database.Database, error) {
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open listing store: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.WithField("path", cfg.Database.Path).Info("Listing store ready")
	return db, nil
}

func ingestCmd(logger *logrus.Logger) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Load a cleaned CSV of listings into the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			gormDB, err := gorm.Open(sqlite.Open(cfg.Database.Path), &gorm.Config{
				Logger: gormlogger.Default.LogMode(gormlogger.Silent),
			})
			if err != nil {
				return fmt.Errorf("failed to open store for batch writes: %w", err)
			}

			q := queue.NewListingQueue(64, logger)
			proc := processor.NewBatchProcessor(gormDB, q, cfg, logger)
			proc.Start()

			localities := config.NewLocalities()
			ing := ingest.NewIngester(localities, q, cfg.Ingest.BatchSize, logger)

			accepted, skipped, err := ing.IngestFile(file)
			q.Close()
			proc.Wait()
			if err != nil {
				return err
			}

			count, err := store.CountProperties()
			if err != nil {
				return err
			}
			logger.WithFields(logrus.Fields{
				"accepted": accepted,
				"skipped":  skipped,
				"stored":   count,
			}).Info("Ingestion finished")

			notifier := telegram.NewService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
			notifier.NotifyIngestComplete(accepted, skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the cleaned CSV")
	cmd.MarkFlagRequired("file")
	return cmd
}

// runTraining performs a full training pass from the store and
// persists the ranked artifacts. Shared by the train command and the
// nightly scheduler.
func runTraining(cfg *config.Config, store *database.Database, logger *logrus.Logger) (*training.TrainResult, error) {
	table, err := store.GetCleanedProperties()
	if err != nil {
		return nil, fmt.Errorf("failed to read listings: %w", err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("listing store is empty: run `gharsense ingest` first")
	}

	localities := config.NewLocalities()
	engineer := features.NewEngineer(localities, cfg.Pipeline.BucketWidth, logger)
	engineered := engineer.EngineerTable(table)

	if err := features.ValidateNoLeakage(models.TrainingFeatures); err != nil {
		return nil, err
	}

	encoders := encoding.FitTable(engineered, logger)
	matrix, targets := encoders.EncodeTable(engineered)

	trainer := training.NewTrainer(cfg.Pipeline.TestFraction, cfg.Pipeline.Seed, logger)
	result, err := trainer.TrainAndSelect(matrix, targets)
	if err != nil {
		return nil, err
	}

	if err := trainer.Persist(result, cfg.Pipeline.ModelsDir, cfg.Pipeline.ReportsDir); err != nil {
		return nil, err
	}
	if err := encoders.Save(filepath.Join(cfg.Pipeline.ModelsDir, training.EncoderFileName)); err != nil {
		return nil, err
	}
	return result, nil
}

func trainCmd(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Train the model roster and persist ranked artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			result, err := runTraining(cfg, store, logger)
			if err != nil {
				return err
			}

			best := result.Best()
			logger.WithFields(logrus.Fields{
				"best": best.Name,
				"r2":   best.Score.R2,
				"rmse": best.Score.RMSE,
				"mae":  best.Score.MAE,
			}).Info("Training complete")

			notifier := telegram.NewService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
			notifier.NotifyTrainingComplete(result)
			return nil
		},
	}
}

func predictCmd(logger *logrus.Logger) *cobra.Command {
	var (
		record  models.PropertyRecord
		rawJSON string
		model   string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Estimate the price of a single property",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			if rawJSON != "" {
				if err := json.Unmarshal([]byte(rawJSON), &record); err != nil {
					return fmt.Errorf("failed to parse --json record: %w", err)
				}
			}

			predictor := inference.NewPredictor(cfg, config.NewLocalities(), logger)
			prediction, err := predictor.PredictWithModel(record, model)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(prediction, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().IntVar(&record.BHK, "bhk", 0, "number of bedrooms")
	cmd.Flags().Float64Var(&record.AreaSqFt, "area", 0, "area in square feet")
	cmd.Flags().StringVar(&record.Locality, "locality", "", "locality name")
	cmd.Flags().StringVar(&record.SellerType, "seller", "Owner", "seller type (Owner, Dealer, Builder)")
	cmd.Flags().StringVar(&record.PropertyType, "type", "Apartment", "property type (Apartment, Independent House, Villa)")
	cmd.Flags().StringVar(&record.FurnishingStatus, "furnishing", "Unfurnished", "furnishing status")
	cmd.Flags().BoolVar(&record.UnderConstruction, "under-construction", false, "property is under construction")
	cmd.Flags().IntVar(&record.AmenitiesCount, "amenities", 0, "number of amenities")
	cmd.Flags().StringVar(&rawJSON, "json", "", "full property record as inline JSON; overrides the attribute flags")
	cmd.Flags().StringVar(&model, "model", "", "artifact file name; best model when empty")
	return cmd
}

func serveCmd(logger *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}

			store, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if cfg.Scheduler.RetrainEnabled {
				notifier := telegram.NewService(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
				sched := scheduler.NewScheduler(func() error {
					result, err := runTraining(cfg, store, logger)
					if err != nil {
						return err
					}
					notifier.NotifyTrainingComplete(result)
					return nil
				}, cfg.Scheduler.RetrainHour, logger)
				sched.Start()
				defer sched.Stop()
				logger.WithField("hour", cfg.Scheduler.RetrainHour).Info("Nightly retrain enabled")
			}

			router := gin.New()
			router.Use(gin.Recovery())
			router.Use(cors.Default())
			api.SetupRoutes(router, store, cfg, config.NewLocalities())

			logger.WithField("port", cfg.Server.Port).Info("Starting server")
			return router.Run(":" + cfg.Server.Port)
		},
	}
}

func main() {
	_ = godotenv.Load()

	logger := newLogger()

	rootCmd := &cobra.Command{
		Use:   "gharsense",
		Short: "Ahmedabad property price pipeline",
	}

	rootCmd.AddCommand(
		ingestCmd(logger),
		trainCmd(logger),
		predictCmd(logger),
		serveCmd(logger),
	)

	if err := rootCmd.Execute(); err != nil {
		logger.WithError(err).Error("Command failed")
		os.Exit(1)
	}
}
