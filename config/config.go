package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// Database holds the sqlite listing store location
	Database struct {
		Path string `env:"GHARSENSE_DB_PATH" envDefault:"database/gharsense.db"`
	}

	// Pipeline configuration shared by training and inference
	Pipeline struct {
		// Directory where model artifacts and encoders are persisted
		ModelsDir string `env:"GHARSENSE_MODELS_DIR" envDefault:"models"`

		// Directory where the comparison report is written
		ReportsDir string `env:"GHARSENSE_REPORTS_DIR" envDefault:"reports"`

		// Fraction of rows held out for scoring
		TestFraction float64 `env:"GHARSENSE_TEST_FRACTION" envDefault:"0.2"`

		// Seed for the split and every learner
		Seed int64 `env:"GHARSENSE_SEED" envDefault:"42"`

		// Width of a price bucket, in Lakhs
		BucketWidth float64 `env:"GHARSENSE_BUCKET_WIDTH" envDefault:"20"`
	}

	// Ingest configuration
	Ingest struct {
		// Maximum number of listings per queued batch
		BatchSize int `env:"INGEST_BATCH_SIZE" envDefault:"100"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"INGEST_RETRY_DELAY" envDefault:"5"`
	}

	// Server configuration
	Server struct {
		Port string `env:"GHARSENSE_PORT" envDefault:"5260"`
	}

	// Scheduler configuration
	Scheduler struct {
		// Enable the nightly retraining job
		RetrainEnabled bool `env:"SCHEDULER_RETRAIN_ENABLED" envDefault:"false"`

		// Hour of day (0-23) at which retraining runs
		RetrainHour int `env:"SCHEDULER_RETRAIN_HOUR" envDefault:"2"`
	}

	// Telegram notification settings; disabled when the token is empty
	Telegram struct {
		BotToken string `env:"TELEGRAM_BOT_TOKEN" envDefault:""`
		ChatID   string `env:"TELEGRAM_CHAT_ID" envDefault:""`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
