package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	log "github.com/sirupsen/logrus"
)

var rootCmd = &cobra.Command{
	Use:   "scibench",
	Short: "Distributed deep-learning benchmark harness",
	Long: `A harness for running deep-learning benchmarks across distributed workers.
Records run parameters, metrics, and host/device telemetry per run.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("data-dir", "", "Directory holding benchmark datasets (overrides SCIBENCH_DATA_DIR)")
	rootCmd.PersistentFlags().String("model-dir", "", "Directory receiving run artifacts (overrides SCIBENCH_MODEL_DIR)")
	rootCmd.PersistentFlags().Int("verbosity", 0, "Verbosity level; >1 enables per-epoch output on the coordinator")
	viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	viper.BindPFlag("model_dir", rootCmd.PersistentFlags().Lookup("model-dir"))
	viper.BindPFlag("verbosity", rootCmd.PersistentFlags().Lookup("verbosity"))
}

func initConfig() {
	// Environment variables
	viper.SetEnvPrefix("SCIBENCH")
	viper.AutomaticEnv()

	// Also bind Databricks environment variables for the MLflow mirror
	viper.BindEnv("databricks_host", "DATABRICKS_HOST")
	viper.BindEnv("databricks_token", "DATABRICKS_TOKEN")

	// Set defaults
	viper.SetDefault("data_dir", "data")
	viper.SetDefault("model_dir", "models")
	viper.SetDefault("exec_mode", "train,predict")
	viper.SetDefault("batch_size", 32)
	viper.SetDefault("learning_rate", 0.001)
	viper.SetDefault("epochs", 1)
	viper.SetDefault("lr_warmup", 3)
	viper.SetDefault("log_interval", "500ms")
	viper.SetDefault("replicas", 1)

	if viper.GetInt("verbosity") > 2 {
		log.SetLevel(log.DebugLevel)
	}
}
