package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/genrun/genrun/internal/admission"
	"github.com/genrun/genrun/internal/admission/shm"
	"github.com/genrun/genrun/internal/config"
	"github.com/genrun/genrun/internal/launcher"
	"github.com/genrun/genrun/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "genrun [flags] -- command [args...]",
	Short: "Admission-gated command launcher",
	Long: `Genrun limits how many instances of a tool may run on one host at the
same time. It waits for a free slot in a shared pool identified by a
coordination key, then runs the wrapped command with inherited stdio.

Slots held by processes that have died are reclaimed automatically on
the next admission attempt; a slot is never released explicitly. With
no command, genrun only performs the admission and exits.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runLaunch,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/genrun/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.Flags().IntP("max-instances", "n", 1, fmt.Sprintf("how many instances may run at once (1-%d)", admission.MaxCapacity))
	rootCmd.Flags().StringP("key", "k", "genrun", "coordination key naming the instance pool")
	rootCmd.Flags().Duration("retry-interval", 10*time.Second, "wait between admission attempts while the pool is full")
	rootCmd.Flags().Int("max-attempts", 0, "maximum admission attempts (0 waits forever)")
	rootCmd.Flags().String("output-directory", "out", "directory created for the wrapped command's output")
	rootCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.Flags().String("log-dir", "", "directory for the JSON log file (default is stderr)")

	_ = viper.BindPFlag("admission.max_instances", rootCmd.Flags().Lookup("max-instances"))
	_ = viper.BindPFlag("admission.key", rootCmd.Flags().Lookup("key"))
	_ = viper.BindPFlag("admission.retry_interval", rootCmd.Flags().Lookup("retry-interval"))
	_ = viper.BindPFlag("admission.max_attempts", rootCmd.Flags().Lookup("max-attempts"))
	_ = viper.BindPFlag("output.directory", rootCmd.Flags().Lookup("output-directory"))
	_ = viper.BindPFlag("logging.level", rootCmd.Flags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.dir", rootCmd.Flags().Lookup("log-dir"))
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/genrun")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GENRUN")
	// Replace dots with underscores for nested keys in env vars,
	// e.g. GENRUN_ADMISSION_MAX_INSTANCES for admission.max_instances
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

func runLaunch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer logger.Close()

	store := shm.NewStore("", shm.WithLockRetries(cfg.Admission.LockRetries))
	ctrl := admission.New(store,
		admission.WithRetryInterval(cfg.Admission.RetryInterval),
		admission.WithMaxAttempts(cfg.Admission.MaxAttempts),
		admission.WithLogger(logger),
	)

	// A process killed while waiting never holds the table lock, so
	// cancelling here cannot corrupt the shared table.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code, err := launcher.New(cfg, ctrl, logger).Run(ctx, args)
	if err != nil {
		return err
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// ExitError carries a child's exit code through cobra's error return.
type ExitError struct {
	Code int
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an Execute error to the process exit status:
// configuration errors exit 2 with a diagnostic naming the valid
// range, a wrapped child's status passes through, and everything else
// (including coordination failures) exits 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var verrs config.ValidationErrors
	if errors.As(err, &verrs) {
		return 2
	}
	if errors.Is(err, admission.ErrInvalidConfiguration) {
		return 2
	}

	return 1
}
