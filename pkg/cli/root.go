// Package cli provides the command-line interface for lowmemd
package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/lowmemd/lowmemd/pkg/config"
)

var (
	cfgFile   string
	stateDir  string
	verbosity string
	version   string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lowmemd",
	Short: "Userspace low-memory process eviction daemon",
	Long: `lowmemd monitors system memory pressure and, when free memory and the
file cache both drop below configured floors, selects and terminates the
process whose eviction best relieves the shortage.

Selection follows the classic adj/minfree threshold pairing: the lower
memory falls, the lower the priority floor, and among eligible processes
either the largest (legacy mode) or the one closest to the requested
reclaim target is killed.`,

	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("lowmemd v%s\n", version)
			return
		}
		cmd.Help()
	},
}

// Execute runs the CLI
func Execute(v string) error {
	version = v

	// Initialize the root command explicitly (avoiding init())
	initializeRootCommand()

	return rootCmd.Execute()
}

// initializeRootCommand sets up the root command and its flags.
// This replaces the init() function to make initialization explicit and testable.
func initializeRootCommand() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: lowmemd.config.json)")
	rootCmd.PersistentFlags().StringVar(&stateDir, "state-dir", "", "daemon state directory")
	rootCmd.PersistentFlags().StringVarP(&verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")

	rootCmd.Flags().Bool("version", false, "Print version information and quit")

	// Add subcommands
	rootCmd.AddCommand(newMonitorCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newDaemonCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/lowmemd")
		viper.SetConfigName("lowmemd.config")
		viper.SetConfigType("json")
	}

	viper.SetEnvPrefix("LOWMEMD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if verbosity == "debug" {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// getConfigPath resolves the config file path from the flag, viper, or a
// search of the working directory and its ancestors.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	wd, err := os.Getwd()
	if err != nil {
		return config.DefaultConfigName
	}
	if found, err := config.NewManager().FindConfig(wd); err == nil {
		return found
	}
	return config.DefaultConfigName
}

// Helper functions

func printSuccess(message string) {
	fmt.Printf("%s %s\n", color.GreenString("[lowmemd]"), message)
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("[lowmemd]"), message)
}

func printInfo(message string) {
	fmt.Printf("%s %s\n", color.CyanString("[lowmemd]"), message)
}

func printWarning(message string) {
	fmt.Printf("%s %s\n", color.YellowString("[lowmemd]"), message)
}
