package cmd

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"fmt"
	"os"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mtucorr",
	Short: "DNS path MTU failure correlation",
	Long: `mtucorr correlates failed RIPE Atlas DNS measurements with resolver
side dnstap query logs, estimating how many queries are lost due to path MTU
and EDNS(0) buffer size mismatches.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/mtucorr.yaml)")

	// Logging options
	rootCmd.PersistentFlags().StringP("logfile", "", "", "Path to log file")
	viper.BindPFlag("logging.file", rootCmd.PersistentFlags().Lookup("logfile"))
	rootCmd.PersistentFlags().BoolP("logjson", "", false, "Output logs in JSON format")
	viper.BindPFlag("logging.json", rootCmd.PersistentFlags().Lookup("logjson"))
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging (debug log level)")
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Fatal(err)
		}
		viper.AddConfigPath(".")
		viper.AddConfigPath(home)
		viper.SetConfigName("mtucorr")
	}

	viper.SetEnvPrefix("MTUCORR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		log.WithFields(log.Fields{
			"file": viper.ConfigFileUsed(),
		}).Info("using config file")
	}
}

// setupLogging configures the global logger from the logging options.
// The returned function closes the log file, if any.
func setupLogging() func() {
	closer := func() {}
	logfilename := viper.GetString("logging.file")
	if len(logfilename) > 0 {
		log.Println("Switching to log file", logfilename)
		file, err := os.OpenFile(logfilename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
		if err != nil {
			log.Fatal(err)
		}
		closer = func() { file.Close() }
		log.SetFormatter(&log.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
		log.SetOutput(file)
	}

	if viper.GetBool("logging.json") {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if viper.GetBool("verbose") {
		log.Info("verbose log output enabled")
		log.SetLevel(log.DebugLevel)
	}
	return closer
}
