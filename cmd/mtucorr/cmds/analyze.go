package cmd

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/DCSO/mtucorr/db"
	"github.com/DCSO/mtucorr/processing"
	"github.com/DCSO/mtucorr/types"
	"github.com/DCSO/mtucorr/util"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultQueueSize = 24

func makeSlurper() (db.Slurper, error) {
	if !viper.GetBool("database.enable") {
		if viper.GetBool("verbose") {
			log.Println("database not in use")
		}
		return &db.DummySlurper{}, nil
	}
	chunkSize := viper.GetInt("chunksize")
	dbHost := viper.GetString("database.host")
	dbDatabase := viper.GetString("database.database")
	dbUser := viper.GetString("database.user")
	dbPassword := viper.GetString("database.password")
	dbTable := viper.GetString("database.table")
	if viper.GetBool("database.mongo") {
		return db.MakeMongoSlurper(dbHost, dbDatabase, dbUser, dbPassword,
			dbTable, chunkSize), nil
	}
	return db.MakePostgresSlurper(dbHost, dbDatabase, dbUser, dbPassword,
		dbTable, chunkSize)
}

func analyze(cmd *cobra.Command, args []string) {
	closeLog := setupLogging()
	defer closeLog()

	date := dateFromFlags()

	wa, cleanup, err := makeAnalyzer()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Set up database writing components
	reportChan := make(chan types.HourReport, defaultQueueSize)
	s, err := makeSlurper()
	if err != nil {
		log.Fatal(err)
	}
	s.Run(ctx, reportChan)

	// create dispatcher
	dispatcher := processing.MakeReportDispatcher(reportChan)
	if wa.StatsEncoder != nil {
		dispatcher.SubmitStats(wa.StatsEncoder)
	}

	var out io.Writer = os.Stdout
	if outFile := viper.GetString("output.file"); outFile != "" {
		f, err := os.OpenFile(outFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}
	dispatcher.RegisterHandler(processing.MakeJSONLinesHandler(out))

	if submissionURL := viper.GetString("output.submission-url"); submissionURL != "" {
		submitter, err := util.MakeAMQPSubmitter(submissionURL,
			viper.GetString("output.submission-exchange"),
			viper.GetBool("verbose"))
		if err != nil {
			log.Fatal(err)
		}
		if viper.GetBool("output.compress") {
			submitter.UseCompression()
		}
		defer submitter.Finish()
		dispatcher.RegisterHandler(processing.MakeForwardHandler(submitter,
			viper.GetString("output.routing-key")))
	}

	results, err := wa.AnalyzeDay(ctx, date)
	if err != nil {
		log.WithFields(log.Fields{
			"domain": "main",
		}).Warnf("analysis interrupted: %v", err)
	}
	for i := range results {
		dispatcher.Dispatch(&results[i].Report)
	}
	dispatcher.Finish()
	close(reportChan)
	s.Finish()

	log.WithFields(log.Fields{
		"domain":  "main",
		"date":    date.Format(dateFormat),
		"windows": len(results),
	}).Info("analysis complete")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "correlate one day of measurements and logs",
	Long: `The 'analyze' command correlates the failed measurements of one day
with the resolver logs, hour by hour, and emits one JSON report per hour.`,
	Run: analyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Output options
	analyzeCmd.Flags().StringP("out-file", "o", "", "append JSON reports to file instead of stdout")
	viper.BindPFlag("output.file", analyzeCmd.Flags().Lookup("out-file"))
	analyzeCmd.Flags().StringP("out-submission-url", "", "", "URL to which reports will be submitted, empty string disables forwarding")
	viper.BindPFlag("output.submission-url", analyzeCmd.Flags().Lookup("out-submission-url"))
	analyzeCmd.Flags().StringP("out-submission-exchange", "", "mtucorr", "Exchange to which reports will be submitted")
	viper.BindPFlag("output.submission-exchange", analyzeCmd.Flags().Lookup("out-submission-exchange"))
	analyzeCmd.Flags().StringP("out-routing-key", "", processing.DefaultRoutingKey, "routing key for submitted reports")
	viper.BindPFlag("output.routing-key", analyzeCmd.Flags().Lookup("out-routing-key"))
	analyzeCmd.Flags().BoolP("out-compress", "", false, "gzip submitted reports")
	viper.BindPFlag("output.compress", analyzeCmd.Flags().Lookup("out-compress"))

	// Database options
	analyzeCmd.Flags().BoolP("db-enable", "", false, "write reports to database")
	viper.BindPFlag("database.enable", analyzeCmd.Flags().Lookup("db-enable"))
	analyzeCmd.Flags().StringP("db-host", "s", "localhost:5432", "database host")
	viper.BindPFlag("database.host", analyzeCmd.Flags().Lookup("db-host"))
	analyzeCmd.Flags().StringP("db-user", "u", "sensor", "database user")
	viper.BindPFlag("database.user", analyzeCmd.Flags().Lookup("db-user"))
	analyzeCmd.Flags().StringP("db-database", "d", "mtu", "database DB")
	viper.BindPFlag("database.database", analyzeCmd.Flags().Lookup("db-database"))
	analyzeCmd.Flags().StringP("db-password", "p", "sensor", "database password")
	viper.BindPFlag("database.password", analyzeCmd.Flags().Lookup("db-password"))
	analyzeCmd.Flags().StringP("db-table", "", "", "database table or collection (default depends on backend)")
	viper.BindPFlag("database.table", analyzeCmd.Flags().Lookup("db-table"))
	analyzeCmd.Flags().BoolP("db-mongo", "m", false, "use MongoDB")
	viper.BindPFlag("database.mongo", analyzeCmd.Flags().Lookup("db-mongo"))
	analyzeCmd.Flags().UintP("chunksize", "c", 24, "chunk size for batched report inserts")
	viper.BindPFlag("chunksize", analyzeCmd.Flags().Lookup("chunksize"))
}
