package cmd

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DCSO/mtucorr/processing"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func asnmap(cmd *cobra.Command, args []string) {
	closeLog := setupLogging()
	defer closeLog()

	logger := log.WithFields(log.Fields{
		"domain": "asnmap",
	})

	date := dateFromFlags()
	ip := viper.GetInt("asnmap.ip")
	if ip != 4 && ip != 6 {
		log.Fatalf("invalid IP version: %d", ip)
	}

	mapper, err := processing.MakeASNMapperFromFile(viper.GetString("asnmap.db"))
	if err != nil {
		log.Fatal(err)
	}

	wa, cleanup, err := makeAnalyzer()
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := wa.FragmentationDay(ctx, date, ip)
	if err != nil {
		log.Fatal(err)
	}

	groups := processing.GroupFlaggedByMTU(results)
	if len(groups) == 0 {
		logger.Warn("no flagged queries, nothing to map")
		return
	}
	baseline := viper.GetInt("asnmap.baseline")
	if baseline == 0 {
		baseline = groups[len(groups)-1].MTU
	}
	logger.WithFields(log.Fields{
		"groups":   len(groups),
		"baseline": baseline,
	}).Info("grouped flagged queries")

	outDir := viper.GetString("asnmap.dir")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		log.Fatal(err)
	}
	files, err := mapper.WriteASNFiles(outDir, processing.ExcludeBaseline(groups, baseline))
	if err != nil {
		log.Fatal(err)
	}
	for _, f := range files {
		logger.WithField("file", f).Info("ASN list written")
	}
}

var asnmapCmd = &cobra.Command{
	Use:   "asnmap",
	Short: "map fragmenting resolvers to origin ASNs",
	Long: `The 'asnmap' command runs the resolver hop correlation over one day,
groups the addresses of resolvers whose queries would have been fragmented by
the MTU of the window and writes one list of origin ASNs per MTU. Addresses
also present in the baseline MTU group are left out.`,
	Run: asnmap,
}

func init() {
	rootCmd.AddCommand(asnmapCmd)

	asnmapCmd.Flags().StringP("asn-db", "a", "asn46.dat", "prefix to ASN database (prefix/len<TAB>asn per line)")
	viper.BindPFlag("asnmap.db", asnmapCmd.Flags().Lookup("asn-db"))
	asnmapCmd.Flags().IntP("ip", "", 4, "IP version to map (4 or 6)")
	viper.BindPFlag("asnmap.ip", asnmapCmd.Flags().Lookup("ip"))
	asnmapCmd.Flags().StringP("out-dir", "o", "asns", "directory for asn<MTU>.txt files")
	viper.BindPFlag("asnmap.dir", asnmapCmd.Flags().Lookup("out-dir"))
	asnmapCmd.Flags().IntP("baseline", "", 0, "baseline MTU whose addresses are excluded (default: MTU of the last group)")
	viper.BindPFlag("asnmap.baseline", asnmapCmd.Flags().Lookup("baseline"))
}
