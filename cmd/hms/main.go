// Package main provides the hospital record manager command line interface.
// Every subcommand opens the store, runs one operation and shuts down.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	actorID string
	rootCmd = &cobra.Command{
		Use:           "hms",
		Short:         "Hospital record manager",
		Long:          "Manages hospital users, appointments, prescriptions, inventory and billing on flat record tables.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults plus HMS_ env vars when empty)")
	rootCmd.PersistentFlags().StringVar(&actorID, "actor", "system", "user id performing the operation, recorded in the journal")

	rootCmd.AddCommand(
		newUserCmd(),
		newSlotCmd(),
		newBookingCmd(),
		newRescheduleCmd(),
		newCompleteCmd(),
		newMedicineCmd(),
		newDispenseCmd(),
		newBillCmd(),
		newRecordCmd(),
		newFeedbackCmd(),
		newResetCmd(),
		newJournalCmd(),
		newMetricsCmd(),
		newHealthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
