package main

import "github.com/spf13/cobra"

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Low-level server-lifecycle operations",
	Long: "admin exposes the primitive operations (start, stop, incref, decref, " +
		"debug, doctor, kill) that 'use'/'unuse' compose for the common case. " +
		"Prefer 'use'/'unuse' unless you need direct control.",
}

func init() {
	rootCmd.AddCommand(adminCmd)
}
