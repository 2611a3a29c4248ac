package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/georgeharker/sharedserver/internal/admin"
)

var adminDoctorCmd = &cobra.Command{
	Use:   "doctor [NAME]",
	Short: "Check and repair lockfile/process consistency",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAdminDoctor,
}

func init() {
	adminCmd.AddCommand(adminDoctorCmd)
}

func runAdminDoctor(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	a := admin.New(store)

	var reports []admin.Report
	if len(args) == 1 {
		r, err := a.Doctor(args[0])
		if err != nil {
			return err
		}
		reports = []admin.Report{r}
	} else {
		reports, err = a.DoctorAll()
		if err != nil {
			return err
		}
	}

	p := getPrinter()
	if p.IsJSON() {
		p.JSON(reports)
		return nil
	}

	if len(reports) == 0 {
		p.Info("no servers found")
		return nil
	}

	totalIssues := 0
	for _, r := range reports {
		p.Section(r.Name)
		if len(r.Issues) == 0 {
			p.Success("no issues found")
			continue
		}
		for _, issue := range r.Issues {
			totalIssues++
			if issue.Fixed {
				p.Success(issue.Description)
			} else {
				p.Warn(issue.Description)
			}
		}
	}

	fmt.Println()
	if totalIssues == 0 {
		p.Success("all servers clean")
	} else {
		p.Warn(fmt.Sprintf("found %d issue(s) across %d server(s)", totalIssues, len(reports)))
	}
	return nil
}
