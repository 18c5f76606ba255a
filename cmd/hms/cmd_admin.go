package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clinicware/hms/internal/entity"
)

func newBillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bill",
		Short: "Price and settle appointment bills",
	}

	var costID string
	var cost float64
	setCost := &cobra.Command{
		Use:   "set-cost",
		Short: "Price a processing bill",
		RunE: withApp(func(ctx context.Context, a *app) error {
			bill, err := a.billing.SetCost(ctx, actorID, costID, cost)
			if err != nil {
				return err
			}
			fmt.Printf("bill %s: %.2f %s\n", bill.AppointmentID, bill.Cost, bill.Status)
			return nil
		}),
	}
	setCost.Flags().StringVar(&costID, "id", "", "appointment id")
	setCost.Flags().Float64Var(&cost, "cost", 0, "cost to charge")
	_ = setCost.MarkFlagRequired("id")
	_ = setCost.MarkFlagRequired("cost")

	var payID string
	pay := &cobra.Command{
		Use:   "pay",
		Short: "Settle a billed charge",
		RunE: withApp(func(ctx context.Context, a *app) error {
			bill, err := a.billing.Pay(ctx, actorID, payID)
			if err != nil {
				return err
			}
			fmt.Printf("bill %s: %.2f %s\n", bill.AppointmentID, bill.Cost, bill.Status)
			return nil
		}),
	}
	pay.Flags().StringVar(&payID, "id", "", "appointment id")
	_ = pay.MarkFlagRequired("id")

	var listStatus, listPatient string
	list := &cobra.Command{
		Use:   "list",
		Short: "List bills by status or patient",
		RunE: withApp(func(ctx context.Context, a *app) error {
			var bills []entity.Bill
			var err error
			if listPatient != "" {
				bills, err = a.billing.ListByPatient(ctx, listPatient)
			} else {
				status, perr := entity.ParseBillStatus(listStatus)
				if perr != nil {
					return perr
				}
				bills, err = a.billing.ListByStatus(ctx, status)
			}
			if err != nil {
				return err
			}
			for _, bill := range bills {
				fmt.Printf("%s\t%s\t%.2f\t%s\t%s\n",
					bill.AppointmentID, bill.PatientID, bill.Cost, bill.Status,
					bill.Datetime.Format(entity.DateTimeLayout))
			}
			return nil
		}),
	}
	list.Flags().StringVar(&listStatus, "status", string(entity.BillProcessing), "PROCESSING, BILLED or PAID")
	list.Flags().StringVar(&listPatient, "patient", "", "list one patient's bills instead")

	cmd.AddCommand(setCost, pay, list)
	return cmd
}

func newRecordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Manage patient medical records",
	}

	var patient, allergy, notes string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a medical record for a patient",
		RunE: withApp(func(ctx context.Context, a *app) error {
			mr, err := a.records.Create(ctx, actorID, patient, allergy, notes)
			if err != nil {
				return err
			}
			fmt.Println("created", mr.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&patient, "patient", "", "patient id")
	create.Flags().StringVar(&allergy, "allergy", "", "known allergies")
	create.Flags().StringVar(&notes, "notes", "", "notes")
	_ = create.MarkFlagRequired("patient")

	var attachID, outcomeID string
	attach := &cobra.Command{
		Use:   "attach",
		Short: "Attach an appointment outcome to a record",
		RunE: withApp(func(ctx context.Context, a *app) error {
			_, err := a.records.AttachOutcome(ctx, actorID, attachID, outcomeID)
			return err
		}),
	}
	attach.Flags().StringVar(&attachID, "id", "", "medical record id")
	attach.Flags().StringVar(&outcomeID, "outcome", "", "appointment id of the outcome")
	_ = attach.MarkFlagRequired("id")
	_ = attach.MarkFlagRequired("outcome")

	var updateID, updateAllergy, updateNotes string
	update := &cobra.Command{
		Use:   "update",
		Short: "Rewrite a record's allergy line and notes",
		RunE: withApp(func(ctx context.Context, a *app) error {
			_, err := a.records.Update(ctx, actorID, updateID, updateAllergy, updateNotes)
			return err
		}),
	}
	update.Flags().StringVar(&updateID, "id", "", "medical record id")
	update.Flags().StringVar(&updateAllergy, "allergy", "", "known allergies")
	update.Flags().StringVar(&updateNotes, "notes", "", "notes")
	_ = update.MarkFlagRequired("id")

	var listPatient string
	list := &cobra.Command{
		Use:   "list",
		Short: "List a patient's medical records",
		RunE: withApp(func(ctx context.Context, a *app) error {
			records, err := a.records.ListByPatient(ctx, listPatient)
			if err != nil {
				return err
			}
			for _, mr := range records {
				fmt.Printf("%s\t%s\t%s\t%s\n", mr.ID, mr.Allergy, strings.Join(mr.OutcomeIDs, ","), mr.Notes)
			}
			return nil
		}),
	}
	list.Flags().StringVar(&listPatient, "patient", "", "patient id")
	_ = list.MarkFlagRequired("patient")

	var deleteID string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete a medical record",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.records.Delete(ctx, actorID, deleteID)
		}),
	}
	del.Flags().StringVar(&deleteID, "id", "", "medical record id")
	_ = del.MarkFlagRequired("id")

	cmd.AddCommand(create, attach, update, list, del)
	return cmd
}

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Rate doctors and read their averages",
	}

	var patient, doctor, comments string
	var rating int
	submit := &cobra.Command{
		Use:   "submit",
		Short: "Rate a doctor 1-10",
		RunE: withApp(func(ctx context.Context, a *app) error {
			fb, err := a.feedback.Submit(ctx, patient, doctor, rating, comments)
			if err != nil {
				return err
			}
			fmt.Println("recorded", fb.ID)
			return nil
		}),
	}
	submit.Flags().StringVar(&patient, "patient", "", "patient id")
	submit.Flags().StringVar(&doctor, "doctor", "", "doctor id")
	submit.Flags().IntVar(&rating, "rating", 0, "rating 1-10")
	submit.Flags().StringVar(&comments, "comments", "", "comments")
	_ = submit.MarkFlagRequired("patient")
	_ = submit.MarkFlagRequired("doctor")
	_ = submit.MarkFlagRequired("rating")

	var avgDoctor string
	average := &cobra.Command{
		Use:   "average",
		Short: "Show a doctor's mean rating",
		RunE: withApp(func(ctx context.Context, a *app) error {
			avg, n, err := a.feedback.AverageRating(ctx, avgDoctor)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("no ratings yet")
				return nil
			}
			fmt.Printf("%.1f from %d ratings\n", avg, n)
			return nil
		}),
	}
	average.Flags().StringVar(&avgDoctor, "doctor", "", "doctor id")
	_ = average.MarkFlagRequired("doctor")

	cmd.AddCommand(submit, average)
	return cmd
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "File and resolve password reset requests",
	}

	var submitID, submitMessage string
	submit := &cobra.Command{
		Use:   "submit",
		Short: "File a reset request",
		RunE: withApp(func(ctx context.Context, a *app) error {
			_, err := a.resets.Submit(ctx, submitID, submitMessage)
			return err
		}),
	}
	submit.Flags().StringVar(&submitID, "id", "", "user id")
	submit.Flags().StringVar(&submitMessage, "message", "", "message for the administrator")
	_ = submit.MarkFlagRequired("id")

	list := &cobra.Command{
		Use:   "list",
		Short: "List open reset requests",
		RunE: withApp(func(ctx context.Context, a *app) error {
			reqs, err := a.resets.ListOpen(ctx)
			if err != nil {
				return err
			}
			for _, req := range reqs {
				fmt.Printf("%s\t%s\t%s\n", req.UserID, req.RequestedAt.Format(entity.DateTimeLayout), req.Message)
			}
			return nil
		}),
	}

	var resolveID, resolvePassword string
	resolve := &cobra.Command{
		Use:   "resolve",
		Short: "Set a new password and close the request",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.resets.Resolve(ctx, actorID, resolveID, resolvePassword)
		}),
	}
	resolve.Flags().StringVar(&resolveID, "id", "", "user id")
	resolve.Flags().StringVar(&resolvePassword, "password", "", "new password")
	_ = resolve.MarkFlagRequired("id")
	_ = resolve.MarkFlagRequired("password")

	cmd.AddCommand(submit, list, resolve)
	return cmd
}

func newJournalCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show recent audit entries, newest first",
		RunE: withApp(func(ctx context.Context, a *app) error {
			if a.journal == nil {
				return fmt.Errorf("journal is disabled")
			}
			entries, err := a.journal.Recent(ctx, n)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Time.Format("02-01-2006 15:04:05"), e.Actor, e.Table, e.Action, e.Key, e.Detail)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Dump collected metrics in text exposition format",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.metrics.Dump(os.Stdout)
		}),
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show per-table circuit breaker status",
		RunE: withApp(func(ctx context.Context, a *app) error {
			for _, st := range a.breakers.GetHealthStatus() {
				fmt.Printf("%s\t%s\t%d requests\t%d failures\n",
					st.Name, st.State, st.Requests, st.Failures)
			}
			return nil
		}),
	}
}
