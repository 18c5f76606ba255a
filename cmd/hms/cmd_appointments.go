package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/clinicware/hms/internal/entity"
	"github.com/clinicware/hms/internal/workflow"
)

func parseSlotDate(s string) (time.Time, error) {
	t, err := time.Parse(entity.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want DD-MM-YYYY", s)
	}
	return t, nil
}

func parseSlotTime(s string) (time.Time, error) {
	t, err := time.Parse(entity.TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q, want HH:MM", s)
	}
	return t, nil
}

func printAppointment(a entity.Appointment) {
	patient := a.PatientID
	if patient == "" {
		patient = "-"
	}
	fmt.Printf("%s\t%s\t%s %s\t%s\t%s\n",
		a.ID, a.DoctorID, a.Date.Format(entity.DateLayout), a.Time.Format(entity.TimeLayout), a.Status, patient)
}

func newSlotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Manage doctor availability slots",
	}

	var doctor, date, tod string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a new availability slot",
		RunE: withApp(func(ctx context.Context, a *app) error {
			d, err := parseSlotDate(date)
			if err != nil {
				return err
			}
			t, err := parseSlotTime(tod)
			if err != nil {
				return err
			}
			appt, err := a.engine.CreateAvailability(ctx, doctor, d, t)
			if err != nil {
				return err
			}
			fmt.Println("created", appt.ID)
			return nil
		}),
	}
	create.Flags().StringVar(&doctor, "doctor", "", "doctor id")
	create.Flags().StringVar(&date, "date", "", "date (DD-MM-YYYY)")
	create.Flags().StringVar(&tod, "time", "", "time (HH:MM)")
	_ = create.MarkFlagRequired("doctor")
	_ = create.MarkFlagRequired("date")
	_ = create.MarkFlagRequired("time")

	var deleteID string
	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove an open slot",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.engine.DeleteAvailability(ctx, deleteID)
		}),
	}
	del.Flags().StringVar(&deleteID, "id", "", "appointment id")
	_ = del.MarkFlagRequired("id")

	var listDoctor, listPatient string
	list := &cobra.Command{
		Use:   "list",
		Short: "List slots, open ones by default",
		RunE: withApp(func(ctx context.Context, a *app) error {
			switch {
			case listDoctor != "":
				p, err := a.engine.ListByDoctor(ctx, listDoctor)
				if err != nil {
					return err
				}
				for _, group := range [][]entity.Appointment{p.Available, p.Pending, p.Booked, p.Reschedule} {
					for _, appt := range group {
						printAppointment(appt)
					}
				}
			case listPatient != "":
				appts, err := a.engine.ListByPatient(ctx, listPatient)
				if err != nil {
					return err
				}
				for _, appt := range appts {
					printAppointment(appt)
				}
			default:
				appts, err := a.engine.ListAvailable(ctx)
				if err != nil {
					return err
				}
				for _, appt := range appts {
					printAppointment(appt)
				}
			}
			return nil
		}),
	}
	list.Flags().StringVar(&listDoctor, "doctor", "", "list all slots of one doctor, grouped by status")
	list.Flags().StringVar(&listPatient, "patient", "", "list one patient's appointments")

	cmd.AddCommand(create, del, list)
	return cmd
}

func newBookingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "booking",
		Short: "Request, accept, decline or cancel bookings",
	}

	var id, patient, message string
	request := &cobra.Command{
		Use:   "request",
		Short: "Request a booking on an open slot",
		RunE: withApp(func(ctx context.Context, a *app) error {
			appt, err := a.engine.RequestBooking(ctx, id, patient, message)
			if err != nil {
				return err
			}
			printAppointment(appt)
			return nil
		}),
	}
	request.Flags().StringVar(&id, "id", "", "appointment id")
	request.Flags().StringVar(&patient, "patient", "", "patient id")
	request.Flags().StringVar(&message, "message", "", "request message for the doctor")
	_ = request.MarkFlagRequired("id")
	_ = request.MarkFlagRequired("patient")

	cmd.AddCommand(request,
		transitionCmd("accept", "Accept a pending booking", func(ctx context.Context, a *app, id string) (entity.Appointment, error) {
			return a.engine.AcceptBooking(ctx, id)
		}),
		transitionCmd("decline", "Decline a pending booking", func(ctx context.Context, a *app, id string) (entity.Appointment, error) {
			return a.engine.DeclineBooking(ctx, id)
		}),
		transitionCmd("cancel", "Cancel a booked appointment", func(ctx context.Context, a *app, id string) (entity.Appointment, error) {
			return a.engine.CancelBooking(ctx, id)
		}),
	)
	return cmd
}

func newRescheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Request or resolve a date change on a booked appointment",
	}

	var id, date, tod string
	request := &cobra.Command{
		Use:   "request",
		Short: "Propose a new date and time",
		RunE: withApp(func(ctx context.Context, a *app) error {
			d, err := parseSlotDate(date)
			if err != nil {
				return err
			}
			t, err := parseSlotTime(tod)
			if err != nil {
				return err
			}
			appt, err := a.engine.RequestReschedule(ctx, id, d, t)
			if err != nil {
				return err
			}
			printAppointment(appt)
			return nil
		}),
	}
	request.Flags().StringVar(&id, "id", "", "appointment id")
	request.Flags().StringVar(&date, "date", "", "proposed date (DD-MM-YYYY)")
	request.Flags().StringVar(&tod, "time", "", "proposed time (HH:MM)")
	_ = request.MarkFlagRequired("id")
	_ = request.MarkFlagRequired("date")
	_ = request.MarkFlagRequired("time")

	cmd.AddCommand(request,
		transitionCmd("accept", "Move the appointment to the proposed slot", func(ctx context.Context, a *app, id string) (entity.Appointment, error) {
			return a.engine.AcceptReschedule(ctx, id)
		}),
		transitionCmd("decline", "Keep the original slot", func(ctx context.Context, a *app, id string) (entity.Appointment, error) {
			return a.engine.DeclineReschedule(ctx, id)
		}),
	)
	return cmd
}

// transitionCmd builds the shared shape of one-ID lifecycle subcommands.
func transitionCmd(use, short string, fn func(context.Context, *app, string) (entity.Appointment, error)) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: withApp(func(ctx context.Context, a *app) error {
			appt, err := fn(ctx, a, id)
			if err != nil {
				return err
			}
			printAppointment(appt)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "appointment id")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	var id, service, notes string
	var rxSpecs []string
	cmd := &cobra.Command{
		Use:   "complete",
		Short: "Record an appointment outcome, issuing prescriptions and a bill",
		RunE: withApp(func(ctx context.Context, a *app) error {
			items, err := parseRxSpecs(rxSpecs)
			if err != nil {
				return err
			}
			outcome, err := a.engine.Complete(ctx, id, service, notes, items)
			if err != nil {
				return err
			}
			fmt.Printf("completed %s, prescriptions: %s\n", outcome.AppointmentID, strings.Join(outcome.PrescriptionIDs, ", "))
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "appointment id")
	cmd.Flags().StringVar(&service, "service", "", "service type")
	cmd.Flags().StringVar(&notes, "notes", "", "consultation notes")
	cmd.Flags().StringArrayVar(&rxSpecs, "rx", nil, "prescription item as MEDICINE:QTY, repeatable")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseRxSpecs(specs []string) ([]workflow.PrescriptionItem, error) {
	var items []workflow.PrescriptionItem
	for _, spec := range specs {
		med, qtyStr, ok := strings.Cut(spec, ":")
		if !ok {
			return nil, fmt.Errorf("bad prescription item %q, want MEDICINE:QTY", spec)
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil || qty <= 0 {
			return nil, fmt.Errorf("bad quantity in %q", spec)
		}
		items = append(items, workflow.PrescriptionItem{MedicineID: med, Quantity: qty})
	}
	return items, nil
}
