package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/hms/internal/entity"
)

func newMedicineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "medicine",
		Short: "Manage the medicine catalogue and stock",
	}

	var m struct {
		id, name, mtype, desc string
		stock, low            int
	}
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a medicine to the catalogue",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.inventory.Add(ctx, actorID, entity.Medicine{
				ID:            m.id,
				Name:          m.name,
				Type:          m.mtype,
				StockLevel:    m.stock,
				LowStockLevel: m.low,
				Description:   m.desc,
			})
		}),
	}
	add.Flags().StringVar(&m.id, "id", "", "medicine id")
	add.Flags().StringVar(&m.name, "name", "", "name")
	add.Flags().StringVar(&m.mtype, "type", "", "type")
	add.Flags().IntVar(&m.stock, "stock", 0, "initial stock level")
	add.Flags().IntVar(&m.low, "low", 0, "low stock alert threshold")
	add.Flags().StringVar(&m.desc, "description", "", "description")
	_ = add.MarkFlagRequired("id")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the catalogue with stock status",
		RunE: withApp(func(ctx context.Context, a *app) error {
			meds, err := a.inventory.List(ctx)
			if err != nil {
				return err
			}
			for _, med := range meds {
				fmt.Printf("%s\t%s\t%d\t%s\n", med.ID, med.Name, med.StockLevel, med.StatusLabel())
			}
			return nil
		}),
	}

	low := &cobra.Command{
		Use:   "low",
		Short: "List items at or below their alert threshold",
		RunE: withApp(func(ctx context.Context, a *app) error {
			meds, err := a.inventory.LowStock(ctx)
			if err != nil {
				return err
			}
			for _, med := range meds {
				fmt.Printf("%s\t%s\t%d/%d\n", med.ID, med.Name, med.StockLevel, med.LowStockLevel)
			}
			return nil
		}),
	}

	var replenishID string
	replenish := &cobra.Command{
		Use:   "replenish",
		Short: "Request restocking of a medicine",
		RunE: withApp(func(ctx context.Context, a *app) error {
			_, err := a.inventory.RequestReplenishment(ctx, actorID, replenishID)
			return err
		}),
	}
	replenish.Flags().StringVar(&replenishID, "id", "", "medicine id")
	_ = replenish.MarkFlagRequired("id")

	var approveID string
	var approveQty int
	approve := &cobra.Command{
		Use:   "approve",
		Short: "Approve a replenishment request and add stock",
		RunE: withApp(func(ctx context.Context, a *app) error {
			med, err := a.inventory.ApproveReplenishment(ctx, actorID, approveID, approveQty)
			if err != nil {
				return err
			}
			fmt.Printf("%s stock now %d\n", med.ID, med.StockLevel)
			return nil
		}),
	}
	approve.Flags().StringVar(&approveID, "id", "", "medicine id")
	approve.Flags().IntVar(&approveQty, "qty", 0, "quantity to add")
	_ = approve.MarkFlagRequired("id")
	_ = approve.MarkFlagRequired("qty")

	var removeID string
	remove := &cobra.Command{
		Use:   "remove",
		Short: "Remove a medicine from the catalogue",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.inventory.Remove(ctx, actorID, removeID)
		}),
	}
	remove.Flags().StringVar(&removeID, "id", "", "medicine id")
	_ = remove.MarkFlagRequired("id")

	cmd.AddCommand(add, list, low, replenish, approve, remove)
	return cmd
}

func newDispenseCmd() *cobra.Command {
	var rxID, appointmentID string
	cmd := &cobra.Command{
		Use:   "dispense",
		Short: "Dispense pending prescriptions",
		RunE: withApp(func(ctx context.Context, a *app) error {
			switch {
			case rxID != "":
				rx, err := a.pharmacy.Dispense(ctx, actorID, rxID)
				if err != nil {
					return err
				}
				fmt.Printf("dispensed %s: %s x%d\n", rx.ID, rx.MedicineID, rx.Quantity)
			case appointmentID != "":
				done, err := a.pharmacy.DispenseOutcome(ctx, actorID, appointmentID)
				if err != nil {
					return err
				}
				for _, rx := range done {
					fmt.Printf("dispensed %s: %s x%d\n", rx.ID, rx.MedicineID, rx.Quantity)
				}
			default:
				pending, err := a.pharmacy.Pending(ctx)
				if err != nil {
					return err
				}
				for _, rx := range pending {
					fmt.Printf("%s\t%s\tx%d\n", rx.ID, rx.MedicineID, rx.Quantity)
				}
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&rxID, "rx", "", "prescription id to dispense")
	cmd.Flags().StringVar(&appointmentID, "appointment", "", "dispense the whole outcome of an appointment")
	return cmd
}
