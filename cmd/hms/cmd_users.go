package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clinicware/hms/internal/entity"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Register, authenticate and manage users",
	}

	var u struct {
		id, first, last, dob, gender, contact, email, role, blood, password string
	}
	register := &cobra.Command{
		Use:   "register",
		Short: "Register a new user with credentials",
		RunE: withApp(func(ctx context.Context, a *app) error {
			role, err := entity.ParseRole(u.role)
			if err != nil {
				return err
			}
			user := entity.User{
				ID:            u.id,
				FirstName:     u.first,
				LastName:      u.last,
				DateOfBirth:   u.dob,
				Gender:        u.gender,
				ContactNumber: u.contact,
				EmailAddress:  u.email,
				Role:          role,
				BloodType:     u.blood,
			}
			if err := a.accounts.Register(ctx, user, u.password); err != nil {
				return err
			}
			fmt.Printf("registered %s (%s)\n", user.Name(), role)
			return nil
		}),
	}
	register.Flags().StringVar(&u.id, "id", "", "user id")
	register.Flags().StringVar(&u.first, "first", "", "first name")
	register.Flags().StringVar(&u.last, "last", "", "last name")
	register.Flags().StringVar(&u.dob, "dob", "", "date of birth (DD-MM-YYYY)")
	register.Flags().StringVar(&u.gender, "gender", "", "gender")
	register.Flags().StringVar(&u.contact, "contact", "", "contact number")
	register.Flags().StringVar(&u.email, "email", "", "email address")
	register.Flags().StringVar(&u.role, "role", "Patient", "Patient, Doctor, Pharmacist or Administrator")
	register.Flags().StringVar(&u.blood, "blood", "", "blood type (patients only)")
	register.Flags().StringVar(&u.password, "password", "", "initial password")
	_ = register.MarkFlagRequired("id")
	_ = register.MarkFlagRequired("password")

	var loginID, loginPassword string
	login := &cobra.Command{
		Use:   "login",
		Short: "Verify credentials",
		RunE: withApp(func(ctx context.Context, a *app) error {
			user, err := a.accounts.Authenticate(ctx, loginID, loginPassword)
			if err != nil {
				return err
			}
			fmt.Printf("welcome %s (%s)\n", user.Name(), user.Role)
			return nil
		}),
	}
	login.Flags().StringVar(&loginID, "id", "", "user id")
	login.Flags().StringVar(&loginPassword, "password", "", "password")
	_ = login.MarkFlagRequired("id")
	_ = login.MarkFlagRequired("password")

	var contactID, newContact, newEmail string
	updateContact := &cobra.Command{
		Use:   "update-contact",
		Short: "Change contact number and email",
		RunE: withApp(func(ctx context.Context, a *app) error {
			user, err := a.accounts.UpdateContact(ctx, contactID, newContact, newEmail)
			if err != nil {
				return err
			}
			fmt.Printf("updated %s: %s %s\n", user.ID, user.ContactNumber, user.EmailAddress)
			return nil
		}),
	}
	updateContact.Flags().StringVar(&contactID, "id", "", "user id")
	updateContact.Flags().StringVar(&newContact, "contact", "", "contact number")
	updateContact.Flags().StringVar(&newEmail, "email", "", "email address")
	_ = updateContact.MarkFlagRequired("id")

	var pwID, pwCurrent, pwNext string
	changePassword := &cobra.Command{
		Use:   "change-password",
		Short: "Rotate a password after verifying the current one",
		RunE: withApp(func(ctx context.Context, a *app) error {
			return a.accounts.ChangePassword(ctx, pwID, pwCurrent, pwNext)
		}),
	}
	changePassword.Flags().StringVar(&pwID, "id", "", "user id")
	changePassword.Flags().StringVar(&pwCurrent, "current", "", "current password")
	changePassword.Flags().StringVar(&pwNext, "new", "", "new password")
	_ = changePassword.MarkFlagRequired("id")

	var listRole string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users of one role",
		RunE: withApp(func(ctx context.Context, a *app) error {
			role, err := entity.ParseRole(listRole)
			if err != nil {
				return err
			}
			users, err := a.accounts.ListByRole(ctx, role)
			if err != nil {
				return err
			}
			for _, user := range users {
				fmt.Printf("%s\t%s\t%s\t%s\n", user.ID, user.Name(), user.ContactNumber, user.EmailAddress)
			}
			return nil
		}),
	}
	list.Flags().StringVar(&listRole, "role", "Patient", "role to list")

	cmd.AddCommand(register, login, updateContact, changePassword, list)
	return cmd
}
