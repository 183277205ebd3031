package main

import (
	"fmt"
	"log/slog"

	"expense-tracker/internal/app"
	"expense-tracker/internal/database"
	"expense-tracker/internal/dto"
	"expense-tracker/internal/validation"

	"github.com/spf13/cobra"
)

func createStaffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff user",
		Long: `Create a staff user. Staff manage every user's data and own the
predefined categories. When --password is omitted a random one is generated
and printed once.`,
		RunE: runCreateStaff,
	}

	cmd.Flags().String("email", "", "staff email (required)")
	cmd.Flags().String("username", "", "staff username (required)")
	cmd.Flags().String("name", "", "display name (defaults to the username)")
	cmd.Flags().String("password", "", "password; generated when empty")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runCreateStaff(cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	username, _ := cmd.Flags().GetString("username")
	name, _ := cmd.Flags().GetString("name")
	password, _ := cmd.Flags().GetString("password")

	if name == "" {
		name = username
	}

	db, err := database.Initialize(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	container, err := app.NewContainer(cfg, db, slog.Default())
	if err != nil {
		return err
	}
	defer container.Close()

	generated := password == ""
	if generated {
		password, err = container.PasswordService.GenerateSecurePassword()
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
	}

	req := &dto.RegisterRequest{Email: email, Username: username, Name: name, Password: password}
	if err := validation.GetValidator().Struct(req); err != nil {
		return fmt.Errorf("invalid staff user: %w", err)
	}

	user, err := container.AuthService.CreateStaff(req)
	if err != nil {
		return fmt.Errorf("failed to create staff user: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "created staff user %s (%s)\n", user.Username, user.ID)
	if generated {
		fmt.Fprintf(out, "generated password: %s\n", password)
	}

	return nil
}
