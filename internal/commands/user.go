package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/taskd/internal/app"
	"github.com/nhle/taskd/internal/model"
)

var (
	userName     string
	userSurname  string
	userEmail    string
	userPassword string
	userAdmin    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
}

var userAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a user who can log in to the API",
	RunE: withApp(func(cmd *cobra.Command, a *app.App) error {
		if userName == "" || userPassword == "" {
			return fmt.Errorf("--name and --password are required")
		}

		id, err := a.Store.CreateUser(cmd.Context(), model.User{
			Name:     userName,
			Surname:  userSurname,
			Email:    userEmail,
			Password: userPassword,
			Admin:    userAdmin,
		})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created user #%d: %s %s\n", id, userName, userSurname)
		return nil
	}),
}

func init() {
	userAddCmd.Flags().StringVar(&userName, "name", "", "first name")
	userAddCmd.Flags().StringVar(&userSurname, "surname", "", "last name")
	userAddCmd.Flags().StringVar(&userEmail, "email", "", "email address for notifications")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "login password")
	userAddCmd.Flags().BoolVar(&userAdmin, "admin", false, "grant administrator rights")

	userCmd.AddCommand(userAddCmd)
}
