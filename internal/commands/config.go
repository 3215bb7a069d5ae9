package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nhle/taskd/internal/credential"
	"github.com/nhle/taskd/internal/model"
)

var forceInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file populated with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(configPath); err == nil && !forceInit {
			return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
		}

		if err := model.SaveConfig(configPath, model.DefaultConfig()); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", configPath)
		return nil
	},
}

var secretCmd = &cobra.Command{
	Use:   "smtp-password",
	Short: "Store or remove the SMTP password in the system keyring",
}

var secretSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Read the SMTP password from stdin and store it",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.ErrOrStderr(), "SMTP password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}

		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return fmt.Errorf("password must not be empty")
		}

		if err := credential.Set(credential.SMTPPasswordKey, password); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "SMTP password stored")
		return nil
	},
}

var secretClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove the stored SMTP password",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := credential.Delete(credential.SMTPPasswordKey)
		if errors.Is(err, credential.ErrNotStored) {
			fmt.Fprintln(cmd.OutOrStdout(), "No SMTP password stored")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "SMTP password removed")
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&forceInit, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd)

	secretCmd.AddCommand(secretSetCmd)
	secretCmd.AddCommand(secretClearCmd)
}
