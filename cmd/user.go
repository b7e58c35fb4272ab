package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userSetPasswordCmd = &cobra.Command{
	Use:   "set-password <email>",
	Short: "Set a user's password and end their sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptPassword()
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, dialect, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		userAuthService, err := newUserAuthService(cfg, db, dialect)
		if err != nil {
			return err
		}

		if err = userAuthService.SetPassword(cmd.Context(), args[0], password); err != nil {
			return err
		}

		fmt.Printf("password updated for %s\n", args[0])
		return nil
	},
}

func init() {
	userCmd.AddCommand(userSetPasswordCmd)
	rootCmd.AddCommand(userCmd)
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("set-password must be run from a terminal")
	}

	fmt.Print("New password: ")
	first, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}

	fmt.Print("Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
