package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bhc880510-bsk/newseoul-booking/internal/secrets"
)

// creds manages the sealed credentials file so the login secret never has to
// sit in a plan file in plaintext.
func newCredsCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "creds",
		Short: "Manage sealed site credentials",
	}
	c.AddCommand(newCredsSaveCmd(), newCredsShowCmd())
	return c
}

func newCredsSaveCmd() *cobra.Command {
	var (
		path     string
		memberID string
	)

	c := &cobra.Command{
		Use:   "save",
		Short: "Seal credentials to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv("NEWSEOUL_PASSPHRASE")
			if passphrase == "" {
				return fmt.Errorf("NEWSEOUL_PASSPHRASE must be set")
			}
			if memberID == "" {
				return fmt.Errorf("--member-id is required")
			}
			password := os.Getenv("NEWSEOUL_PW")
			if password == "" {
				fmt.Fprint(os.Stderr, "password: ")
				line, err := bufio.NewReader(os.Stdin).ReadString('\n')
				if err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			if password == "" {
				return fmt.Errorf("password must not be empty")
			}
			if err := secrets.Save(path, passphrase, secrets.Credentials{
				MemberID: memberID,
				Password: password,
			}); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "sealed credentials written to %s\n", path)
			return nil
		},
	}

	c.Flags().StringVar(&path, "file", "credentials.sealed", "output file")
	c.Flags().StringVar(&memberID, "member-id", "", "site member id")
	return c
}

func newCredsShowCmd() *cobra.Command {
	var path string

	c := &cobra.Command{
		Use:   "show",
		Short: "Unseal a credentials file and print the member id",
		RunE: func(cmd *cobra.Command, args []string) error {
			passphrase := os.Getenv("NEWSEOUL_PASSPHRASE")
			if passphrase == "" {
				return fmt.Errorf("NEWSEOUL_PASSPHRASE must be set")
			}
			creds, err := secrets.Load(path, passphrase)
			if err != nil {
				return err
			}
			// The secret itself is never printed.
			fmt.Fprintf(os.Stdout, "member_id=%s password=<sealed, %d chars>\n", creds.MemberID, len(creds.Password))
			return nil
		},
	}

	c.Flags().StringVar(&path, "file", "credentials.sealed", "input file")
	return c
}
