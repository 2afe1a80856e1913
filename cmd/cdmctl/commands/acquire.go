package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"cdmbridge/internal/keystatus"
)

func acquireCmd() *cobra.Command {
	var (
		kidArgs      []string
		licenseType  string
		initDataType string
		initDataHex  string
	)
	cmd := &cobra.Command{
		Use:   "acquire",
		Short: "Request a license and print the resulting key statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			kids, err := parseKeyIDs(kidArgs)
			if err != nil {
				return err
			}
			req, err := licenseRequest(licenseType, initDataType, initDataHex, kids)
			if err != nil {
				return err
			}

			sess, err := wire.Acquire.Acquire(cmd.Context(), req)
			if err != nil {
				return err
			}
			defer sess.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s (%s)\n", sess.SessionID(), sess.LicenseType())
			for _, e := range sess.KeyStatuses().Entries() {
				fmt.Fprintf(out, "  %s %s\n", e.KeyID, keystatus.Name(e.Status))
			}
			if sess.LicenseType().IsPersistent() {
				fmt.Fprintf(out, "stored; restore with --session %s\n", sess.SessionID())
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kidArgs, "kid", nil, "key id (hex), repeatable")
	cmd.Flags().StringVar(&licenseType, "type", "temporary", "temporary or persistent-license")
	cmd.Flags().StringVar(&initDataType, "init-data-type", "cenc", "cenc or webm")
	cmd.Flags().StringVar(&initDataHex, "init-data", "", "raw init data (hex); overrides --kid")
	return cmd
}
