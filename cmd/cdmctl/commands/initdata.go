package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"cdmbridge/internal/protocol/initdata"
)

func initDataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdata <kid>...",
		Short: "Print a Clear Key pssh box (hex) listing the key ids",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kids, err := parseKeyIDs(args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(initdata.BuildPSSH(kids...)))
			return nil
		},
	}
}
