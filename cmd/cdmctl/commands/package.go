package commands

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cdmbridge/internal/crypto"
)

func packageCmd() *cobra.Command {
	var (
		kidArg     string
		ivHex      string
		secret     string
		subsamples string
	)
	cmd := &cobra.Command{
		Use:   "package <in> <out>",
		Short: "Encrypt a file with the content key the license server issues for --kid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = wire.Config.Server.MasterSecret
			}
			if secret == "" {
				return errors.New("master secret required (--secret or server.master_secret)")
			}
			kids, err := parseKeyIDs([]string{kidArg})
			if err != nil {
				return err
			}
			rawIV, err := hex.DecodeString(ivHex)
			if err != nil {
				return fmt.Errorf("iv: %w", err)
			}
			subs, err := parseSubsamples(subsamples)
			if err != nil {
				return err
			}

			mode := wire.Session.CipherMode
			iv, err := crypto.NormalizeIV(mode, rawIV)
			if err != nil {
				return err
			}
			key, err := crypto.DeriveContentKey([]byte(secret), kids[0])
			if err != nil {
				return err
			}
			defer crypto.Wipe(key)

			src, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			dst := make([]byte, len(src))
			if err := crypto.EncryptSample(key, mode, iv, subs, dst, src); err != nil {
				return err
			}
			if err := os.WriteFile(args[1], dst, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "packaged %s (%d bytes, %s) for key %s\n", args[1], len(dst), mode, kids[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&kidArg, "kid", "", "key id (hex)")
	cmd.Flags().StringVar(&ivHex, "iv", "", "sample IV (hex, 8 or 16 bytes)")
	cmd.Flags().StringVar(&secret, "secret", "", "license server master secret")
	cmd.Flags().StringVar(&subsamples, "subsamples", "", "subsample map clear:protected,...")
	_ = cmd.MarkFlagRequired("kid")
	_ = cmd.MarkFlagRequired("iv")
	return cmd
}
