package commands

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"cdmbridge/internal/domain"
	"cdmbridge/internal/services/session"
)

func decryptCmd() *cobra.Command {
	var (
		kidArgs    []string
		persisted  string
		ivHex      string
		subsamples string
		outDir     string
	)
	cmd := &cobra.Command{
		Use:   "decrypt <file>...",
		Short: "Decrypt protected files with a freshly acquired or restored license",
		Long: `Decrypt each file as one sample. Without --session a temporary license
is acquired for --kid; with --session the persisted license is restored.
Output is written next to each input (or into --out) with a .clear suffix.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kids, err := parseKeyIDs(kidArgs)
			if err != nil {
				return err
			}
			iv, err := hex.DecodeString(ivHex)
			if err != nil {
				return fmt.Errorf("iv: %w", err)
			}
			subs, err := parseSubsamples(subsamples)
			if err != nil {
				return err
			}

			var sess *session.Session
			if persisted != "" {
				sess, err = wire.Acquire.Restore(cmd.Context(), persisted)
			} else {
				req, rerr := licenseRequest("temporary", "cenc", "", kids)
				if rerr != nil {
					return rerr
				}
				sess, err = wire.Acquire.Acquire(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			defer sess.Close()

			var kid domain.KeyID
			if len(kids) > 0 {
				kid = kids[0]
			}

			var g errgroup.Group
			g.SetLimit(runtime.NumCPU())
			for _, in := range args {
				g.Go(func() error {
					return decryptFile(sess, kid, iv, subs, in, outPath(outDir, in))
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "decrypted %d file(s)\n", len(args))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&kidArgs, "kid", nil, "key id (hex); the first is used to decrypt")
	cmd.Flags().StringVar(&persisted, "session", "", "restore this persisted session instead of acquiring")
	cmd.Flags().StringVar(&ivHex, "iv", "", "sample IV (hex, 8 or 16 bytes)")
	cmd.Flags().StringVar(&subsamples, "subsamples", "", "subsample map clear:protected,...")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory")
	_ = cmd.MarkFlagRequired("iv")
	return cmd
}

func outPath(dir, in string) string {
	if dir == "" {
		return in + ".clear"
	}
	return filepath.Join(dir, filepath.Base(in)+".clear")
}

func decryptFile(sess *session.Session, kid domain.KeyID, iv []byte, subs []domain.Subsample, in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	content, r := sess.Decrypt(kid, subs, iv, data)
	if !r.OK() {
		return fmt.Errorf("decrypt %s: %s", in, r)
	}
	defer sess.ReleaseClearContent(content)

	if err := os.WriteFile(out, content.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
