package cmd

import (
	"encoding/hex"
	"fmt"

	"github.com/mezonai/powledger/wallet"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	keygenSeed string

	signSeed    string
	signMessage string

	verifyAddress   string
	verifyMessage   string
	verifySignature string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an ed25519 identity and print its address and seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			w   *wallet.Wallet
			err error
		)
		if keygenSeed != "" {
			w, err = walletFromHexSeed(keygenSeed)
		} else {
			w, err = wallet.NewWallet()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "address: %s\nseed: %s\n", w.Address, hex.EncodeToString(w.Seed()))
		return nil
	},
}

var signCmd = &cobra.Command{
	Use:   "sign",
	Short: "Sign a message with the identity derived from a hex seed",
	RunE: func(cmd *cobra.Command, args []string) error {
		w, err := walletFromHexSeed(signSeed)
		if err != nil {
			return err
		}
		sig, err := w.Sign([]byte(signMessage))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), sig)
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a base58 signature over a message",
	Long:  "Prints true or false. Malformed addresses or signatures are reported as errors.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ok, err := wallet.Verify(verifyAddress, []byte(verifyMessage), verifySignature)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ok)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd, signCmd, verifyCmd)

	keygenCmd.Flags().StringVar(&keygenSeed, "seed", "", "Hex-encoded 32-byte seed (optional)")

	signCmd.Flags().StringVar(&signSeed, "seed", "", "Hex-encoded 32-byte seed")
	signCmd.Flags().StringVar(&signMessage, "message", "", "Message to sign")
	_ = signCmd.MarkFlagRequired("seed")

	verifyCmd.Flags().StringVar(&verifyAddress, "address", "", "Base58 address of the signer")
	verifyCmd.Flags().StringVar(&verifyMessage, "message", "", "Signed message")
	verifyCmd.Flags().StringVar(&verifySignature, "signature", "", "Base58 signature")
	_ = verifyCmd.MarkFlagRequired("address")
	_ = verifyCmd.MarkFlagRequired("signature")
}

func walletFromHexSeed(seedHex string) (*wallet.Wallet, error) {
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, errors.Wrap(err, "seed must be hex")
	}
	return wallet.FromSeed(seed)
}
