package wallet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/cli/input"
	"github.com/nspcc-dev/oracle-bridge/pkg/wallet"
	"github.com/urfave/cli"
)

var (
	errNoPath         = errors.New("target path where the wallet should be stored is mandatory and should be passed using (--wallet, -w) flags")
	errPhraseMismatch = errors.New("the entered pass-phrases do not match. Maybe you have misspelled them")
	errNoWIF          = errors.New("WIF is mandatory and should be passed using (--wif) flag")
)

var (
	walletPathFlag = cli.StringFlag{
		Name:  "wallet, w",
		Usage: "Target location of the wallet file.",
	}
	nameFlag = cli.StringFlag{
		Name:  "name, n",
		Usage: "Label of the account.",
	}
)

// NewCommands returns 'wallet' command.
func NewCommands() []cli.Command {
	return []cli.Command{{
		Name:  "wallet",
		Usage: "Create, open and manage bridge identity wallets",
		Subcommands: []cli.Command{
			{
				Name:   "init",
				Usage:  "Create a new wallet",
				Action: createWallet,
				Flags: []cli.Flag{
					walletPathFlag,
					cli.BoolFlag{
						Name:  "account, a",
						Usage: "Create a new account",
					},
				},
			},
			{
				Name:   "create",
				Usage:  "Add a new account with a random key to the existing wallet",
				Action: addAccount,
				Flags:  []cli.Flag{walletPathFlag},
			},
			{
				Name:   "import",
				Usage:  "Import a WIF key into the existing wallet",
				Action: importWIF,
				Flags: []cli.Flag{
					walletPathFlag,
					nameFlag,
					cli.StringFlag{
						Name:  "wif",
						Usage: "WIF to import",
					},
				},
			},
			{
				Name:   "dump",
				Usage:  "Check and dump an existing wallet",
				Action: dumpWallet,
				Flags: []cli.Flag{
					walletPathFlag,
					cli.BoolFlag{
						Name:  "decrypt, d",
						Usage: "Decrypt encrypted keys.",
					},
				},
			},
		},
	}}
}

func openWallet(ctx *cli.Context) (*wallet.Wallet, error) {
	path := ctx.String("wallet")
	if len(path) == 0 {
		return nil, errNoPath
	}
	return wallet.NewWalletFromFile(path)
}

func dumpWallet(ctx *cli.Context) error {
	wall, err := openWallet(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer wall.Close()
	if ctx.Bool("decrypt") {
		pass, err := input.ReadPassword(ctx.App.Writer, "Enter wallet password > ")
		if err != nil {
			return cli.NewExitError(err, 1)
		}
		for i := range wall.Accounts {
			// Just testing the decryption here.
			err := wall.Accounts[i].Decrypt(pass, wall.Scrypt)
			if err != nil {
				return cli.NewExitError(err, 1)
			}
		}
	}
	fmtPrintWallet(ctx, wall)
	return nil
}

func createWallet(ctx *cli.Context) error {
	path := ctx.String("wallet")
	if len(path) == 0 {
		return cli.NewExitError(errNoPath, 1)
	}
	wall, err := wallet.NewWallet(path)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer wall.Close()

	if ctx.Bool("account") {
		if err := createAccount(ctx, wall); err != nil {
			return cli.NewExitError(err, 1)
		}
	}

	fmtPrintWallet(ctx, wall)
	fmt.Fprintf(ctx.App.Writer, "wallet successfully created, file location is %s\n", wall.Path())
	return nil
}

func addAccount(ctx *cli.Context) error {
	wall, err := openWallet(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer wall.Close()
	if err := createAccount(ctx, wall); err != nil {
		return cli.NewExitError(err, 1)
	}
	return nil
}

func createAccount(ctx *cli.Context, wall *wallet.Wallet) error {
	name, err := input.ReadLine(ctx.App.Writer, "Enter the name of the account > ")
	if err != nil {
		return err
	}
	phrase, err := readNewPassword(ctx)
	if err != nil {
		return err
	}
	acc, err := wall.CreateAccount(name, phrase)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, acc.Address)
	return nil
}

func importWIF(ctx *cli.Context) error {
	wif := ctx.String("wif")
	if len(wif) == 0 {
		return cli.NewExitError(errNoWIF, 1)
	}
	wall, err := openWallet(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer wall.Close()

	acc, err := wallet.NewAccountFromWIF(wif)
	if err != nil {
		return cli.NewExitError(fmt.Errorf("can't import WIF: %w", err), 1)
	}
	if wall.GetAccount(acc.ScriptHash()) != nil {
		return cli.NewExitError(fmt.Errorf("account %s is already in the wallet", acc.Address), 1)
	}
	acc.Label = ctx.String("name")
	phrase, err := readNewPassword(ctx)
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	if err := acc.Encrypt(phrase, wall.Scrypt); err != nil {
		return cli.NewExitError(err, 1)
	}
	wall.AddAccount(acc)
	if err := wall.Save(); err != nil {
		return cli.NewExitError(err, 1)
	}
	fmt.Fprintln(ctx.App.Writer, acc.Address)
	return nil
}

func readNewPassword(ctx *cli.Context) (string, error) {
	phrase, err := input.ReadPassword(ctx.App.Writer, "Enter passphrase > ")
	if err != nil {
		return "", err
	}
	phraseCheck, err := input.ReadPassword(ctx.App.Writer, "Confirm passphrase > ")
	if err != nil {
		return "", err
	}
	if phrase != phraseCheck {
		return "", errPhraseMismatch
	}
	return phrase, nil
}

func fmtPrintWallet(ctx *cli.Context, wall *wallet.Wallet) {
	b, _ := json.MarshalIndent(wall, "", "  ")
	fmt.Fprintln(ctx.App.Writer, string(b))
}
