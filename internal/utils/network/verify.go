package network

import (
	"fmt"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// LoadKeyring reads an armored OpenPGP public keyring.
func LoadKeyring(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyring %s: %w", path, err)
	}
	defer f.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return nil, fmt.Errorf("reading keyring %s: %w", path, err)
	}
	return keyring, nil
}

// VerifyDetachedSignature checks file against the armored signature in
// sigFile.
func VerifyDetachedSignature(keyring openpgp.EntityList, file, sigFile string) error {
	signed, err := os.Open(file)
	if err != nil {
		return err
	}
	defer signed.Close()

	sig, err := os.Open(sigFile)
	if err != nil {
		return err
	}
	defer sig.Close()

	if _, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, sig, nil); err != nil {
		return fmt.Errorf("signature check of %s failed: %w", file, err)
	}
	return nil
}
