// Command keygen prints a fresh encryption master key, suitable for
// FRAMEIO_AUTH_ENCRYPTION_KEY.
package main

import (
	"fmt"
	"os"

	"github.com/billyshambrook/frameio-kit/internal/encryption"
)

func main() {
	key, err := encryption.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(key)
}
