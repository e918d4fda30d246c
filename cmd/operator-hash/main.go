// operator-hash prints an FE_OPERATORS entry ("username:bcrypt-hash") for one
// operator. Collect the entries comma-separated into FE_OPERATORS.
//
// Usage:
//   go run ./cmd/operator-hash --username=ana --password=secreto
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/panafact/fepa_backend/utils"
)

func main() {
	username := flag.String("username", "", "operator login name (required)")
	password := flag.String("password", "", "operator password (required)")
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "both --username and --password are required")
		os.Exit(2)
	}

	hashed, err := utils.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s:%s\n", *username, string(hashed))
}
