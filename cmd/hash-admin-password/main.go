// Generates a bcrypt hash for ADMIN_PASSWORD_HASH.
//
// Usage: go run ./cmd/hash-admin-password <password>
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	if len(os.Args) != 2 {
		log.Fatal("usage: hash-admin-password <password>")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[1]), 14)
	if err != nil {
		log.Fatal("failed to hash password: ", err)
	}

	fmt.Println(string(hash))
}
