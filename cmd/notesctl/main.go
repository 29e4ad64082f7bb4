// Command notesctl is the operator CLI for archived accounts.
//
//	notesctl archives list [query]
//	notesctl archives show <query> --output yaml
//	notesctl restore <query>
//
// It opens the same SQLite database as the server (config file, DB_PATH,
// or --db) and goes through the same service layer.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
