package main

import (
	"flag"
	"log"

	"github.com/flexprice/installments/scripts/internal"
)

type command struct {
	description string
	run         func() error
}

func main() {
	cmdName := flag.String("cmd", "", "Command to run: migrate | import-plans")
	filePath := flag.String("file", "", "JSON lines file of installment plans, used by import-plans")
	flag.Parse()

	commands := map[string]command{
		"migrate": {
			description: "Create or update the installment tables",
			run:         internal.MigrateSchema,
		},
		"import-plans": {
			description: "Import stored installment plan documents (set DRY_RUN=true to validate only)",
			run:         func() error { return internal.ImportPlans(*filePath) },
		},
	}

	cmd, ok := commands[*cmdName]
	if !ok {
		for name, c := range commands {
			log.Printf("  %-14s %s", name, c.description)
		}
		log.Fatalf("unknown command %q", *cmdName)
	}

	if err := cmd.run(); err != nil {
		log.Fatalf("%s failed: %v", *cmdName, err)
	}
}
