package main

import (
	"log"

	"github.com/smelldet/smelldet/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
