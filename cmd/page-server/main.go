package main

import (
	"github.com/niels/page-server/internal/cmd"
)

func main() {
	cmd.Execute()
}
