package main

import (
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/cmd"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/logging"
)

func main() {
	logging.Init()
	cmd.Execute()
}
