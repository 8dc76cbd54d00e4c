package main

import (
	_ "go.uber.org/automaxprocs"

	"github.com/autopeer-io/blurcam/cmd/blurcam-agent/app"
)

func main() {
	app.NewApp().Run()
}
