package main

import (
	"github.com/routepeer-io/routepeer/cmd/rpeer-driver-agent/app"
)

func main() {
	app.NewApp().Run()
}
