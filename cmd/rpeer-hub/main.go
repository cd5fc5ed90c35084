package main

import (
	"github.com/routepeer-io/routepeer/cmd/rpeer-hub/app"
)

func main() {
	app.NewApp().Run()
}
