package main

import (
	"os"

	"github.com/sunyakun/foo-controller/cmd/foo-controller/app"
)

func main() {
	os.Exit(app.Execute())
}
