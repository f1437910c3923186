package main

import (
	"os"

	"horse.fit/newsradar/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
