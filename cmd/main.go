package main

import (
	"context"
	"log"

	"github.com/jaennil/guide_helper/backend/mosaic/internal/app"
)

func main() {
	realMain()
}

func realMain() {
	if err := app.Execute(context.Background()); err != nil {
		log.Fatalln("mosaic: ", err)
	}
}
