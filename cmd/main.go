package main

import (
	"fmt"
	"os"

	"github.com/hooklab-media/hooklab-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to boot: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Start()
	fmt.Printf("Server listening on :%s\n", a.Cfg.Port)
	if err := a.Run(":" + a.Cfg.Port); err != nil {
		a.Log.Error("Server failed", "error", err)
	}
}
