package main

import (
	"errors"
	"fmt"
	"os"

	"poliglotbot/internal/app"
	"poliglotbot/internal/config"
	"poliglotbot/internal/platform/logger"
)

func main() {
	application, err := app.New()
	if err != nil {
		if errors.Is(err, config.ErrPlaceholderToken) {
			fmt.Fprintln(os.Stderr, "poliglotbot: cannot start:", err)
		} else {
			fmt.Fprintln(os.Stderr, "poliglotbot: configuration error:", logger.RedactString(err.Error()))
		}
		os.Exit(1)
	}

	err = application.Run()
	if cerr := application.Close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "poliglotbot: close log:", cerr)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "poliglotbot:", logger.RedactString(err.Error()))
		os.Exit(1)
	}
}
