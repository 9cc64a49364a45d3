package main

import (
	"flag"
	"fmt"
	"os"

	"chosenoffset.com/void/internal/config"
	"chosenoffset.com/void/internal/placeholders"
)

func main() {
	configPath := flag.String("config", "void.yaml", "path to the config file")
	background := flag.String("background", "assets/background.png", "where to write the background image")
	flag.Parse()

	fmt.Println("void Placeholder Asset Generator")
	fmt.Println("================================")
	fmt.Println()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	assets := placeholders.Assets{
		Background: *background,
		Blip:       cfg.Audio.Blip,
	}
	panelTop := int(cfg.Dialogue.Top) - int(cfg.Dialogue.LineHeight)
	if err := placeholders.GenerateAndSave(assets, cfg.Window.Width, cfg.Window.Height, panelTop, cfg.Audio.SampleRate); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("Done! Set window.background to use the generated background.")
}
