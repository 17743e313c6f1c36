package main

import (
	"fmt"
	"os"

	"podseg/internal/config"

	"github.com/pelletier/go-toml/v2"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	fmt.Printf("# effective config from %s\n", cfg.Paths.ConfigPath)
	out, err := toml.Marshal(cfg)
	if err != nil {
		panic(err)
	}
	_, _ = os.Stdout.Write(out)
}
