package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner.
func PrintBanner(cfg *Config) {
	color := ColorCyan
	reasoner := "RULES ONLY"
	if cfg.LLM.Provider != "" {
		color = ColorYellow
		reasoner = fmt.Sprintf("%s (%s)", cfg.LLM.Provider, cfg.LLM.Model)
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#              AMM Liquidity Agent Runtime                #%s\n", color, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s#   VERSION:  %-35s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Printf("%s#   AGENTS:   %-35d #%s\n", color, len(cfg.Agents), ColorReset)
	fmt.Printf("%s#   REASONER: %-35s #%s\n", color, reasoner, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", color, ColorReset)
	fmt.Printf("%s###########################################################%s\n", color, ColorReset)
	fmt.Println()
}
