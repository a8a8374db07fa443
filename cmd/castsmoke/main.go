// castsmoke runs end-to-end scenarios against a running castd.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/lawnchairsociety/castcore/internal/smoke"
)

func main() {
	url := flag.String("url", "ws://localhost:8480/ws", "castd websocket endpoint")
	mapID := flag.Uint("map", 0, "Map the scenarios spawn their units on")
	filter := flag.String("run", "", "Only run scenarios whose name contains this text")
	list := flag.Bool("list", false, "List scenario names and exit")
	verbose := flag.Bool("v", false, "Verbose output - show detailed actions for each scenario")
	flag.Parse()

	if *list {
		for _, name := range smoke.Names() {
			fmt.Println(name)
		}
		return
	}

	smoke.Verbose = *verbose

	fmt.Printf("Running smoke scenarios against %s (map %d)\n", *url, *mapID)
	fmt.Println("Make sure castd is running with the stock content!")
	fmt.Println()

	results := smoke.Run(smoke.Target{URL: *url, Map: uint32(*mapID)}, *filter)
	smoke.PrintResults(results)

	// Exit with error code if any scenario failed
	for _, result := range results {
		if !result.Passed {
			os.Exit(1)
		}
	}
}
