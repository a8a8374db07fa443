// spellcheck lints a spells YAML file: every definition must parse and
// validate, and references to other spells, creatures, items and scripts
// must resolve.
//
// Usage:
//
//	go run ./cmd/spellcheck -spells data/spells.yaml -creatures data/creatures.yaml -items data/items.yaml -scripts scripts
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/spells"
)

func main() {
	spellsFile := flag.String("spells", "data/spells.yaml", "Path to spells YAML file")
	creaturesFile := flag.String("creatures", "", "Path to creatures YAML file (enables summon checks)")
	itemsFile := flag.String("items", "", "Path to items YAML file (enables reagent and item checks)")
	scriptsDir := flag.String("scripts", "", "Path to the Lua scripts directory (enables script name checks)")
	flag.Parse()

	f, err := spells.LoadFile(*spellsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	refs, err := content.LoadYAML("", *creaturesFile, *itemsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	var scripts map[string]bool
	if *scriptsDir != "" {
		scripts, err = scriptNames(*scriptsDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(2)
		}
	}

	issues := content.Lint(f, refs, scripts)
	for _, issue := range issues {
		fmt.Printf("%s: %s\n", *spellsFile, issue)
	}
	if len(issues) > 0 {
		fmt.Printf("%d spells checked, %d issues\n", len(f.Spells), len(issues))
		os.Exit(1)
	}
	fmt.Printf("%d spells checked, no issues\n", len(f.Spells))
}

func scriptNames(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make(map[string]bool)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".lua" {
			continue
		}
		names[strings.TrimSuffix(e.Name(), ".lua")] = true
	}
	return names, nil
}
