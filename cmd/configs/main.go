package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"variant-compositor/internal/catalog"
)

func main() {
	catalogFile := flag.String("catalog", "", "Catalog JSON (default: built-in)")
	sectionType := flag.String("type", "", "List only this section type: upper, lower")
	assets := flag.Bool("assets", false, "List the asset names of every section instead of global configurations")
	dumpSpec := flag.Bool("dump", false, "Print the built-in catalog as JSON and exit")
	flag.Parse()

	if *dumpSpec {
		data, err := json.MarshalIndent(catalog.DefaultSpec(), "", "  ")
		if err != nil {
			fatalf("Error: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	cat := catalog.Default()
	if *catalogFile != "" {
		var err error
		if cat, err = catalog.Load(*catalogFile); err != nil {
			fatalf("Error loading catalog: %v", err)
		}
	}

	types := catalog.SectionTypes
	if *sectionType != "" {
		t, err := catalog.ParseSectionType(*sectionType)
		if err != nil {
			fatalf("Error: %v", err)
		}
		types = []catalog.SectionType{t}
	}

	for _, t := range types {
		if *assets {
			for _, s := range cat.SectionsOf(t) {
				names := cat.SectionConfigs(s)
				fmt.Printf("%s (%s): %d assets\n", cat.SectionName(s), t, len(names))
				for _, n := range names {
					fmt.Printf("  %s\n", n)
				}
			}
			continue
		}

		globals := cat.GlobalConfigs(t)
		fmt.Printf("%s: %d configurations\n", t, len(globals))
		for _, g := range globals {
			fmt.Printf("  %-40s %s\n", g.Name(), strings.Join(cat.SectionNames(g), " "))
		}
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
