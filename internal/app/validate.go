package app

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	payloadschema "horse.fit/newsradar/schema"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	paths := fs.Args()
	if len(paths) == 0 {
		fmt.Fprintln(os.Stderr, "validate requires at least one JSON file")
		return 2
	}

	failures := 0
	for _, path := range paths {
		valid, total, err := validateFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			failures++
			continue
		}
		if valid < total {
			fmt.Printf("%s: %d/%d items valid\n", path, valid, total)
			failures++
			continue
		}
		fmt.Printf("%s: OK (%d items)\n", path, total)
	}

	if failures > 0 {
		return 1
	}
	return 0
}

// validateFile accepts either a single item object or an array of items.
func validateFile(path string) (valid, total int, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return 0, 0, fmt.Errorf("file is empty")
	}

	var payloads []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &payloads); err != nil {
			return 0, 0, fmt.Errorf("parse JSON array: %w", err)
		}
	} else {
		payloads = []json.RawMessage{trimmed}
	}

	for i, payload := range payloads {
		if _, err := payloadschema.ValidateRawItem(payload); err != nil {
			fmt.Fprintf(os.Stderr, "%s: item %d: %v\n", path, i, err)
			continue
		}
		valid++
	}
	return valid, len(payloads), nil
}
