package main

import (
	"encoding/json"
	"io"

	"github.com/fatih/color"
)

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}

// statusBit colours a status register: green when clear, red otherwise.
func statusBit(v uint64, width int) string {
	if v == 0 {
		return color.New(color.Bold, color.FgGreen).Sprintf("0x%0*X", width, v)
	}
	return color.New(color.Bold, color.FgRed).Sprintf("0x%0*X", width, v)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
