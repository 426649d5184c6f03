package main

import (
	"fmt"

	"github.com/fatih/color"
)

func printSuccess(msg string, args ...interface{}) {
	color.New(color.FgGreen).Printf(msg+"\n", args...)
}

func printInfo(msg string, args ...interface{}) {
	color.New(color.FgCyan).Printf(msg+"\n", args...)
}

func printWarning(msg string, args ...interface{}) {
	color.New(color.FgYellow).Printf("Warning: "+msg+"\n", args...)
}

// statusText colors a video processing status
func statusText(status string) string {
	switch status {
	case "complete":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "processing":
		return color.CyanString(status)
	default:
		return color.YellowString(status)
	}
}

func printField(name string, value interface{}) {
	color.New(color.Bold).Printf("  %s: ", name)
	fmt.Println(value)
}
