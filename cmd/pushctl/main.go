// Package main is the pushctl operator CLI: VAPID key management and a
// headless push subscription session against a running server.
package main

import (
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
