// Package main is a placeholder entry point.
//
// For the full CLI, use: go run ./cmd/sixsim
package main

import "fmt"

func main() {
	fmt.Println("sixstage - six-stage pipeline CPU simulator")
	fmt.Println("Run 'go run ./cmd/sixsim <instFile> <dataFile> <outFile> [-p]' to simulate a program.")
}
