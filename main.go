package main

import "downstream-go/services/boot"

// USB host and downstream processor packages register themselves with
// services/boot/modules from init(); link them with blank imports in a
// board file. Without them boot halts in ModuleInit.
func main() {
	println("[main] downstream boot")
	boot.Main()
}
