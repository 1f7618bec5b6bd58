// The main package for the netawatch executable.
package main

import "github.com/openneta/netawatch/cmd"

func main() {
	cmd.Execute()
}
