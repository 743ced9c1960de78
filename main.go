package main

import "github.com/saravenpi/haggle/cmd"

func main() {
	cmd.Execute()
}
