package main

import "github.com/nielsole/ppe_tile/cmd"

func main() {
	cmd.Execute()
}
