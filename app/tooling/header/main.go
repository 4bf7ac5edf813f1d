package main

import "github.com/ardanlabs/ethrelay/app/tooling/header/cmd"

func main() {
	cmd.Execute()
}
