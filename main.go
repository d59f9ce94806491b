package main

import "inbox-agent/cmd/cli"

func main() {
	cli.Execute()
}
