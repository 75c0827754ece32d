package main

import "github.com/explorrrr/boj-client/cmd"

func main() {
	cmd.Execute()
}
