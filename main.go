package main

import "github.com/Mohsinsiddi/casper-erc20/cmd"

func main() {
	cmd.Execute()
}
