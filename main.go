package main

import "github.com/wordaddict/finance-sub001/cmd"

func main() {
	cmd.Execute()
}
